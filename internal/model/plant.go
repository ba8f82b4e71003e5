// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PlantID は植物の識別子を表す。
// 植物データAPIは識別子を数値で返すことも文字列で返すこともあるため、
// デコード時に正規化した文字列として保持する。
type PlantID string

// UnmarshalJSON はJSONの数値・文字列のどちらからでもPlantIDをデコードする。
func (id *PlantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("植物IDのデコードに失敗しました: %w", err)
		}
		*id = PlantID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("植物IDのデコードに失敗しました: %w", err)
	}
	*id = PlantID(n.String())
	return nil
}

// String は正規化済みのキー文字列を返す。
func (id PlantID) String() string {
	return string(id)
}

// Valid は識別子が空でないことを返す。
func (id PlantID) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// Plant は植物データAPIが返す一覧用の植物レコードを表す。
type Plant struct {
	ID             PlantID `json:"id"`
	CommonName     string  `json:"common_name"`
	ScientificName string  `json:"scientific_name"`
	ImageURL       string  `json:"image_url"`
}

// DisplayName は表示用の名称を返す。通称がなければ学名を使う。
func (p Plant) DisplayName() string {
	if p.CommonName != "" {
		return p.CommonName
	}
	return p.ScientificName
}

// MaximumHeight は植物の最大樹高を表す。
type MaximumHeight struct {
	CM float64 `json:"cm"`
}

// PlantSpecifications は植物の生育特性を表す。
type PlantSpecifications struct {
	MaximumHeight MaximumHeight `json:"maximum_height"`
}

// PlantDistribution は植物の分布情報を表す。
type PlantDistribution struct {
	Native []string `json:"native"`
}

// DetailedPlant は植物データAPIから識別子で遅延取得する詳細レコードを表す。
type DetailedPlant struct {
	Plant

	FamilyCommonName string              `json:"family_common_name"`
	Genus            string              `json:"genus"`
	Duration         string              `json:"duration"`
	FlowerColor      string              `json:"flower_color"`
	FloweringMonths  string              `json:"flowering_months"`
	Distribution     PlantDistribution   `json:"distribution"`
	Specifications   PlantSpecifications `json:"specifications"`
}
