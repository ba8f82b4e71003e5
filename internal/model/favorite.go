// Package model はドメインモデルを定義する。
package model

// FavoriteRecord はユーザーのお気に入り植物を表す。
// ドキュメントストアでは favorites/{uid}/plants/{plantID} に1植物1ドキュメントで保存され、
// 格納キーが植物ID自身であるため書き込みは自然に冪等なアップサートになる。
// 再取得なしで一覧表示できるよう、名称と画像URLを非正規化したスナップショットを持つ。
type FavoriteRecord struct {
	PlantID        PlantID `json:"id"`
	CommonName     string  `json:"common_name"`
	ScientificName string  `json:"scientific_name"`
	ImageURL       string  `json:"image_url"`
}

// DisplayName は一覧表示用の名称を返す。通称がなければ学名を使う。
func (r FavoriteRecord) DisplayName() string {
	if r.CommonName != "" {
		return r.CommonName
	}
	return r.ScientificName
}
