// Package recommend は現在地の天候に合わせた植物のおすすめ機能を提供する。
package recommend

import (
	"context"
	"log/slog"

	"github.com/hitoshi/midori/internal/model"
)

// humidityBand は天候の湿度から検索範囲を広げる幅（±%）。
const humidityBand = 20

// WeatherGateway は気象情報の取得インターフェース。
type WeatherGateway interface {
	Current(ctx context.Context, lat, lon float64) (*model.WeatherReading, error)
}

// PlantGateway は植物データの取得インターフェース。
type PlantGateway interface {
	ListByHumidityRange(ctx context.Context, minHumidity, maxHumidity int) ([]model.Plant, error)
}

// Notifier はおすすめ通知の発行インターフェース。
type Notifier interface {
	WeatherPick(plant model.Plant) model.Notification
}

// HomeView はホーム画面に表示する天候とおすすめ植物のまとまり。
type HomeView struct {
	Weather     *model.WeatherReading `json:"weather"`
	Plants      []model.Plant         `json:"plants"`
	Recommended *model.Plant          `json:"recommended,omitempty"`
}

// Service は天候に基づく植物のおすすめを組み立てる。
type Service struct {
	weather  WeatherGateway
	plants   PlantGateway
	notifier Notifier
}

// NewService はServiceを生成する。
func NewService(weather WeatherGateway, plants PlantGateway, notifier Notifier) *Service {
	return &Service{
		weather:  weather,
		plants:   plants,
		notifier: notifier,
	}
}

// ForLocation は指定座標の天候を取得し、湿度が近い植物をおすすめとして返す。
//
// 天候の取得失敗はGATEWAY_UNAVAILABLEエラーとなる。植物一覧の取得失敗は
// 致命的ではなく、天候だけを載せた空のおすすめに縮退する。
// 植物が1件以上あれば先頭をおすすめとして通知を発行する。
func (s *Service) ForLocation(ctx context.Context, lat, lon float64) (*HomeView, error) {
	reading, err := s.weather.Current(ctx, lat, lon)
	if err != nil {
		slog.Error("天候の取得に失敗しました",
			slog.Float64("lat", lat),
			slog.Float64("lon", lon),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGatewayUnavailableError("weather")
	}

	view := &HomeView{
		Weather: reading,
		Plants:  []model.Plant{},
	}

	minHumidity, maxHumidity := humidityRange(reading.Humidity)
	matches, err := s.plants.ListByHumidityRange(ctx, minHumidity, maxHumidity)
	if err != nil {
		slog.Warn("植物一覧の取得に失敗したため天候のみ返します",
			slog.Int("humidity", reading.Humidity),
			slog.String("error", err.Error()),
		)
		return view, nil
	}

	view.Plants = matches
	if len(matches) > 0 {
		recommended := matches[0]
		view.Recommended = &recommended
		s.notifier.WeatherPick(recommended)
	}
	return view, nil
}

// humidityRange は湿度を中心とした検索範囲を返す。範囲は0〜100に収める。
func humidityRange(humidity int) (int, int) {
	minHumidity := humidity - humidityBand
	if minHumidity < 0 {
		minHumidity = 0
	}
	maxHumidity := humidity + humidityBand
	if maxHumidity > 100 {
		maxHumidity = 100
	}
	return minHumidity, maxHumidity
}
