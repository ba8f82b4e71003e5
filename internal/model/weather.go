// Package model はドメインモデルを定義する。
package model

// WeatherReading は気象APIが返す現在の観測値を表す。
type WeatherReading struct {
	City        string  `json:"city"`
	TempC       float64 `json:"temp_c"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
}
