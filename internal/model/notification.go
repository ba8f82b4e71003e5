package model

import "time"

// 通知種別
const (
	NotificationTypeFavoritePlant = "favorite_plant"
	NotificationTypeWeatherPlant  = "weather_plant"
)

// Notification はアプリ内通知を表す。
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	PlantID   PlantID   `json:"plant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationTarget は通知タップ時の遷移先を表す。
type NotificationTarget struct {
	Screen     string  `json:"screen"`
	PlantID    PlantID `json:"plant_id"`
	CommonName string  `json:"common_name"`
}
