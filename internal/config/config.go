package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Identity / Document Store
	IdentityAPIKey    string
	IdentityProjectID string
	IdentityEndpoint  string
	DocstoreEndpoint  string

	// Gateways
	WeatherAPIKey   string
	WeatherEndpoint string
	PlantAPIToken   string
	PlantEndpoint   string
	GatewayTimeout  time.Duration
	ImageMaxSize    int64

	// Session
	SessionMaxAge int
	CookieSecure  bool

	// Rate Limit
	RateLimitGeneral int
	RateLimitToggle  int

	// Notification
	NotificationLimit int

	// Server
	ServerPort        string
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")
	if cfg.IdentityAPIKey == "" {
		missing = append(missing, "IDENTITY_API_KEY")
	}

	cfg.IdentityProjectID = os.Getenv("IDENTITY_PROJECT_ID")
	if cfg.IdentityProjectID == "" {
		missing = append(missing, "IDENTITY_PROJECT_ID")
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		missing = append(missing, "WEATHER_API_KEY")
	}

	cfg.PlantAPIToken = os.Getenv("PLANT_API_TOKEN")
	if cfg.PlantAPIToken == "" {
		missing = append(missing, "PLANT_API_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.IdentityEndpoint = getEnvString("IDENTITY_ENDPOINT", "https://identitytoolkit.googleapis.com/v1")
	cfg.DocstoreEndpoint = getEnvString("DOCSTORE_ENDPOINT", "https://firestore.googleapis.com/v1")
	cfg.WeatherEndpoint = getEnvString("WEATHER_ENDPOINT", "https://api.openweathermap.org/data/2.5")
	cfg.PlantEndpoint = getEnvString("PLANT_ENDPOINT", "https://trefle.io/api/v1")
	cfg.GatewayTimeout = getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 3600)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitToggle = getEnvInt("RATE_LIMIT_TOGGLE", 30)
	cfg.NotificationLimit = getEnvInt("NOTIFICATION_LIMIT", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:19006")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
