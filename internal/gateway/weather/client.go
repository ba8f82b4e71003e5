// Package weather は気象情報APIのクライアントを提供する。
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

const defaultEndpoint = "https://api.openweathermap.org/data/2.5"

// Client は気象情報APIのクライアント。
// 指定座標の現在の天候（気温・湿度・天気・風速）を取得する。
type Client struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
func NewClient(apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// SetEndpoint はテスト用にエンドポイントを差し替える。
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// currentResponse は現在天候エンドポイントのレスポンス。
type currentResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current は指定座標の現在の天候を取得する。気温は摂氏で返す。
func (c *Client) Current(ctx context.Context, lat, lon float64) (*model.WeatherReading, error) {
	reqURL, err := url.Parse(c.endpoint + "/weather")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("気象情報APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("気象情報APIへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("気象情報APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("気象情報APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var current currentResponse
	if err := json.Unmarshal(body, &current); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	reading := &model.WeatherReading{
		City:      current.Name,
		TempC:     current.Main.Temp,
		Humidity:  current.Main.Humidity,
		WindSpeed: current.Wind.Speed,
	}
	if len(current.Weather) > 0 {
		reading.Description = current.Weather[0].Description
		reading.Icon = current.Weather[0].Icon
	}
	return reading, nil
}
