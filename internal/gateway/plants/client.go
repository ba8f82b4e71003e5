// Package plants は植物データベースAPIのクライアントを提供する。
// 外部由来のテキストフィールドはすべてサニタイズしてから返す。
package plants

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/security"
)

const defaultEndpoint = "https://trefle.io/api/v1"

// Client は植物データベースAPIのクライアント。
type Client struct {
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	sanitizer  *security.ContentSanitizer
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
func NewClient(token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		token:      token,
		httpClient: httpClient,
		logger:     logger,
		sanitizer:  security.NewContentSanitizer(),
		endpoint:   defaultEndpoint,
	}
}

// SetEndpoint はテスト用にエンドポイントを差し替える。
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// listResponse は植物一覧エンドポイントのレスポンス。
type listResponse struct {
	Data []model.Plant `json:"data"`
}

// detailResponse は植物詳細エンドポイントのレスポンス。
type detailResponse struct {
	Data model.DetailedPlant `json:"data"`
}

// ListByHumidityRange は大気湿度が指定範囲の植物一覧を取得する。
func (c *Client) ListByHumidityRange(ctx context.Context, minHumidity, maxHumidity int) ([]model.Plant, error) {
	filter := fmt.Sprintf("min_humidity>=%d,max_humidity<=%d", minHumidity, maxHumidity)
	return c.list(ctx, filter)
}

// ListByFloweringMonth は指定した月に開花する植物一覧を取得する。
func (c *Client) ListByFloweringMonth(ctx context.Context, month string) ([]model.Plant, error) {
	return c.list(ctx, "flowering_months="+month)
}

// list はフィルタ条件付きで植物一覧を取得する。
func (c *Client) list(ctx context.Context, filter string) ([]model.Plant, error) {
	reqURL, err := url.Parse(c.endpoint + "/plants")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("token", c.token)
	q.Set("filter", filter)
	reqURL.RawQuery = q.Encode()

	body, err := c.get(ctx, reqURL.String())
	if err != nil {
		return nil, err
	}

	var listResp listResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	result := make([]model.Plant, 0, len(listResp.Data))
	for _, plant := range listResp.Data {
		c.sanitizePlant(&plant)
		result = append(result, plant)
	}
	return result, nil
}

// GetDetail は植物の詳細情報を取得する。存在しないIDの場合はnilを返す。
func (c *Client) GetDetail(ctx context.Context, plantID model.PlantID) (*model.DetailedPlant, error) {
	reqURL, err := url.Parse(fmt.Sprintf("%s/plants/%s", c.endpoint, url.PathEscape(string(plantID))))
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("token", c.token)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("植物データベースAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("植物データベースAPIへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("植物データベースAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("植物データベースAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var detailResp detailResponse
	if err := json.Unmarshal(body, &detailResp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	detail := detailResp.Data
	c.sanitizeDetail(&detail)
	return &detail, nil
}

// get はGETリクエストを実行し、レスポンスボディを返す。
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("植物データベースAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("植物データベースAPIへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("植物データベースAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("植物データベースAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return body, nil
}

// sanitizePlant は一覧項目のテキストフィールドをサニタイズする。
func (c *Client) sanitizePlant(plant *model.Plant) {
	plant.CommonName = c.sanitizer.Sanitize(plant.CommonName)
	plant.ScientificName = c.sanitizer.Sanitize(plant.ScientificName)
}

// sanitizeDetail は詳細情報のテキストフィールドをサニタイズする。
func (c *Client) sanitizeDetail(detail *model.DetailedPlant) {
	c.sanitizePlant(&detail.Plant)
	detail.FamilyCommonName = c.sanitizer.Sanitize(detail.FamilyCommonName)
	detail.Genus = c.sanitizer.Sanitize(detail.Genus)
	detail.Duration = c.sanitizer.Sanitize(detail.Duration)
	detail.FlowerColor = c.sanitizer.Sanitize(detail.FlowerColor)
	detail.FloweringMonths = c.sanitizer.Sanitize(detail.FloweringMonths)
	for i, region := range detail.Distribution.Native {
		detail.Distribution.Native[i] = c.sanitizer.Sanitize(region)
	}
}
