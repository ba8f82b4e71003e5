// Package docstore はリモートドキュメントストアのRESTクライアントを提供する。
// お気に入り記録は favorites/{uid}/plants/{plantID} のパスに保存される。
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

const defaultEndpoint = "https://firestore.googleapis.com/v1"

// Client はドキュメントストアのREST APIクライアント。
// 認証はユーザーのIDトークンをBearerトークンとして付与する。
type Client struct {
	projectID  string
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
func NewClient(projectID string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		projectID:  projectID,
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// SetEndpoint はテスト用にエンドポイントを差し替える。
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

// document はドキュメントストアのドキュメント表現。
// 文字列フィールドのみを使用する。
type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]field `json:"fields"`
}

type field struct {
	StringValue string `json:"stringValue"`
}

// listResponse はコレクション一覧エンドポイントのレスポンス。
type listResponse struct {
	Documents []document `json:"documents"`
}

// collectionURL はユーザーのお気に入りコレクションのURLを返す。
func (c *Client) collectionURL(uid string) string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents/favorites/%s/plants",
		c.endpoint, c.projectID, url.PathEscape(uid))
}

// documentURL は個々のお気に入りドキュメントのURLを返す。
func (c *Client) documentURL(uid string, plantID model.PlantID) string {
	return c.collectionURL(uid) + "/" + url.PathEscape(string(plantID))
}

// ListFavorites はユーザーのお気に入りを全件取得する。
// コレクションが存在しない場合は空スライスを返す。
func (c *Client) ListFavorites(ctx context.Context, idToken, uid string) ([]model.FavoriteRecord, error) {
	body, err := c.do(ctx, http.MethodGet, c.collectionURL(uid), idToken, nil)
	if err != nil {
		return nil, err
	}

	var listResp listResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	records := make([]model.FavoriteRecord, 0, len(listResp.Documents))
	for _, doc := range listResp.Documents {
		records = append(records, recordFromDocument(doc))
	}
	return records, nil
}

// SetFavorite はお気に入り記録を保存する。同一植物IDへの保存は上書きとなる。
func (c *Client) SetFavorite(ctx context.Context, idToken, uid string, record model.FavoriteRecord) error {
	doc := document{
		Fields: map[string]field{
			"id":              {StringValue: string(record.PlantID)},
			"common_name":     {StringValue: record.CommonName},
			"scientific_name": {StringValue: record.ScientificName},
			"image_url":       {StringValue: record.ImageURL},
		},
	}
	reqBody, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPatch, c.documentURL(uid, record.PlantID), idToken, reqBody); err != nil {
		return err
	}
	return nil
}

// DeleteFavorite はお気に入り記録を削除する。
// ドキュメントストア側で存在しないドキュメントの削除は成功扱いとなる。
func (c *Client) DeleteFavorite(ctx context.Context, idToken, uid string, plantID model.PlantID) error {
	if _, err := c.do(ctx, http.MethodDelete, c.documentURL(uid, plantID), idToken, nil); err != nil {
		return err
	}
	return nil
}

// do はドキュメントストアへのHTTPリクエストを実行し、レスポンスボディを返す。
func (c *Client) do(ctx context.Context, method, reqURL, idToken string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = strings.NewReader(string(reqBody))
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+idToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("ドキュメントストアへの接続に失敗しました",
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ドキュメントストアへの接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("ドキュメントストアがエラーステータスを返しました",
			slog.String("method", method),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("ドキュメントストアがステータス %d を返しました", resp.StatusCode)
	}

	return body, nil
}

// recordFromDocument はドキュメントをお気に入り記録へ変換する。
func recordFromDocument(doc document) model.FavoriteRecord {
	get := func(key string) string {
		return doc.Fields[key].StringValue
	}
	record := model.FavoriteRecord{
		PlantID:        model.PlantID(get("id")),
		CommonName:     get("common_name"),
		ScientificName: get("scientific_name"),
		ImageURL:       get("image_url"),
	}

	// idフィールドが欠けた古いドキュメントはパス末尾のIDで補完する
	if record.PlantID == "" && doc.Name != "" {
		if i := strings.LastIndex(doc.Name, "/"); i >= 0 {
			record.PlantID = model.PlantID(doc.Name[i+1:])
		}
	}
	return record
}
