// Package imageproxy は外部の植物画像を安全に取得して中継する機能を提供する。
// 取得先URLはSSRF防止の検証を通し、レスポンスサイズに上限を設ける。
package imageproxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/midori/internal/security"
)

// Service は画像の取得と中継を行う。
type Service struct {
	guard      security.SSRFGuardService
	httpClient *http.Client
	maxSize    int64
}

// NewService はServiceを生成する。
// HTTPクライアントにはSSRF防止機能付きクライアントを使用する。
func NewService(guard security.SSRFGuardService, timeout time.Duration, maxSize int64) *Service {
	return &Service{
		guard:      guard,
		httpClient: guard.NewSafeClient(timeout, maxSize),
		maxSize:    maxSize,
	}
}

// SetHTTPClient はテスト用にHTTPクライアントを差し替える。
func (s *Service) SetHTTPClient(httpClient *http.Client) {
	s.httpClient = httpClient
}

// Fetch は画像URLの内容を取得する。画像データとContent-Typeを返す。
// URLがSSRF検証に失敗した場合、画像以外のコンテンツの場合、
// サイズ上限を超える場合はエラーを返す。
func (s *Service) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := s.guard.ValidateURL(rawURL); err != nil {
		slog.Warn("画像URLの検証に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, "", fmt.Errorf("画像URLが許可されていません: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("画像の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("画像の取得元がステータス %d を返しました", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("画像以外のコンテンツです: %s", contentType)
	}

	// 上限+1バイトまで読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("画像データの読み取りに失敗しました: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, "", fmt.Errorf("画像サイズが上限 %d バイトを超えています", s.maxSize)
	}

	return data, contentType, nil
}
