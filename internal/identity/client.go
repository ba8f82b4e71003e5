// Package identity は外部認証基盤（メール/パスワード認証API）のクライアントを提供する。
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

const defaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// Config は認証基盤クライアントの設定。
type Config struct {
	APIKey string

	// テスト用にオーバーライド可能なURL
	Endpoint string
}

// Client は認証基盤のREST APIクライアント。
// メール/パスワードによるサインインとアカウント登録を提供する。
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient はClientを生成する。httpClientがnilの場合はデフォルトを使用する。
func NewClient(config Config, httpClient *http.Client) *Client {
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{config: config, httpClient: httpClient}
}

// Account は認証基盤が発行したサインイン済みアカウントを表す。
type Account struct {
	UID       string
	Email     string
	IDToken   string
	ExpiresAt time.Time
}

// authRequest はサインイン/登録エンドポイントのリクエストボディ。
type authRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// authResponse はサインイン/登録エンドポイントのレスポンス。
type authResponse struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	LocalID   string `json:"localId"`
	ExpiresIn string `json:"expiresIn"`
}

// authErrorResponse は認証基盤のエラーレスポンス。
type authErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn はメール/パスワードでサインインし、アカウントを返す。
// 資格情報エラーは分類済みのmodel.APIErrorとして返す。
func (c *Client) SignIn(ctx context.Context, email, password string) (*Account, error) {
	return c.post(ctx, "accounts:signInWithPassword", email, password)
}

// Register はメール/パスワードでアカウントを新規作成し、
// そのままサインイン済みのアカウントを返す。
func (c *Client) Register(ctx context.Context, email, password string) (*Account, error) {
	return c.post(ctx, "accounts:signUp", email, password)
}

// post は認証基盤のアカウントエンドポイントを呼び出す。
func (c *Client) post(ctx context.Context, action, email, password string) (*Account, error) {
	reqBody, err := json.Marshal(authRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.config.Endpoint, action, c.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("認証基盤への接続に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAuthError(resp.StatusCode, body)
	}

	var authResp authResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if authResp.IDToken == "" || authResp.LocalID == "" {
		return nil, fmt.Errorf("認証基盤のレスポンスが不完全です")
	}

	return &Account{
		UID:       authResp.LocalID,
		Email:     authResp.Email,
		IDToken:   authResp.IDToken,
		ExpiresAt: tokenExpiry(authResp.IDToken, authResp.ExpiresIn),
	}, nil
}

// classifyAuthError は認証基盤のエラーコードを固定コードセットの資格情報エラーへ分類する。
// 分類できないコードは生のエラーとして返し、呼び出し元で内部エラー扱いになる。
func classifyAuthError(statusCode int, body []byte) error {
	var errResp authErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("認証基盤がステータス %d を返しました: %s", statusCode, string(body))
	}

	// "WEAK_PASSWORD : Password should be at least 6 characters" のように
	// 補足メッセージが付くことがあるため先頭トークンで判定する。
	code := errResp.Error.Message
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}

	switch code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD":
		return model.NewInvalidCredentialError()
	case "EMAIL_NOT_FOUND":
		return model.NewUserNotFoundError()
	case "EMAIL_EXISTS":
		return model.NewEmailInUseError()
	case "INVALID_EMAIL":
		return model.NewInvalidEmailError()
	case "WEAK_PASSWORD":
		return model.NewWeakPasswordError()
	case "MISSING_PASSWORD":
		return model.NewMissingPasswordError()
	default:
		return fmt.Errorf("認証基盤がステータス %d を返しました: %s", statusCode, errResp.Error.Message)
	}
}
