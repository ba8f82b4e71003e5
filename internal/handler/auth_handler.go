package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

const sessionCookieName = "session_id"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	Register(ctx context.Context, email, password string) (*model.Session, error)
	SignOut()
	FindSession(sessionID string) *model.Session
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はメール+パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	config   AuthHandlerConfig
	metrics  metrics.MetricsCollector
	validate *validator.Validate
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:  service,
		config:   config,
		metrics:  collector,
		validate: validator.New(),
	}
}

// credentialsRequest はサインイン/登録リクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// userResponse はログインユーザー情報のAPIレスポンス。
type userResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Login はメール+パスワードでサインインし、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordSignIn(false)
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordSignIn(true)

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusOK, userResponse{
		UID:   session.User.UID,
		Email: session.User.Email,
	})
}

// Register は新規アカウントを作成し、そのままサインインする。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	session, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordSignIn(false)
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordSignIn(true)

	h.setSessionCookie(w, session.ID)
	writeJSON(w, http.StatusCreated, userResponse{
		UID:   session.User.UID,
		Email: session.User.Email,
	})
}

// Logout はセッションを破棄する。サインイン済みでなくても成功する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.SignOut()

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	session := h.service.FindSession(cookie.Value)
	if session == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		UID:   session.User.UID,
		Email: session.User.Email,
	})
}

// decodeCredentials はリクエストボディを解析し、バリデーションする。
// 失敗時はエラーレスポンスを書き込み、falseを返す。
func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return req, false
	}

	if err := h.validate.Struct(req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, classifyValidationError(err))
		return req, false
	}

	return req, true
}

// classifyValidationError はバリデーションエラーを認証用のAPIErrorに変換する。
func classifyValidationError(err error) *model.APIError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewInvalidRequestError("入力値が不正です")
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Email":
		return model.NewInvalidEmailError()
	case "Password":
		if fe.Tag() == "required" {
			return model.NewMissingPasswordError()
		}
		return model.NewWeakPasswordError()
	default:
		return model.NewInvalidRequestError("入力値が不正です")
	}
}

// setSessionCookie はHTTP OnlyのセッションCookieを設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("session cookie issued")
}
