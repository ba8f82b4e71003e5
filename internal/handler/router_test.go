package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/recommend"
	"github.com/prometheus/client_golang/prometheus"
)

// newTestRouter は全ハンドラーをモックで構成したルーターを返す。
func newTestRouter(t *testing.T, auth *mockAuthService) (http.Handler, *middleware.RateLimiter) {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())

	deps := &RouterDeps{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionFinder:     auth,
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: false},
		RateLimiter:       rl,

		AuthService: auth,
		AuthConfig:  AuthHandlerConfig{SessionMaxAge: 3600},

		RecommendService: &mockRecommendService{
			forLocationFn: func(ctx context.Context, lat, lon float64) (*recommend.HomeView, error) {
				return &recommend.HomeView{
					Weather: &model.WeatherReading{City: "Tokyo"},
					Plants:  []model.Plant{},
				}, nil
			},
		},
		PlantGateway: &mockPlantGateway{},
		ImageFetcher: &mockImageFetcher{},
		FavoritesService: &mockFavoritesService{
			listFn: func() []model.FavoriteRecord {
				return []model.FavoriteRecord{{PlantID: "12", CommonName: "Blue sage"}}
			},
		},
		NotificationService: &mockNotificationService{},
		FavoriteNotifier:    &mockFavoriteNotifier{},

		Metrics:  collector,
		Gatherer: reg,
	}

	return NewRouter(deps), rl
}

func authedMockService() *mockAuthService {
	return &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.Session, error) {
			return testSession(), nil
		},
		findSessionFn: func(sessionID string) *model.Session {
			if sessionID == "session-abc" {
				return testSession()
			}
			return nil
		},
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_APIRoutes_RequireSession(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	paths := []string{
		"/api/home?lat=35.68&lon=139.76",
		"/api/plants?min_humidity=40&max_humidity=80",
		"/api/plants/12",
		"/api/favorites",
		"/api/notifications",
	}

	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want %d", path, w.Result().StatusCode, http.StatusUnauthorized)
		}
	}
}

func TestRouter_AuthRoutes_NoSessionRequired(t *testing.T) {
	auth := authedMockService()
	router, rl := newTestRouter(t, auth)
	defer rl.Stop()

	body := `{"email": "user@example.com", "password": "secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if sessionCookieFrom(t, resp) == nil {
		t.Error("expected session cookie after login")
	}
}

func TestRouter_AuthenticatedFlow_GetFavorites(t *testing.T) {
	auth := authedMockService()
	router, rl := newTestRouter(t, auth)
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var records []model.FavoriteRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
}

func TestRouter_ToggleWithoutCSRFToken_Returns403(t *testing.T) {
	auth := authedMockService()
	router, rl := newTestRouter(t, auth)
	defer rl.Stop()

	body := `{"plant": {"id": "12"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/favorites/toggle", bytes.NewBufferString(body))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// POSTはCSRFトークンなしでは通らない
	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRouter_ToggleWithCSRFToken_Succeeds(t *testing.T) {
	auth := authedMockService()
	router, rl := newTestRouter(t, auth)
	defer rl.Stop()

	body := `{"plant": {"id": "12"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/favorites/toggle", bytes.NewBufferString(body))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-csrf-token"})
	req.Header.Set("X-CSRF-Token", "test-csrf-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// mockFavoritesServiceのtoggleFnが未設定なのでUNAUTHENTICATEDで401になるが、
	// CSRFとセッションのチェックは通過している
	if w.Result().StatusCode == http.StatusForbidden {
		t.Error("CSRF check should pass with matching token")
	}
}

func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if tokenResp.Token == "" {
		t.Error("expected non-empty CSRF token")
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options header to be set")
	}
}

func TestRouter_CORSHeadersApplied(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	origin := w.Result().Header.Get("Access-Control-Allow-Origin")
	if origin != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}

func TestRouter_RecoveryMiddleware_CatchesPanic(t *testing.T) {
	auth := authedMockService()
	// GetDetailでパニックを起こすゲートウェイを差し込む
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rl.Stop()

	deps := &RouterDeps{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionFinder:     auth,
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{},
		RateLimiter:       rl,
		AuthService:       auth,
		AuthConfig:        AuthHandlerConfig{},
		RecommendService:  &mockRecommendService{},
		PlantGateway: &mockPlantGateway{
			getDetailFn: func(ctx context.Context, plantID model.PlantID) (*model.DetailedPlant, error) {
				panic("boom")
			},
		},
		ImageFetcher:        &mockImageFetcher{},
		FavoritesService:    &mockFavoritesService{},
		NotificationService: &mockNotificationService{},
		FavoriteNotifier:    &mockFavoriteNotifier{},
		Metrics:             collector,
		Gatherer:            reg,
	}

	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/plants/12", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

func TestRouter_UnknownRoute_Returns404(t *testing.T) {
	router, rl := newTestRouter(t, &mockAuthService{})
	defer rl.Stop()

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// レート制限がルーター構成で有効なことを検証する。
func TestRouter_GeneralRateLimitApplied(t *testing.T) {
	auth := authedMockService()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// バースト2の小さなリミットで構成
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    2,
		ToggleRate:      1,
		ToggleBurst:     10,
		CleanupInterval: 1 * time.Minute,
	})
	defer rl.Stop()

	deps := &RouterDeps{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionFinder:     auth,
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{},
		RateLimiter:       rl,
		AuthService:       auth,
		AuthConfig:        AuthHandlerConfig{},
		RecommendService:  &mockRecommendService{},
		PlantGateway:      &mockPlantGateway{},
		ImageFetcher:      &mockImageFetcher{},
		FavoritesService: &mockFavoritesService{
			listFn: func() []model.FavoriteRecord { return []model.FavoriteRecord{} },
		},
		NotificationService: &mockNotificationService{},
		FavoriteNotifier:    &mockFavoriteNotifier{},
		Metrics:             collector,
		Gatherer:            reg,
	}

	router := NewRouter(deps)

	var lastStatus int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)
		lastStatus = w.Result().StatusCode
	}

	if lastStatus != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want %d", lastStatus, http.StatusTooManyRequests)
	}
}

func TestRouter_MetricsBodyContainsNamespace(t *testing.T) {
	auth := authedMockService()
	router, rl := newTestRouter(t, auth)
	defer rl.Stop()

	// サインインを1回実行してメトリクスを記録
	body := `{"email": "user@example.com", "password": "secret123"}`
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	loginW := httptest.NewRecorder()
	router.ServeHTTP(loginW, loginReq)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	b, _ := io.ReadAll(w.Result().Body)
	if !strings.Contains(string(b), "midori_sign_ins_total") {
		t.Error("metrics output should contain midori_sign_ins_total")
	}
}
