package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// --- 共通モック・ヘルパー ---

// mockMetrics はMetricsCollectorの呼び出し回数を記録するモック実装。
type mockMetrics struct {
	mu            sync.Mutex
	gatewayCalls  int
	toggles       map[string]int
	storeFailures map[string]int
	signIns       map[bool]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		toggles:       make(map[string]int),
		storeFailures: make(map[string]int),
		signIns:       make(map[bool]int),
	}
}

func (m *mockMetrics) RecordGatewayRequest(api string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gatewayCalls++
}

func (m *mockMetrics) RecordGatewayLatency(api string, duration time.Duration) {}

func (m *mockMetrics) RecordFavoriteToggle(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toggles[action]++
}

func (m *mockMetrics) RecordStoreFailure(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeFailures[operation]++
}

func (m *mockMetrics) RecordSignIn(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signIns[success]++
}

func (m *mockMetrics) toggleCount(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toggles[action]
}

func (m *mockMetrics) storeFailureCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storeFailures[operation]
}

func (m *mockMetrics) signInCount(success bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signIns[success]
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
