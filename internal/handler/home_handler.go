package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/recommend"
)

// RecommendServiceInterface はホーム画面ハンドラーが必要とするサービスインターフェース。
type RecommendServiceInterface interface {
	ForLocation(ctx context.Context, lat, lon float64) (*recommend.HomeView, error)
}

// HomeHandler は現在地の天気とおすすめ植物のHTTPハンドラー。
type HomeHandler struct {
	service RecommendServiceInterface
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(service RecommendServiceInterface) *HomeHandler {
	return &HomeHandler{service: service}
}

// Home は現在地の天気とおすすめ植物を返す。
// 位置情報（lat/lon）がないか不正な場合は位置情報エラーを返す。
// GET /api/home?lat=&lon=
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseCoordinates(r)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewLocationPermissionDeniedError())
		return
	}

	view, err := h.service.ForLocation(r.Context(), lat, lon)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// parseCoordinates はクエリパラメータから緯度経度を取り出す。
// 欠落・数値以外・範囲外はいずれも位置情報なしとして扱う。
func parseCoordinates(r *http.Request) (lat, lon float64, ok bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}

	return lat, lon, true
}
