package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

// FavoritesServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoritesServiceInterface interface {
	Toggle(ctx context.Context, plant model.Plant) (bool, error)
	List() []model.FavoriteRecord
	Get(plantID model.PlantID) *model.FavoriteRecord
	IsFavorite(plantID model.PlantID) bool
}

// FavoriteNotifier はお気に入り追加時の通知発行のインターフェース。
type FavoriteNotifier interface {
	FavoriteAdded(plant model.Plant) model.Notification
}

// FavoritesHandler はお気に入り管理のHTTPハンドラー。
type FavoritesHandler struct {
	service  FavoritesServiceInterface
	notifier FavoriteNotifier
	metrics  metrics.MetricsCollector
}

// NewFavoritesHandler はFavoritesHandlerを生成する。
func NewFavoritesHandler(service FavoritesServiceInterface, notifier FavoriteNotifier, collector metrics.MetricsCollector) *FavoritesHandler {
	return &FavoritesHandler{
		service:  service,
		notifier: notifier,
		metrics:  collector,
	}
}

// toggleRequest はお気に入りトグルリクエストのボディ。
type toggleRequest struct {
	Plant model.Plant `json:"plant"`
}

// toggleResponse はお気に入りトグルのAPIレスポンス。
// 追加された場合のみrecordを含む。
type toggleResponse struct {
	Favorite bool                  `json:"favorite"`
	Record   *model.FavoriteRecord `json:"record,omitempty"`
}

// favoriteStatusResponse はお気に入り状態照会のAPIレスポンス。
type favoriteStatusResponse struct {
	Favorite bool `json:"favorite"`
}

// Toggle はお気に入りの追加/削除を切り替える。
// POST /api/favorites/toggle
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	added, err := h.service.Toggle(r.Context(), req.Plant)
	if err != nil {
		h.recordToggleFailure(err)
		handleServiceError(w, err)
		return
	}

	if added {
		h.metrics.RecordFavoriteToggle("add")
		h.notifier.FavoriteAdded(req.Plant)
	} else {
		h.metrics.RecordFavoriteToggle("remove")
	}

	resp := toggleResponse{Favorite: added}
	if added {
		resp.Record = h.service.Get(req.Plant.ID)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListFavorites はお気に入り一覧を返す。
// GET /api/favorites
func (h *FavoritesHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.List())
}

// GetFavoriteStatus は単一植物のお気に入り状態を返す。
// GET /api/favorites/{id}
func (h *FavoritesHandler) GetFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	plantID := model.PlantID(chi.URLParam(r, "id"))
	if !plantID.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlantError())
		return
	}

	writeJSON(w, http.StatusOK, favoriteStatusResponse{
		Favorite: h.service.IsFavorite(plantID),
	})
}

// recordToggleFailure はストア書き込み失敗をメトリクスに記録する。
func (h *FavoritesHandler) recordToggleFailure(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeStoreAccess {
		h.metrics.RecordStoreFailure("toggle")
	}
}
