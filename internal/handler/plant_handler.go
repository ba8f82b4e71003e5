package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
)

// PlantGatewayInterface は植物ハンドラーが必要とする外部APIクライアントのインターフェース。
type PlantGatewayInterface interface {
	ListByHumidityRange(ctx context.Context, minHumidity, maxHumidity int) ([]model.Plant, error)
	ListByFloweringMonth(ctx context.Context, month string) ([]model.Plant, error)
	GetDetail(ctx context.Context, plantID model.PlantID) (*model.DetailedPlant, error)
}

// FavoriteChecker はお気に入り状態の参照に必要なインターフェース。
type FavoriteChecker interface {
	IsFavorite(plantID model.PlantID) bool
}

// ImageFetcher は植物画像の取得プロキシのインターフェース。
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// PlantHandler は植物検索・詳細のHTTPハンドラー。
type PlantHandler struct {
	gateway   PlantGatewayInterface
	favorites FavoriteChecker
	images    ImageFetcher
}

// NewPlantHandler はPlantHandlerを生成する。
func NewPlantHandler(gateway PlantGatewayInterface, favorites FavoriteChecker, images ImageFetcher) *PlantHandler {
	return &PlantHandler{
		gateway:   gateway,
		favorites: favorites,
		images:    images,
	}
}

// plantDetailResponse は植物詳細のAPIレスポンス。お気に入り状態を付加する。
type plantDetailResponse struct {
	model.DetailedPlant
	Favorite bool `json:"favorite"`
}

// ListPlants は植物一覧を検索する。
// flowering_monthがあれば開花月検索、なければ湿度レンジ検索として扱う。
// GET /api/plants?min_humidity=&max_humidity=
// GET /api/plants?flowering_month=
func (h *PlantHandler) ListPlants(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if month := query.Get("flowering_month"); month != "" {
		plants, err := h.gateway.ListByFloweringMonth(r.Context(), month)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plants)
		return
	}

	minHumidity, minErr := strconv.Atoi(query.Get("min_humidity"))
	maxHumidity, maxErr := strconv.Atoi(query.Get("max_humidity"))
	if minErr != nil || maxErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("min_humidityとmax_humidity、またはflowering_monthを指定してください"))
		return
	}

	plants, err := h.gateway.ListByHumidityRange(r.Context(), minHumidity, maxHumidity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, plants)
}

// GetPlant は植物詳細を取得する。お気に入り状態を付加して返す。
// GET /api/plants/{id}
func (h *PlantHandler) GetPlant(w http.ResponseWriter, r *http.Request) {
	plantID := model.PlantID(chi.URLParam(r, "id"))
	if !plantID.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlantError())
		return
	}

	detail, err := h.gateway.GetDetail(r.Context(), plantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if detail == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "PLANT_NOT_FOUND",
			Message:  "指定された植物が見つかりません。",
			Category: "plant",
			Action:   "植物IDを確認してください。",
		})
		return
	}

	writeJSON(w, http.StatusOK, plantDetailResponse{
		DetailedPlant: *detail,
		Favorite:      h.favorites.IsFavorite(detail.ID),
	})
}

// GetPlantImage は植物画像をSSRFガード付きで代理取得する。
// GET /api/plants/{id}/image
func (h *PlantHandler) GetPlantImage(w http.ResponseWriter, r *http.Request) {
	plantID := model.PlantID(chi.URLParam(r, "id"))
	if !plantID.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidPlantError())
		return
	}

	detail, err := h.gateway.GetDetail(r.Context(), plantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if detail == nil || detail.ImageURL == "" {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "PLANT_IMAGE_NOT_FOUND",
			Message:  "この植物の画像はありません。",
			Category: "plant",
			Action:   "別の植物をお試しください。",
		})
		return
	}

	body, contentType, err := h.images.Fetch(r.Context(), detail.ImageURL)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "IMAGE_FETCH_FAILED",
			Message:  "植物画像の取得に失敗しました。",
			Category: "plant",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
