package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ホーム（天気+おすすめ）
	RecommendService RecommendServiceInterface

	// 植物検索・詳細・画像
	PlantGateway PlantGatewayInterface
	ImageFetcher ImageFetcher

	// お気に入り
	FavoritesService FavoritesServiceInterface

	// 通知
	NotificationService NotificationServiceInterface
	FavoriteNotifier    FavoriteNotifier

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → [Session → RateLimit(General) → CSRF]
//
// 認証ルート（/auth/*）、/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	homeHandler := NewHomeHandler(deps.RecommendService)
	plantHandler := NewPlantHandler(deps.PlantGateway, deps.FavoritesService, deps.ImageFetcher)
	favHandler := NewFavoritesHandler(deps.FavoritesService, deps.FavoriteNotifier, deps.Metrics)
	notifHandler := NewNotificationHandler(deps.NotificationService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ホーム画面（天気+おすすめ植物）
		r.Get("/api/home", homeHandler.Home)

		// 植物検索・詳細
		r.Route("/api/plants", func(r chi.Router) {
			r.Get("/", plantHandler.ListPlants)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", plantHandler.GetPlant)
				r.Get("/image", plantHandler.GetPlantImage)
			})
		})

		// お気に入り管理
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favHandler.ListFavorites)

			// POST /api/favorites/toggle - トグル専用レート制限を追加
			r.With(deps.RateLimiter.ToggleMiddleware()).Post("/toggle", favHandler.Toggle)

			r.Get("/{id}", favHandler.GetFavoriteStatus)
		})

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notifHandler.ListNotifications)
			r.Get("/{id}/target", notifHandler.GetNotificationTarget)
		})
	})

	return r
}
