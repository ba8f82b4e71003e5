// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/midori/internal/auth"
	"github.com/hitoshi/midori/internal/config"
	"github.com/hitoshi/midori/internal/docstore"
	"github.com/hitoshi/midori/internal/favorites"
	"github.com/hitoshi/midori/internal/gateway/plants"
	"github.com/hitoshi/midori/internal/gateway/weather"
	"github.com/hitoshi/midori/internal/handler"
	"github.com/hitoshi/midori/internal/identity"
	"github.com/hitoshi/midori/internal/imageproxy"
	"github.com/hitoshi/midori/internal/logger"
	"github.com/hitoshi/midori/internal/metrics"
	"github.com/hitoshi/midori/internal/middleware"
	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/notify"
	"github.com/hitoshi/midori/internal/recommend"
	"github.com/hitoshi/midori/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 認証基盤クライアントと認証サービス
	identClient := identity.NewClient(identity.Config{
		APIKey:   cfg.IdentityAPIKey,
		Endpoint: cfg.IdentityEndpoint,
	}, &http.Client{
		Timeout:   cfg.GatewayTimeout,
		Transport: metrics.NewInstrumentedTransport("identity", collector, nil),
	})

	authService := auth.NewService(identClient, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})

	// 3. ドキュメントストアとお気に入りサービス
	store := docstore.NewClient(cfg.IdentityProjectID, &http.Client{
		Timeout:   cfg.GatewayTimeout,
		Transport: metrics.NewInstrumentedTransport("docstore", collector, nil),
	}, slog.Default())
	store.SetEndpoint(cfg.DocstoreEndpoint)

	favService := favorites.NewService(store, authService)
	favService.Start()
	defer favService.Close()

	// 4. 通知サービス（サインアウトで通知もクリアする）
	notifier := notify.NewService(cfg.NotificationLimit)
	unsubscribe := authService.Subscribe(func(user *model.User) {
		if user == nil {
			notifier.Clear()
		}
	})
	defer unsubscribe()

	// 5. 外部APIゲートウェイとおすすめサービス
	weatherClient := weather.NewClient(cfg.WeatherAPIKey, &http.Client{
		Timeout:   cfg.GatewayTimeout,
		Transport: metrics.NewInstrumentedTransport("weather", collector, nil),
	}, slog.Default())
	weatherClient.SetEndpoint(cfg.WeatherEndpoint)

	plantClient := plants.NewClient(cfg.PlantAPIToken, &http.Client{
		Timeout:   cfg.GatewayTimeout,
		Transport: metrics.NewInstrumentedTransport("plants", collector, nil),
	}, slog.Default())
	plantClient.SetEndpoint(cfg.PlantEndpoint)

	recommendService := recommend.NewService(weatherClient, plantClient, notifier)

	// 6. 植物画像のSSRFガード付きプロキシ
	ssrfGuard := security.NewSSRFGuard()
	imageService := imageproxy.NewService(ssrfGuard, cfg.GatewayTimeout, cfg.ImageMaxSize)

	// 7. レート制限（configはreq/min単位なのでreq/secに変換する）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ToggleRate = rate.Limit(float64(cfg.RateLimitToggle) / 60.0)
	rateLimiterCfg.ToggleBurst = cfg.RateLimitToggle
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: cfg.CookieSecure},
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		RecommendService: recommendService,

		PlantGateway: plantClient,
		ImageFetcher: imageService,

		FavoritesService: favService,

		NotificationService: notifier,
		FavoriteNotifier:    notifier,

		Metrics:  collector,
		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
