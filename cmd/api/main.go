package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-travel-booking/internal/api"
	"github.com/sanosuguru/go-travel-booking/internal/api/handler"
	custommiddleware "github.com/sanosuguru/go-travel-booking/internal/api/middleware"
	"github.com/sanosuguru/go-travel-booking/internal/application"
	"github.com/sanosuguru/go-travel-booking/internal/config"
	"github.com/sanosuguru/go-travel-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-travel-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-travel-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-travel-booking/internal/worker"
)

func main() {
	// 設定読み込み
	cfg := config.Load()

	// ロガー初期化
	logger.Set(logger.NewLogger(os.Getenv("APP_ENV")))
	defer func() { _ = logger.Sync() }()

	// メトリクス初期化
	m := metrics.Init()

	// PostgreSQL接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// Redis接続（分散ロックと空席キャッシュ用）
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()

	// リポジトリ
	tripRepo := postgres.NewTripRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	agencyRepo := postgres.NewAgencyRepository(db)
	txManager := postgres.NewTxManager(db)

	// Redisインフラ
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	// アプリケーションサービス
	bookingService := application.NewBookingService(
		txManager,
		bookingRepo,
		tripRepo,
		application.WithLockManager(lockManager),
		application.WithAvailabilityCache(availabilityCache),
		application.WithMetrics(m),
		application.WithLockRetry(cfg.Booking.LockTTL, cfg.Booking.LockRetries, cfg.Booking.LockRetryDelay),
		application.WithContentionRetry(cfg.Booking.ContentionRetries, cfg.Booking.ContentionRetryDelay),
	)
	bookingQueryService := application.NewBookingQueryService(bookingRepo, tripRepo)
	tripService := application.NewTripService(tripRepo, agencyRepo, bookingRepo, availabilityCache)
	agencyService := application.NewAgencyService(agencyRepo)

	// ハンドラー
	tripHandler := handler.NewTripHandler(tripService)
	bookingHandler := handler.NewBookingHandler(bookingService, bookingQueryService)
	agencyHandler := handler.NewAgencyHandler(agencyService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// バックグラウンドワーカー（旧形式の出発日時を正規化する）
	backfiller := worker.NewDepartureBackfiller(
		tripRepo,
		cfg.Worker.DepartureBackfillInterval,
		cfg.Worker.DepartureBackfillBatch,
		m,
	)
	go backfiller.Start(context.Background())

	// Echo設定
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	custommiddleware.SetupMiddleware(e)
	e.Use(custommiddleware.PrometheusMiddleware(m))

	// メトリクスエンドポイント（Basic認証付き）
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommiddleware.MetricsBasicAuth())

	// ルーティング
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	v1.POST("/agencies", agencyHandler.Create)
	v1.GET("/agencies/me", agencyHandler.GetMine)
	v1.GET("/agencies/:id", agencyHandler.GetByID)
	v1.PUT("/agencies/:id", agencyHandler.Update)

	v1.POST("/trips", tripHandler.Create)
	v1.GET("/trips", tripHandler.List)
	v1.GET("/trips/:id", tripHandler.GetByID)
	v1.PUT("/trips/:id", tripHandler.Update)
	v1.DELETE("/trips/:id", tripHandler.Delete)
	v1.GET("/trips/:id/availability", tripHandler.Availability)
	v1.GET("/trips/:id/bookings", bookingHandler.ListForTrip)

	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings", bookingHandler.ListForUser)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.PATCH("/bookings/:id/seats", bookingHandler.UpdateSeats)
	v1.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	v1.POST("/bookings/:id/payment", bookingHandler.MarkPayment)

	// サーバー起動
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	logger.Info("サーバーを起動しました", zap.String("port", cfg.Server.Port))

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	backfiller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
