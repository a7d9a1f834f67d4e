package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/config"
	"github.com/macrolog/internal/db"
	"github.com/macrolog/internal/handler"
	"github.com/macrolog/internal/logging"
	"github.com/macrolog/internal/provider/openfoodfacts"
	"github.com/macrolog/internal/router"
	"github.com/macrolog/internal/service"
	"github.com/macrolog/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger := logging.Init(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	defer logging.Sync()

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("db_init_failed", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer db.Close()

	kv, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal("store_init_failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	profiles := service.NewProfileService(kv)
	ledger := service.NewLedgerService(kv, profiles)
	api := handler.NewAPI(handler.Services{
		Accounts:    service.NewAccountService(db.DB),
		Profiles:    profiles,
		Ledger:      ledger,
		Progress:    service.NewProgressService(ledger, profiles),
		Recipes:     service.NewRecipeService(kv),
		Preferences: service.NewPreferenceService(kv),
		AI: service.NewAINutritionService(service.AIClientConfig{
			Provider:        cfg.AIProvider,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
			OpenAIBaseURL:   cfg.OpenAIBaseURL,
			OpenAIModel:     cfg.OpenAIModel,
			DeepSeekAPIKey:  cfg.DeepSeekAPIKey,
			DeepSeekBaseURL: cfg.DeepSeekBaseURL,
			DeepSeekModel:   cfg.DeepSeekModel,
		}),
		Barcodes: service.NewBarcodeService(openfoodfacts.NewClient(cfg.OpenFoodFactsBaseURL)),
	})

	// 设置并运行 Gin 服务器
	gin.SetMode(cfg.GinMode)
	r := router.SetupRouter(router.Options{
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
		Health:        pingDatabase,
	}, api)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: service.AIRequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting_http_server",
			zap.String("addr", cfg.ListenAddr),
			zap.String("store", cfg.StoreBackend),
			zap.String("ai_provider", cfg.AIProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down_server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_forced_shutdown", zap.Error(err))
	}
	logger.Info("server_stopped")
}

// openStore 按配置选择键值存储后端
func openStore(cfg config.AppConfig) (store.Store, func(), error) {
	if cfg.StoreBackend == config.StoreBackendRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return store.NewSQLStore(db.DB), func() {}, nil
}

func pingDatabase() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
