package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"joyeria/pos/internal/api"
	"joyeria/pos/internal/cache"
	"joyeria/pos/internal/config"
	"joyeria/pos/internal/database"
	"joyeria/pos/internal/ledger"
	"joyeria/pos/internal/logger"
	"joyeria/pos/internal/migrations"
	"joyeria/pos/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer zl.Sync() //nolint:errcheck
	zl = zl.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		zl.Fatal("migrations failed", zap.Error(err))
	}
	if cfg.Auth.AdminPassword != "" {
		if err := seed.EnsureAdmin(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, zl); err != nil {
			zl.Fatal("admin bootstrap failed", zap.Error(err))
		}
	} else {
		zl.Warn("auth.admin_password not set, skipping admin bootstrap")
	}
	if _, err := seed.LoadProducts(db, cfg.Seed.ProductsCSV, zl); err != nil {
		zl.Error("product seed failed", zap.Error(err))
	}
	if _, err := seed.LoadCustomers(db, cfg.Seed.CustomersCSV, zl); err != nil {
		zl.Error("customer seed failed", zap.Error(err))
	}

	summaryCache, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Capacity: cfg.Cache.Capacity,
		Redis: cache.RedisConfig{
			Host:     cfg.Cache.RedisHost,
			Port:     cfg.Cache.RedisPort,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		},
	}, zl)
	if err != nil {
		zl.Fatal("cache setup failed", zap.Error(err))
	}
	defer summaryCache.Close()

	svc := ledger.NewService(db,
		ledger.WithLogger(zl.Named("ledger")),
		ledger.WithCache(summaryCache, cfg.Cache.SummaryTTL),
	)
	handler := api.New(db, svc, cfg.Auth.Secret, cfg.Auth.TokenTTL, zl.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zl.Info("register server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}
