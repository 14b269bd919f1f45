package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/proteinpath/protein-path-go/internal/config"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/handler"
	"github.com/proteinpath/protein-path-go/internal/imagestore"
	"github.com/proteinpath/protein-path-go/internal/middleware"
	"github.com/proteinpath/protein-path-go/internal/repository"
	"github.com/proteinpath/protein-path-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	slog.SetDefault(cfg.Logger())

	ctx := context.Background()

	db, dialect, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	provider, err := estimate.NewProvider(cfg.Estimation)
	if err != nil {
		slog.Error("invalid estimation provider", "error", err)
		os.Exit(1)
	}
	estimator := estimate.NewClient(provider, cfg.Estimation.Timeout)

	var images imagestore.Store = imagestore.DataURIStore{}
	if cfg.Images.Bucket != "" {
		s3Store, err := imagestore.NewS3Store(ctx, cfg.Images.Bucket, cfg.Images.Region, cfg.Images.PublicURL)
		if err != nil {
			slog.Error("image storage unavailable", "bucket", cfg.Images.Bucket, "error", err)
			os.Exit(1)
		}
		images = s3Store
	}

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	authHandler := handler.NewAuthHandler(authService)

	mealService := service.NewMealService(repository.NewMealRepository(db), middleware.ContextIdentity{}, estimator, images, cfg.Timezone)
	goalStore := service.NewGoalStore(repository.NewKVStore(db, dialect))
	mealHandler := handler.NewMealHandler(mealService, goalStore)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(authHandler, mealHandler, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "db", dialect, "estimation", provider.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
