package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/api"
	"github.com/olegkanal/taskapp/internal/auth"
	"github.com/olegkanal/taskapp/internal/db"
	"github.com/olegkanal/taskapp/internal/email"
	"github.com/olegkanal/taskapp/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := utils.MustNewLogger(cfg.Logging)
	defer logger.Sync()

	ctx := context.Background()

	store, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("mongo: failed to connect", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("mongo: close error", zap.Error(err))
		}
	}()

	if err := store.EnsureCollections(ctx); err != nil {
		logger.Fatal("mongo: ensure collections", zap.Error(err))
	}

	authService, err := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("failed to initialise auth service", zap.Error(err))
	}

	mailer := email.NewService(cfg.SMTP, logger)
	if !cfg.SMTP.Enabled() {
		logger.Warn("smtp not configured; welcome emails disabled")
	}

	router := setupRouter(authService, store, mailer, logger)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(authService *auth.Service, store *db.Mongo, mailer *email.Service, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(api.RequestLogger(logger), api.Recovery(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.NewHandler(authService, store, mailer, logger).RegisterRoutes(router)

	return router
}
