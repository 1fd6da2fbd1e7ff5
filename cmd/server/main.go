package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"parallel/internal/config"
	"parallel/internal/db"
	"parallel/internal/router"
	"parallel/internal/services"
	"parallel/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 读取配置，缺少 JWT_SECRET 时直接退出
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg)
	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	if err := db.Migrate(conn); err != nil {
		logrus.WithError(err).Fatal("database migration failed")
	}

	ai := services.NewAIService(newGenerator(cfg), cfg.AITimeout).
		WithCache(utils.NewCache[string](cfg.AICacheSize, cfg.AICacheTTL))

	engine := router.New(router.Deps{
		DB:          conn,
		Auth:        services.NewAuthService(cfg.JWTSecret, cfg.AccessTokenTTL),
		AI:          ai,
		Recommender: services.NewRecommender(conn, ai),
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		logrus.Info("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AITimeout+5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("graceful shutdown failed")
		}
	}()

	logrus.WithField("port", cfg.Port).Info("Parallel server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("server stopped")
	}
	logrus.Info("Server closed")
}

// newGenerator 未配置 GEMINI_API_KEY 时返回 nil，AI 功能走降级文案
func newGenerator(cfg config.Config) services.Generator {
	if !cfg.AIEnabled() {
		logrus.Warn("GEMINI_API_KEY not set. AI features will return default responses.")
		return nil
	}
	gen, err := services.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logrus.WithError(err).Warn("Gemini client unavailable, AI features disabled")
		return nil
	}
	logrus.Infof("Gemini generator ready, model=%s", gen.Model())
	return gen
}

func setupLogging(cfg config.Config) {
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
