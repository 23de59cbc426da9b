package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"strangerchat/backend/internal/api/handler"
	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/config"
	"strangerchat/backend/internal/localization"
	"strangerchat/backend/internal/logger"
	"strangerchat/backend/internal/persona"
	"strangerchat/backend/internal/storage"
	"strangerchat/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// setupDependencies connects the optional backends. Either may come back nil.
func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		var err error
		if db, err = storage.OpenPostgres(cfg.DatabaseDSN); err != nil {
			zap.L().Fatal("failed to connect PostgreSQL", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		var err error
		if rdb, err = storage.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			zap.L().Fatal("failed to connect Redis", zap.Error(err))
		}
	}

	zap.L().Info("dependencies ready", zap.Bool("postgres", db != nil), zap.Bool("redis", rdb != nil))
	return db, rdb
}

func hubOptions(cfg *config.Config) chathub.Options {
	return chathub.Options{
		FallbackWait:  cfg.MatchFallbackWait,
		StaleAfter:    cfg.StaleAfter,
		SweepInterval: cfg.SweepInterval,
		Strict:        cfg.Mode == config.ModeDev,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()

	if cfg.Mode == config.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, rdb := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db, rdb)

	opts := hubOptions(cfg)
	var pool *storage.WorkerPool
	if db != nil || rdb != nil {
		pool = storage.NewWorkerPool(cfg.ArchiveWorkers, cfg.ArchiveBuffer)
		opts.Observer = storage.NewArchiver(s, pool)
	}

	if cfg.Persona.Enabled {
		responder, err := persona.NewResponder(cfg.Persona.Name)
		if err != nil {
			zap.L().Fatal("build persona responder", zap.Error(err))
		}
		opts.Persona = chathub.PersonaOptions{
			Enabled:    true,
			Name:       cfg.Persona.Name,
			Replier:    responder,
			ReplyDelay: persona.TypingDelay(cfg.Persona.ReplyMinDelay, cfg.Persona.ReplyMaxDelay),
		}
	}

	// 2. Hub
	hub := chathub.NewManagerService(opts)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	// 3. Telegram
	if cfg.TelegramBotToken != "" {
		localizer, err := localization.NewLocalizer(cfg.LocalesDir)
		if err != nil {
			zap.L().Fatal("failed to create localizer", zap.Error(err))
		}
		bot, err := telegram.NewBotService(cfg.TelegramBotToken, hub, s, localizer, telegram.Options{
			GuestFilterEnabled: cfg.GuestFilterEnabled,
		})
		if err != nil {
			zap.L().Fatal("failed to start telegram bot", zap.Error(err))
		}
		go bot.Run(ctx)
	}

	// 4. HTTP
	h := handler.NewHandler(hub, s, handler.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), handler.Options{
		GuestFilterEnabled: cfg.GuestFilterEnabled,
		SendBuffer:         cfg.SendBuffer,
	})
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewRouter(h),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zap.L().Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", cfg.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("http shutdown", zap.Error(err))
	}
	<-hubDone
	if pool != nil {
		pool.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
