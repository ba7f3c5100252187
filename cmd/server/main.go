package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"              // Optional .env loading
	"github.com/labstack/echo/v4"           // Echo web framework
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/notes-service/internal/config"     // Internal config loader
	"github.com/iliyamo/notes-service/internal/database"   // MongoDB connection
	"github.com/iliyamo/notes-service/internal/handler"    // HTTP handlers
	"github.com/iliyamo/notes-service/internal/logger"     // Structured logger
	"github.com/iliyamo/notes-service/internal/middleware" // Cache and rate limit
	"github.com/iliyamo/notes-service/internal/queue"      // note.created consumer
	"github.com/iliyamo/notes-service/internal/repository" // Notes repository
	"github.com/iliyamo/notes-service/internal/router"     // Route registration
	"github.com/iliyamo/notes-service/internal/service"    // note.created publisher
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; real env vars win

	cfg := config.Load()
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Open(ctx, cfg.MongoURI)
	if err != nil {
		zl.Fatal("failed to connect to MongoDB", zap.Error(err)) // no retry: startup is fatal
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := repository.NewNoteRepo(database.Collection(client, cfg.DBName, cfg.Collection))
	notes := &handler.NoteHandler{
		Repo:       repo,
		Database:   cfg.DBName,
		Collection: cfg.Collection,
		Log:        zl,
	}

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if cacheCfg.Enabled || rlCfg.Enabled {
		if rdb = config.NewRedisClient(config.RedisOptions()); rdb == nil {
			zl.Warn("redis unreachable; cache and rate limiting disabled")
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	evCfg := config.LoadEventsConfig()
	if evCfg.Enabled {
		notes.Events = service.NewNotePublisher(evCfg, zl)
		go func() {
			if err := queue.StartNoteConsumer(ctx, evCfg, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("note consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	router.UseGlobal(e, zl)
	router.RegisterRoutes(e)
	cache := middleware.NewNotesCache(cacheCfg, rdb, zl)
	router.RegisterNotes(e, notes, router.Middleware{
		RateLimit:   middleware.NewTokenBucket(rlCfg, rdb, zl),
		ReadCache:   cache.Read(),
		PurgeOnSave: cache.Invalidate(),
	})

	go func() {
		zl.Info("server running",
			zap.String("url", "http://localhost:"+cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("database", cfg.DBName),
			zap.String("collection", cfg.Collection),
		)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown error", zap.Error(err))
	}
}
