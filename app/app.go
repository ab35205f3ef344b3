package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"tool_custody/assistant"
	"tool_custody/config"
	"tool_custody/custody"
	"tool_custody/db"
	"tool_custody/export"
	"tool_custody/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router   *gin.Engine
	RDB      *redis.Client
	Store    db.Store
	Engine   *custody.Engine
	Reporter *assistant.Reporter
	Archiver export.Archiver
	Metrics  *Metrics
	Location *time.Location
	Config   config.Config

	// InstanceID keys per-process state kept in Redis.
	InstanceID string

	appSess  *session.AppSessionStore
	throttle *session.LoginThrottle
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }
func (a *App) Throttle() *session.LoginThrottle { return a.throttle }

// MustNew connects Redis and the configured store, or exits.
func MustNew(cfg config.Config) *App {
	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- Store ---
	var store db.Store
	switch cfg.StoreDriver {
	case "memory":
		config.Warning("using in-memory store; data is lost on restart")
		store = db.NewMemStore()
	default:
		gdb, err := db.ConnectDB(cfg)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		store = db.NewRepo(gdb, db.NewChangeFeed(rdb))
	}

	a, err := New(context.Background(), cfg, store, rdb)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	return a
}

// New wires the engine, sessions and router around an existing store.
func New(ctx context.Context, cfg config.Config, store db.Store, rdb *redis.Client) (*App, error) {
	metrics := NewMetrics()
	engine := custody.New(store,
		custody.WithDefaultPassword(cfg.DefaultTrainerPassword),
		custody.WithDefaultCategory(cfg.DefaultCategory),
		custody.WithObserver(metrics.ObserveOp),
	)

	var reporter *assistant.Reporter
	gen, err := assistant.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	switch {
	case err != nil:
		config.Error("assistant disabled: %v", err)
		reporter = assistant.NewReporter(nil, cfg.ReportLanguage)
	case gen == nil:
		reporter = assistant.NewReporter(nil, cfg.ReportLanguage)
	default:
		reporter = assistant.NewReporter(gen, cfg.ReportLanguage)
	}

	archiver, err := export.NewArchiver(ctx, cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("backup archiver: %w", err)
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	r.Use(metrics.Middleware())

	return &App{
		Router:     r,
		RDB:        rdb,
		Store:      store,
		Engine:     engine,
		Reporter:   reporter,
		Archiver:   archiver,
		Metrics:    metrics,
		Location:   cfg.Location(),
		Config:     cfg,
		InstanceID: uuid.NewString(),
		appSess:    session.NewAppSessionStore(rdb, cfg.SessionTTL),
		throttle:   session.NewLoginThrottle(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow),
	}, nil
}

func (a *App) Close() { _ = a.RDB.Close() }
