package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/lokalconnect/internal/adapters/directus"
	"github.com/samirrijal/lokalconnect/internal/adapters/http"
	natsadapter "github.com/samirrijal/lokalconnect/internal/adapters/nats"
	"github.com/samirrijal/lokalconnect/internal/adapters/postgres"
	"github.com/samirrijal/lokalconnect/internal/adapters/valkey"
	"github.com/samirrijal/lokalconnect/internal/core/ports"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
	"github.com/samirrijal/lokalconnect/internal/pkg/config"
	"github.com/samirrijal/lokalconnect/internal/pkg/logging"
	"github.com/samirrijal/lokalconnect/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("lokal-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{ClusterResolution: cfg.Search.ClusterRes}

	// Database. Required when it is the content source, optional otherwise.
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		if cfg.Content.Source == config.SourcePostgres {
			log.Fatalf("database: %v", err)
		}
		slog.Warn("database unavailable", "error", err)
	} else {
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		deps.DB = db
	}

	// Content source
	var items ports.ItemRepository
	switch cfg.Content.Source {
	case config.SourcePostgres:
		items = postgres.NewItemRepo(db)
		deps.Content = db
	default:
		client := directus.NewClient(cfg.Content.BaseURL, cfg.Content.Token, time.Duration(cfg.Content.Timeout)*time.Second)
		items = directus.NewItemRepo(client, cfg.Content.Collection, time.Duration(cfg.Search.CacheTTL)*time.Second)
		deps.Content = client
	}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	// Use cases
	itemSvc := usecases.NewItemService(items, cache, publisher).WithSearchSettings(usecases.SearchSettings{
		DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Search.MaxRadiusKm,
		MaxLimit:        cfg.Search.MaxLimit,
		CacheTTL:        cfg.Search.CacheTTL,
	})
	deps.Items = itemSvc

	// Drop cached items changed by the syncer or other replicas
	if cache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeItemEvents(ctx, itemSvc.HandleItemEvent); err != nil {
				slog.Warn("subscribe item events failed", "error", err)
			}
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // 4 MB, polygons get large
		AppName:      "LokalConnect API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, X-Request-ID, Deprecation, Sunset",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "content_source", cfg.Content.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
