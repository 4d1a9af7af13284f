package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/lokalconnect/internal/adapters/directus"
	natsadapter "github.com/samirrijal/lokalconnect/internal/adapters/nats"
	"github.com/samirrijal/lokalconnect/internal/adapters/postgres"
	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/ports"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
	"github.com/samirrijal/lokalconnect/internal/pkg/config"
	"github.com/samirrijal/lokalconnect/internal/pkg/logging"
	"github.com/samirrijal/lokalconnect/internal/pkg/telemetry"
	"github.com/samirrijal/lokalconnect/internal/workflows"
)

type Options struct {
	Once  bool     `long:"once" description:"Run a single sync, wait for it and exit"`
	Local bool     `long:"local" description:"Run a single sync in-process, without Temporal"`
	Cron  string   `long:"cron" description:"Start a recurring sync on this cron schedule, e.g. \"*/15 * * * *\""`
	Types []string `short:"t" long:"type" description:"Only sync this item type (repeatable)"`
}

const cronWorkflowID = "item-sync-cron"

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load("lokal-syncer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	input := workflows.SyncInput{}
	for _, t := range opts.Types {
		it := domain.ItemType(t)
		if !it.Valid() {
			log.Fatalf("unknown item type %q", t)
		}
		input.ItemTypes = append(input.ItemTypes, it)
	}

	// Content API source and Postgres store
	contentClient := directus.NewClient(cfg.Content.BaseURL, cfg.Content.Token, time.Duration(cfg.Content.Timeout)*time.Second)
	source := directus.NewItemRepo(contentClient, cfg.Content.Collection, 0)

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, synced items will not be announced", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	syncSvc := usecases.NewSyncService(source, postgres.NewItemRepo(db), publisher)

	if opts.Local {
		report, err := syncSvc.Run(ctx, input.ItemTypes)
		if err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		slog.Info("sync finished", "fetched", report.Fetched, "stored", report.Stored, "rejected", report.Rejected)
		return
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ItemSyncWorkflow)
	w.RegisterActivity(&workflows.SyncActivities{Sync: syncSvc})

	if opts.Once {
		if err := w.Start(); err != nil {
			log.Fatalf("worker: %v", err)
		}
		defer w.Stop()

		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "item-sync-" + time.Now().UTC().Format("20060102T150405"),
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.ItemSyncWorkflow, input)
		if err != nil {
			log.Fatalf("start workflow: %v", err)
		}

		var report domain.SyncReport
		if err := run.Get(ctx, &report); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		slog.Info("sync finished", "fetched", report.Fetched, "stored", report.Stored, "rejected", report.Rejected)
		return
	}

	if opts.Cron != "" {
		_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:           cronWorkflowID,
			TaskQueue:    cfg.Temporal.TaskQueue,
			CronSchedule: opts.Cron,
		}, workflows.ItemSyncWorkflow, input)
		if err != nil {
			slog.Warn("cron workflow not started, it may already be running", "error", err)
		} else {
			slog.Info("cron sync scheduled", "schedule", opts.Cron)
		}
	}

	slog.Info("syncer worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
