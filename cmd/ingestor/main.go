package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/samirrijal/lokalconnect/internal/adapters/osm"
	"github.com/samirrijal/lokalconnect/internal/adapters/postgres"
	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/ports"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
	"github.com/samirrijal/lokalconnect/internal/pkg/config"
	"github.com/samirrijal/lokalconnect/internal/pkg/logging"
)

type Options struct {
	Manifest    string   `short:"m" long:"manifest" description:"Path to the YAML source manifest" default:"manifest.yaml"`
	Only        []string `short:"s" long:"source" description:"Import only the named source (repeatable)"`
	Concurrency int      `short:"c" long:"concurrency" description:"Sources imported in parallel" default:"4"`
	DryRun      bool     `short:"n" long:"dry-run" description:"Validate and count items without writing"`
}

// ingester imports manifest sources into the spatial store.
type ingester struct {
	store  ports.ItemStore
	places ports.PlaceSource
	dryRun bool
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load("lokal-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	manifest, err := LoadManifest(opts.Manifest)
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}
	sources, err := manifest.Select(opts.Only)
	if err != nil {
		log.Fatalf("manifest: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ing := &ingester{
		places: osm.NewSource(cfg.Overpass.Endpoint, time.Duration(cfg.Overpass.Timeout)*time.Second),
		dryRun: opts.DryRun,
	}
	if !opts.DryRun {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		ing.store = postgres.NewItemRepo(db)
	}

	slog.Info("LokalConnect ingestor starting", "sources", len(sources), "dry_run", opts.DryRun)

	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, opts.Concurrency)

	for _, src := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := ing.ingest(ctx, s)
			if err != nil {
				slog.Error("source failed", "source", s.Name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			slog.Info("source imported", "source", s.Name,
				"fetched", report.Fetched, "stored", report.Stored, "rejected", report.Rejected)
		}(src)
	}

	wg.Wait()
	if failed > 0 {
		slog.Error("ingestion finished with failures", "failed", failed)
		os.Exit(1)
	}
	slog.Info("ingestion complete")
}

// ingest loads one source, drops invalid items and upserts the rest.
func (ing *ingester) ingest(ctx context.Context, s Source) (domain.SyncReport, error) {
	var report domain.SyncReport

	items, err := ing.load(ctx, s)
	if err != nil {
		return report, err
	}
	report.Fetched = len(items)

	valid := make([]domain.Item, 0, len(items))
	for i := range items {
		if err := usecases.ValidateItem(&items[i]); err != nil {
			slog.Warn("rejecting item", "source", s.Name, "item_id", items[i].ID, "error", err)
			report.Rejected++
			continue
		}
		valid = append(valid, items[i])
	}

	if ing.dryRun || len(valid) == 0 {
		return report, nil
	}
	if err := ing.store.UpsertBatch(ctx, valid); err != nil {
		return report, fmt.Errorf("upsert: %w", err)
	}
	report.Stored = len(valid)
	return report, nil
}

func (ing *ingester) load(ctx context.Context, s Source) ([]domain.Item, error) {
	if s.Overpass != nil {
		return ing.places.FetchPOIs(ctx, s.Overpass.Bounds(), s.Overpass.Tag)
	}
	data, err := os.ReadFile(s.GeoJSON)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.GeoJSON, err)
	}
	return decodeFeatures(s.Name, data, s.ItemType)
}
