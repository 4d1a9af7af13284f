package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/ports"
	"github.com/samirrijal/lokalconnect/internal/pkg/metrics"
	"github.com/samirrijal/lokalconnect/internal/pkg/telemetry"
)

// SyncService mirrors content API items into the spatial store.
type SyncService struct {
	source    ports.ItemRepository
	store     ports.ItemStore
	publisher ports.EventPublisher
}

// NewSyncService creates a new SyncService. publisher may be nil.
func NewSyncService(source ports.ItemRepository, store ports.ItemStore, publisher ports.EventPublisher) *SyncService {
	return &SyncService{source: source, store: store, publisher: publisher}
}

// Fetch reads items from the source, all of them when types is empty.
func (s *SyncService) Fetch(ctx context.Context, types []domain.ItemType) ([]domain.Item, error) {
	if len(types) == 0 {
		items, err := s.source.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list source items: %w", err)
		}
		return items, nil
	}

	var items []domain.Item
	for _, t := range types {
		batch, err := s.source.ListByType(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list source items of type %s: %w", t, err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

// Partition splits items into those that pass ValidateItem and a rejected count.
func (s *SyncService) Partition(ctx context.Context, items []domain.Item) ([]domain.Item, int) {
	valid := make([]domain.Item, 0, len(items))
	rejected := 0
	for i := range items {
		if err := ValidateItem(&items[i]); err != nil {
			rejected++
			slog.WarnContext(ctx, "rejecting item", "item_id", items[i].ID, "error", err)
			continue
		}
		valid = append(valid, items[i])
	}
	return valid, rejected
}

// Store upserts items into the spatial store.
func (s *SyncService) Store(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.store.UpsertBatch(ctx, items); err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}
	metrics.ItemsSynced.Add(float64(len(items)))
	return nil
}

// Announce publishes an updated event per item.
func (s *SyncService) Announce(ctx context.Context, items []domain.Item) error {
	if s.publisher == nil {
		return nil
	}
	now := time.Now().UTC()
	for _, item := range items {
		event := &domain.ItemEvent{Kind: domain.ItemUpdated, Item: item, Time: now}
		if err := s.publisher.PublishItemEvent(ctx, event); err != nil {
			return fmt.Errorf("publish item %s: %w", item.ID, err)
		}
	}
	return nil
}

// Run performs fetch, validation, storage and announcement in one pass,
// without a workflow engine. A failed announcement is logged only, since the
// items are already stored.
func (s *SyncService) Run(ctx context.Context, types []domain.ItemType) (report domain.SyncReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SyncService.Run")
	defer func() {
		span.SetAttributes(
			telemetry.AttrSyncFetched.Int(report.Fetched),
			telemetry.AttrSyncRejected.Int(report.Rejected),
		)
		telemetry.EndSpan(span, err)
	}()

	items, err := s.Fetch(ctx, types)
	if err != nil {
		return report, err
	}
	report.Fetched = len(items)

	valid, rejected := s.Partition(ctx, items)
	report.Rejected = rejected

	if err = s.Store(ctx, valid); err != nil {
		return report, err
	}
	report.Stored = len(valid)

	if aerr := s.Announce(ctx, valid); aerr != nil {
		slog.WarnContext(ctx, "announce synced items failed", "error", aerr)
	}
	return report, nil
}
