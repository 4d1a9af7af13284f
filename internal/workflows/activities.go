package workflows

import (
	"context"
	"log/slog"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
)

// SyncActivities holds the activity implementations for the item sync workflow.
type SyncActivities struct {
	Sync *usecases.SyncService
}

// StoreResult is what StoreItems hands to the announce step.
type StoreResult struct {
	Stored   []domain.Item
	Rejected int
}

// FetchContentItems reads items from the content API.
func (a *SyncActivities) FetchContentItems(ctx context.Context, types []domain.ItemType) ([]domain.Item, error) {
	return a.Sync.Fetch(ctx, types)
}

// StoreItems drops items that fail validation and upserts the rest.
func (a *SyncActivities) StoreItems(ctx context.Context, items []domain.Item) (StoreResult, error) {
	valid, rejected := a.Sync.Partition(ctx, items)
	if err := a.Sync.Store(ctx, valid); err != nil {
		return StoreResult{}, err
	}
	slog.InfoContext(ctx, "items stored", "stored", len(valid), "rejected", rejected)
	return StoreResult{Stored: valid, Rejected: rejected}, nil
}

// PublishSyncedItems announces stored items on the event stream.
func (a *SyncActivities) PublishSyncedItems(ctx context.Context, items []domain.Item) error {
	return a.Sync.Announce(ctx, items)
}
