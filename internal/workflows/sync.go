package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
)

// SyncInput is the input for the item sync workflow.
type SyncInput struct {
	// ItemTypes limits the sync; empty means every type.
	ItemTypes []domain.ItemType
}

// ItemSyncWorkflow copies content API items into the spatial store and
// announces them. A failed announce is logged but does not fail the sync,
// since the items are already stored.
func ItemSyncWorkflow(ctx workflow.Context, input SyncInput) (domain.SyncReport, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting item sync workflow", "types", input.ItemTypes)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var report domain.SyncReport

	// Step 1: Fetch from the content API
	var items []domain.Item
	if err := workflow.ExecuteActivity(ctx, "FetchContentItems", input.ItemTypes).Get(ctx, &items); err != nil {
		return report, err
	}
	report.Fetched = len(items)

	// Step 2: Validate and upsert
	var stored StoreResult
	if err := workflow.ExecuteActivity(ctx, "StoreItems", items).Get(ctx, &stored); err != nil {
		return report, err
	}
	report.Stored = len(stored.Stored)
	report.Rejected = stored.Rejected

	// Step 3: Announce
	if err := workflow.ExecuteActivity(ctx, "PublishSyncedItems", stored.Stored).Get(ctx, nil); err != nil {
		logger.Warn("announcing synced items failed", "error", err)
	}

	logger.Info("Item sync finished", "fetched", report.Fetched, "stored", report.Stored, "rejected", report.Rejected)
	return report, nil
}
