package ports

import (
	"context"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// ItemRepository reads and writes map items.
type ItemRepository interface {
	List(ctx context.Context) ([]domain.Item, error)
	ListByType(ctx context.Context, itemType domain.ItemType) ([]domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	// FindInBounds returns items whose geometry center lies inside bbox.
	FindInBounds(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error)
}

// ItemStore is an ItemRepository that also accepts bulk writes (the PostGIS mirror).
type ItemStore interface {
	ItemRepository
	UpsertBatch(ctx context.Context, items []domain.Item) error
}

// PlaceSource fetches points of interest from an external gazetteer.
type PlaceSource interface {
	FetchPOIs(ctx context.Context, bbox geospatial.BoundingBox, tag string) ([]domain.Item, error)
}
