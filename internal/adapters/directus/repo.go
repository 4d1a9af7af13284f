package directus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// ItemRepo implements ports.ItemRepository against a content collection.
// Bounds queries are answered from an in-memory R-tree that is rebuilt from
// a full listing once it is older than the refresh interval or after a write.
type ItemRepo struct {
	client     *Client
	collection string
	refresh    time.Duration

	mu      sync.Mutex
	index   *Index
	builtAt time.Time
	now     func() time.Time
}

// NewItemRepo creates a repo over collection with the given index refresh interval.
func NewItemRepo(client *Client, collection string, refresh time.Duration) *ItemRepo {
	return &ItemRepo{client: client, collection: collection, refresh: refresh, now: time.Now}
}

func (r *ItemRepo) itemsPath() string {
	return "/items/" + url.PathEscape(r.collection)
}

func (r *ItemRepo) itemPath(id string) string {
	return r.itemsPath() + "/" + url.PathEscape(id)
}

// List returns every item in the collection.
func (r *ItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := r.client.do(ctx, "list", fasthttp.MethodGet, r.itemsPath(), map[string]string{"limit": "-1"}, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByType returns items whose item_type equals itemType.
func (r *ItemRepo) ListByType(ctx context.Context, itemType domain.ItemType) ([]domain.Item, error) {
	query := map[string]string{
		"limit":                   "-1",
		"filter[item_type][_eq]": string(itemType),
	}
	var items []domain.Item
	if err := r.client.do(ctx, "list_by_type", fasthttp.MethodGet, r.itemsPath(), query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID returns one item or domain.ErrNotFound.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := r.client.do(ctx, "get", fasthttp.MethodGet, r.itemPath(id), nil, nil, &item); err != nil {
		return nil, notFound(id, err)
	}
	return &item, nil
}

// Create stores item and copies the server-assigned fields back into it.
func (r *ItemRepo) Create(ctx context.Context, item *domain.Item) error {
	var created domain.Item
	if err := r.client.do(ctx, "create", fasthttp.MethodPost, r.itemsPath(), nil, item, &created); err != nil {
		return err
	}
	if created.ID != "" {
		item.ID = created.ID
	}
	r.invalidate()
	return nil
}

// Update replaces the mutable fields of an existing item.
func (r *ItemRepo) Update(ctx context.Context, item *domain.Item) error {
	body := struct {
		Title    string              `json:"title"`
		ItemType domain.ItemType     `json:"item_type"`
		Geometry geospatial.Geometry `json:"geometry"`
		Address  string              `json:"address"`
	}{item.Title, item.ItemType, item.Geometry, item.Address}
	if err := r.client.do(ctx, "update", fasthttp.MethodPatch, r.itemPath(item.ID), nil, body, nil); err != nil {
		return notFound(item.ID, err)
	}
	r.invalidate()
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, "delete", fasthttp.MethodDelete, r.itemPath(id), nil, nil, nil); err != nil {
		return notFound(id, err)
	}
	r.invalidate()
	return nil
}

// FindInBounds returns items whose center lies in bbox, ordered by title.
func (r *ItemRepo) FindInBounds(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
	idx, err := r.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	items := idx.Search(bbox)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

func (r *ItemRepo) currentIndex(ctx context.Context) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index != nil && r.now().Sub(r.builtAt) < r.refresh {
		return r.index, nil
	}

	items, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("build spatial index: %w", err)
	}
	r.index = NewIndex(items)
	r.builtAt = r.now()
	if n := r.index.Skipped(); n > 0 {
		slog.WarnContext(ctx, "items without usable geometry left out of index", "count", n)
	}
	return r.index, nil
}

func (r *ItemRepo) invalidate() {
	r.mu.Lock()
	r.index = nil
	r.mu.Unlock()
}

// notFound maps the API's missing-item responses onto domain.ErrNotFound.
// Directus answers 403 for ids that do not exist.
func notFound(id string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == fasthttp.StatusNotFound || apiErr.Status == fasthttp.StatusForbidden) {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return err
}
