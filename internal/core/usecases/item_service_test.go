package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/usecases"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// --- Mock ItemRepository ---

type mockItemRepo struct {
	listFn         func(ctx context.Context) ([]domain.Item, error)
	listByTypeFn   func(ctx context.Context, t domain.ItemType) ([]domain.Item, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Item, error)
	createFn       func(ctx context.Context, item *domain.Item) error
	updateFn       func(ctx context.Context, item *domain.Item) error
	deleteFn       func(ctx context.Context, id string) error
	findInBoundsFn func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error)
	upsertBatchFn  func(ctx context.Context, items []domain.Item) error
}

func (m *mockItemRepo) List(ctx context.Context) ([]domain.Item, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockItemRepo) ListByType(ctx context.Context, t domain.ItemType) ([]domain.Item, error) {
	if m.listByTypeFn != nil {
		return m.listByTypeFn(ctx, t)
	}
	return nil, nil
}

func (m *mockItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
}

func (m *mockItemRepo) Create(ctx context.Context, item *domain.Item) error {
	if m.createFn != nil {
		return m.createFn(ctx, item)
	}
	return nil
}

func (m *mockItemRepo) Update(ctx context.Context, item *domain.Item) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, item)
	}
	return nil
}

func (m *mockItemRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockItemRepo) FindInBounds(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
	if m.findInBoundsFn != nil {
		return m.findInBoundsFn(ctx, bbox)
	}
	return nil, nil
}

func (m *mockItemRepo) UpsertBatch(ctx context.Context, items []domain.Item) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, items)
	}
	return nil
}

// --- Mock cache and publisher ---

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	c.sets++
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type mockPublisher struct {
	events []domain.ItemEvent
	err    error
}

func (p *mockPublisher) PublishItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *event)
	return nil
}

func point(id string, t domain.ItemType, lng, lat float64) domain.Item {
	return domain.Item{ID: id, Title: "Item " + id, ItemType: t, Geometry: geospatial.NewPoint(lng, lat)}
}

// --- Tests ---

func TestItemService_Nearby(t *testing.T) {
	var gotBBox geospatial.BoundingBox
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			gotBBox = bbox
			return []domain.Item{
				point("far", domain.ItemTypeEvent, 13.45, 52.52),
				point("near", domain.ItemTypeEvent, 13.41, 52.52),
				point("corner", domain.ItemTypeEvent, 13.47, 52.56), // inside the box, outside the circle
			}, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(13.405, 52.52), 5, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "near" || items[1].ID != "far" {
		t.Errorf("expected near before far, got %s, %s", items[0].ID, items[1].ID)
	}
	if items[0].Distance == nil || *items[0].Distance <= 0 {
		t.Error("expected distance to be set")
	}
	if !gotBBox.Contains(geospatial.Position{13.405, 52.52}) {
		t.Errorf("prefilter box %v does not contain the center", gotBBox)
	}
}

func TestItemService_Nearby_DefaultRadius(t *testing.T) {
	var gotBBox geospatial.BoundingBox
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			gotBBox = bbox
			return nil, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	if _, err := svc.Nearby(context.Background(), geospatial.NewPoint(0, 0), 0, nil, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := geospatial.NewBoundingBox(geospatial.NewPoint(0, 0), usecases.DefaultSearchSettings.DefaultRadiusKm)
	if gotBBox != want {
		t.Errorf("expected default radius box %v, got %v", want, gotBBox)
	}
}

func TestItemService_Nearby_Limit(t *testing.T) {
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			var items []domain.Item
			for i := 0; i < 10; i++ {
				items = append(items, point(fmt.Sprint(i), domain.ItemTypePOI, float64(i)*0.001, 0))
			}
			return items, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(0, 0), 5, nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 || items[0].ID != "0" || items[2].ID != "2" {
		t.Errorf("expected the 3 nearest items, got %+v", items)
	}
}

func TestItemService_Nearby_SkipsBadGeometry(t *testing.T) {
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			return []domain.Item{
				{ID: "empty", Title: "Empty", ItemType: domain.ItemTypeTrack, Geometry: geospatial.LineString{}},
				{ID: "odd", Title: "Odd", ItemType: domain.ItemTypeArea, Geometry: geospatial.UnknownGeometry{Kind: "MultiPoint"}},
				point("ok", domain.ItemTypePOI, 0.001, 0),
			}, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(0, 0), 1, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "ok" {
		t.Errorf("expected only the valid item, got %+v", items)
	}
}

func TestItemService_Nearby_InvalidArguments(t *testing.T) {
	svc := usecases.NewItemService(&mockItemRepo{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		center geospatial.Point
		radius float64
		types  []domain.ItemType
	}{
		{"center out of range", geospatial.NewPoint(0, 91), 1, nil},
		{"radius too large", geospatial.NewPoint(0, 0), 1000, nil},
		{"radius not a number", geospatial.NewPoint(0, 0), math.NaN(), nil},
		{"unknown type", geospatial.NewPoint(0, 0), 1, []domain.ItemType{"ufo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Nearby(ctx, tt.center, tt.radius, tt.types, 10)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestItemService_Nearby_CacheHit(t *testing.T) {
	calls := 0
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			calls++
			return []domain.Item{point("a", domain.ItemTypeEvent, 0.001, 0)}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewItemService(repo, cache, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		items, err := svc.Nearby(ctx, geospatial.NewPoint(0, 0), 1, nil, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0].Distance == nil {
			t.Fatalf("unexpected result on call %d: %+v", i, items)
		}
	}
	if calls != 1 {
		t.Errorf("expected repository to be hit once, got %d", calls)
	}
}

// boundedRepo answers FindInBounds the way a spatial index would.
func boundedRepo(items ...domain.Item) (*mockItemRepo, *[]geospatial.BoundingBox) {
	var boxes []geospatial.BoundingBox
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			boxes = append(boxes, bbox)
			var out []domain.Item
			for _, item := range items {
				if c, err := item.Center(); err == nil && bbox.Contains(c.Coordinates) {
					out = append(out, item)
				}
			}
			return out, nil
		},
	}
	return repo, &boxes
}

func TestItemService_Nearby_AcrossAntimeridian(t *testing.T) {
	repo, boxes := boundedRepo(
		point("east", domain.ItemTypePOI, 179.97, 0),
		point("west", domain.ItemTypePOI, -179.98, 0),
		point("away", domain.ItemTypePOI, -179.5, 0),
	)
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(179.95, 0), 10, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "east" || items[1].ID != "west" {
		t.Fatalf("expected east then west, got %+v", items)
	}
	if *items[1].Distance > 10000 {
		t.Errorf("west item distance = %v, want within 10km", *items[1].Distance)
	}
	if len(*boxes) != 2 {
		t.Errorf("expected the search to be split in two boxes, got %v", *boxes)
	}
}

func TestItemService_Nearby_NearPole(t *testing.T) {
	repo, _ := boundedRepo(point("edge", domain.ItemTypePOI, 10.36, 85.034))
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(0, 85), 100, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "edge" {
		t.Errorf("expected the item on the circle edge, got %+v", items)
	}
}

func TestItemService_Nearby_ClampsLimit(t *testing.T) {
	var all []domain.Item
	for i := 0; i < 10; i++ {
		all = append(all, point(fmt.Sprint(i), domain.ItemTypePOI, float64(i)*0.001, 0))
	}
	repo, _ := boundedRepo(all...)
	settings := usecases.DefaultSearchSettings
	settings.MaxLimit = 4
	svc := usecases.NewItemService(repo, nil, nil).WithSearchSettings(settings)

	items, err := svc.Nearby(context.Background(), geospatial.NewPoint(0, 0), 5, nil, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 4 {
		t.Errorf("expected limit clamped to 4, got %d", len(items))
	}
}

func TestItemService_InBounds_TypeFilter(t *testing.T) {
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			return []domain.Item{
				point("e", domain.ItemTypeEvent, 1, 1),
				point("m", domain.ItemTypeMarketplace, 1, 1),
				point("g", domain.ItemTypeGroup, 1, 1),
			}, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	items, err := svc.InBounds(context.Background(), geospatial.BoundingBox{0, 0, 2, 2},
		[]domain.ItemType{domain.ItemTypeEvent, domain.ItemTypeGroup})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "e" || items[1].ID != "g" {
		t.Errorf("expected e and g, got %+v", items)
	}
}

func TestItemService_Clusters(t *testing.T) {
	repo := &mockItemRepo{
		findInBoundsFn: func(ctx context.Context, bbox geospatial.BoundingBox) ([]domain.Item, error) {
			return []domain.Item{
				point("a", domain.ItemTypeEvent, 13.41, 52.52),
				point("b", domain.ItemTypeEvent, 13.41, 52.52),
				point("c", domain.ItemTypeEvent, -2.935, 43.263),
				{ID: "bad", Title: "Bad", ItemType: domain.ItemTypeArea, Geometry: geospatial.Polygon{}},
			}, nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	clusters, err := svc.Clusters(context.Background(), geospatial.BoundingBox{-10, 40, 20, 60}, 6, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	total := 0
	for _, c := range clusters {
		total += c.Count
	}
	if total != 3 {
		t.Errorf("expected 3 clustered items, got %d", total)
	}
}

func TestItemService_Create(t *testing.T) {
	var stored *domain.Item
	repo := &mockItemRepo{
		createFn: func(ctx context.Context, item *domain.Item) error {
			stored = item
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewItemService(repo, nil, pub)

	item := point("", domain.ItemTypeMarketplace, 13.4, 52.5)
	if err := svc.Create(context.Background(), &item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.ID == "" {
		t.Fatal("expected an id to be assigned")
	}
	if len(pub.events) != 1 || pub.events[0].Kind != domain.ItemCreated || pub.events[0].Item.ID != stored.ID {
		t.Errorf("expected one created event, got %+v", pub.events)
	}
}

func TestItemService_Create_PublishFailureIsNotFatal(t *testing.T) {
	svc := usecases.NewItemService(&mockItemRepo{}, nil, &mockPublisher{err: errors.New("nats down")})

	item := point("", domain.ItemTypeEvent, 0, 0)
	if err := svc.Create(context.Background(), &item); err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
}

func TestItemService_Create_Invalid(t *testing.T) {
	called := false
	repo := &mockItemRepo{
		createFn: func(ctx context.Context, item *domain.Item) error {
			called = true
			return nil
		},
	}
	svc := usecases.NewItemService(repo, nil, nil)

	item := domain.Item{Title: "No geometry", ItemType: domain.ItemTypeEvent}
	err := svc.Create(context.Background(), &item)
	if !errors.Is(err, geospatial.ErrInvalidGeometry) {
		t.Errorf("expected ErrInvalidGeometry, got %v", err)
	}
	if called {
		t.Error("repository must not be called for invalid items")
	}
}

func TestItemService_Update(t *testing.T) {
	var updated *domain.Item
	repo := &mockItemRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Item, error) {
			item := point(id, domain.ItemTypeEvent, 1, 1)
			return &item, nil
		},
		updateFn: func(ctx context.Context, item *domain.Item) error {
			updated = item
			return nil
		},
	}
	cache := newMockCache()
	cache.data["items:id:x"] = []byte(`{}`)
	svc := usecases.NewItemService(repo, cache, nil)

	title := "Renamed"
	got, err := svc.Update(context.Background(), "x", domain.ItemPatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Renamed" || updated == nil || updated.ID != "x" {
		t.Errorf("unexpected update result: %+v", got)
	}
	if _, ok := cache.data["items:id:x"]; ok {
		t.Error("expected cached item to be invalidated")
	}
}

func TestItemService_Delete_NotFound(t *testing.T) {
	repo := &mockItemRepo{
		deleteFn: func(ctx context.Context, id string) error {
			return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewItemService(repo, nil, pub)

	if err := svc.Delete(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("no event expected for a failed delete")
	}
}

func TestItemService_GetByID_Cached(t *testing.T) {
	calls := 0
	repo := &mockItemRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Item, error) {
			calls++
			item := point(id, domain.ItemTypeUser, 2, 3)
			return &item, nil
		},
	}
	svc := usecases.NewItemService(repo, newMockCache(), nil)

	for i := 0; i < 2; i++ {
		item, err := svc.GetByID(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if item.ItemType != domain.ItemTypeUser {
			t.Errorf("unexpected item: %+v", item)
		}
	}
	if calls != 1 {
		t.Errorf("expected one repository call, got %d", calls)
	}
}

func TestItemService_List_UnknownType(t *testing.T) {
	svc := usecases.NewItemService(&mockItemRepo{}, nil, nil)
	if _, err := svc.List(context.Background(), "ufo"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestItemService_HandleItemEvent(t *testing.T) {
	cache := newMockCache()
	cache.data["items:id:x"] = []byte(`{}`)
	svc := usecases.NewItemService(&mockItemRepo{}, cache, nil)

	event := &domain.ItemEvent{Kind: domain.ItemUpdated, Item: domain.Item{ID: "x"}}
	if err := svc.HandleItemEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.data["items:id:x"]; ok {
		t.Error("expected cached item to be dropped")
	}
}
