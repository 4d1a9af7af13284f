package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/core/ports"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
	"github.com/samirrijal/lokalconnect/internal/pkg/hexgrid"
	"github.com/samirrijal/lokalconnect/internal/pkg/metrics"
	"github.com/samirrijal/lokalconnect/internal/pkg/telemetry"
)

// SearchSettings bounds location queries.
type SearchSettings struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	MaxLimit        int
	CacheTTL        int // seconds
}

// DefaultSearchSettings mirrors the config defaults.
var DefaultSearchSettings = SearchSettings{
	DefaultRadiusKm: 5,
	MaxRadiusKm:     100,
	MaxLimit:        200,
	CacheTTL:        300,
}

// ItemService handles item-related business logic.
type ItemService struct {
	items     ports.ItemRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	search    SearchSettings
}

// NewItemService creates a new ItemService. cache and publisher may be nil.
func NewItemService(items ports.ItemRepository, cache ports.CacheService, publisher ports.EventPublisher) *ItemService {
	return &ItemService{items: items, cache: cache, publisher: publisher, search: DefaultSearchSettings}
}

// WithSearchSettings overrides the radius and limit bounds.
func (s *ItemService) WithSearchSettings(cfg SearchSettings) *ItemService {
	s.search = cfg
	return s
}

// List returns all items, or only those of itemType when set.
func (s *ItemService) List(ctx context.Context, itemType domain.ItemType) ([]domain.Item, error) {
	if itemType == "" {
		return s.items.List(ctx)
	}
	if !itemType.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", domain.ErrInvalidArgument, itemType)
	}
	return s.items.ListByType(ctx, itemType)
}

// GetByID returns a single item.
func (s *ItemService) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	cacheKey := "items:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var item domain.Item
			if err := json.Unmarshal(data, &item); err == nil {
				metrics.CacheHits.WithLabelValues("item").Inc()
				return &item, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("item").Inc()
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(item); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for single item
		}
	}

	return item, nil
}

// Create validates and stores a new item, assigning an ID when missing.
func (s *ItemService) Create(ctx context.Context, item *domain.Item) error {
	if err := ValidateItem(item); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.items.Create(ctx, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	s.publish(ctx, domain.ItemCreated, *item)
	return nil
}

// Update applies patch to the stored item.
func (s *ItemService) Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	current, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	updated.ID = id
	if err := ValidateItem(&updated); err != nil {
		return nil, err
	}

	if err := s.items.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	s.invalidate(ctx, id)
	s.publish(ctx, domain.ItemUpdated, updated)
	return &updated, nil
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.publish(ctx, domain.ItemDeleted, domain.Item{ID: id})
	return nil
}

// InBounds returns items whose center lies within bbox, optionally narrowed
// to the given types.
func (s *ItemService) InBounds(ctx context.Context, bbox geospatial.BoundingBox, types []domain.ItemType) ([]domain.Item, error) {
	if err := validateTypes(types); err != nil {
		return nil, err
	}
	items, err := s.items.FindInBounds(ctx, bbox)
	if err != nil {
		return nil, err
	}
	return filterTypes(items, types), nil
}

// Nearby returns items within radiusKm of center, nearest first, with
// Distance set in meters.
func (s *ItemService) Nearby(ctx context.Context, center geospatial.Point, radiusKm float64, types []domain.ItemType, limit int) ([]domain.Item, error) {
	if !geospatial.IsValidCoordinates(center.Coordinates) {
		return nil, fmt.Errorf("%w: center out of range", domain.ErrInvalidArgument)
	}
	if math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("%w: radius is not a number", domain.ErrInvalidArgument)
	}
	if radiusKm <= 0 {
		radiusKm = s.search.DefaultRadiusKm
	}
	if radiusKm > s.search.MaxRadiusKm {
		return nil, fmt.Errorf("%w: radius must be at most %g km", domain.ErrInvalidArgument, s.search.MaxRadiusKm)
	}
	if err := validateTypes(types); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = 50
	case limit > s.search.MaxLimit:
		limit = s.search.MaxLimit
	}

	// Try cache
	cacheKey := fmt.Sprintf("items:nearby:%.6f:%.6f:%.3f:%s:%d",
		center.Lng(), center.Lat(), radiusKm, joinTypes(types), limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var items []domain.Item
			if err := json.Unmarshal(data, &items); err == nil {
				metrics.CacheHits.WithLabelValues("nearby").Inc()
				return items, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("nearby").Inc()
	}

	ctx, span := telemetry.StartSpan(ctx, "ItemService.Nearby",
		telemetry.AttrRadiusKm.Float64(radiusKm),
		telemetry.AttrItemTypes.String(joinTypes(types)),
	)
	defer span.End()

	filter := geospatial.NewLocationFilter(center, radiusKm)
	candidates, err := s.findInAny(ctx, filter.SearchBounds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	matches := make([]domain.Item, 0, len(candidates))
	for _, item := range filterTypes(candidates, types) {
		c, err := item.Center()
		if err != nil {
			metrics.GeometryErrors.WithLabelValues(geometryKind(item.Geometry)).Inc()
			slog.WarnContext(ctx, "skipping item with unusable geometry", "item_id", item.ID, "error", err)
			continue
		}
		if !geospatial.InLocationFilter(c, filter) {
			continue
		}
		d := geospatial.Distance(center, c)
		item.Distance = &d
		matches = append(matches, item)
	}

	matches = geospatial.SortByDistance(matches, func(i domain.Item) float64 { return *i.Distance })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	span.SetAttributes(telemetry.AttrResultCount.Int(len(matches)))

	if s.cache != nil {
		if data, err := json.Marshal(matches); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.search.CacheTTL)
		}
	}

	return matches, nil
}

// Clusters groups the items inside bbox into H3 cells at resolution res.
func (s *ItemService) Clusters(ctx context.Context, bbox geospatial.BoundingBox, res int, types []domain.ItemType) ([]hexgrid.Cluster, error) {
	items, err := s.InBounds(ctx, bbox, types)
	if err != nil {
		return nil, err
	}

	members := make([]hexgrid.Member, 0, len(items))
	for _, item := range items {
		c, err := item.Center()
		if err != nil {
			continue
		}
		members = append(members, hexgrid.Member{ID: item.ID, Point: c})
	}
	return hexgrid.Group(members, res), nil
}

// findInAny queries each box and merges the results, dropping duplicates.
func (s *ItemService) findInAny(ctx context.Context, boxes []geospatial.BoundingBox) ([]domain.Item, error) {
	if len(boxes) == 1 {
		return s.items.FindInBounds(ctx, boxes[0])
	}
	seen := make(map[string]struct{})
	var out []domain.Item
	for _, bbox := range boxes {
		items, err := s.items.FindInBounds(ctx, bbox)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}
	return out, nil
}

// HandleItemEvent drops the cached copy of the item an event refers to, so
// changes made by other processes become visible before the TTL runs out.
func (s *ItemService) HandleItemEvent(ctx context.Context, event *domain.ItemEvent) error {
	s.invalidate(ctx, event.Item.ID)
	return nil
}

func (s *ItemService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "items:id:"+id)
	}
}

func (s *ItemService) publish(ctx context.Context, kind domain.ItemEventKind, item domain.Item) {
	if s.publisher == nil {
		return
	}
	event := &domain.ItemEvent{Kind: kind, Item: item, Time: time.Now().UTC()}
	if err := s.publisher.PublishItemEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish item event failed", "kind", kind, "item_id", item.ID, "error", err)
	}
}

// ValidateItem checks the fields every stored item must carry.
func ValidateItem(item *domain.Item) error {
	if strings.TrimSpace(item.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if !item.ItemType.Valid() {
		return fmt.Errorf("%w: unknown item type %q", domain.ErrInvalidArgument, item.ItemType)
	}
	return geospatial.ValidateGeometry(item.Geometry)
}

func validateTypes(types []domain.ItemType) error {
	for _, t := range types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown item type %q", domain.ErrInvalidArgument, t)
		}
	}
	return nil
}

func filterTypes(items []domain.Item, types []domain.ItemType) []domain.Item {
	if len(types) == 0 {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if slices.Contains(types, item.ItemType) {
			out = append(out, item)
		}
	}
	return out
}

func joinTypes(types []domain.ItemType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func geometryKind(g geospatial.Geometry) string {
	if g == nil {
		return "none"
	}
	return g.Type()
}
