// Package osm imports named OpenStreetMap features through the Overpass API.
package osm

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// Source implements ports.PlaceSource.
type Source struct {
	client  *overpass.Client
	timeout time.Duration
}

// NewSource creates a Source for the given Overpass interpreter endpoint.
func NewSource(endpoint string, timeout time.Duration) *Source {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &Source{
		client:  &client,
		timeout: timeout,
	}
}

// FetchPOIs returns named nodes and ways carrying tag inside bbox. tag is
// either "key" or "key=value", e.g. "amenity=cafe".
func (s *Source) FetchPOIs(ctx context.Context, bbox geospatial.BoundingBox, tag string) ([]domain.Item, error) {
	query, err := BuildQuery(bbox, tag, int(s.timeout.Seconds()))
	if err != nil {
		return nil, err
	}

	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.client.Query(query)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", out.err)
		}
		return Convert(&out.result), nil
	}
}

// BuildQuery renders an Overpass QL query for tag in bbox.
func BuildQuery(bbox geospatial.BoundingBox, tag string, timeoutSec int) (string, error) {
	selector, err := tagSelector(tag)
	if err != nil {
		return "", err
	}
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	// Overpass boxes are south,west,north,east.
	area := fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(bbox.MinLat()), formatCoord(bbox.MinLng()),
		formatCoord(bbox.MaxLat()), formatCoord(bbox.MaxLng()))

	return fmt.Sprintf(`[out:json][timeout:%d];
(
	node%s["name"](%s);
	way%s["name"](%s);
);
out body;
>;
out skel qt;`, timeoutSec, selector, area, selector, area), nil
}

func tagSelector(tag string) (string, error) {
	key, value, hasValue := strings.Cut(tag, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || strings.ContainsAny(key+value, `"[]`) {
		return "", fmt.Errorf("%w: invalid osm tag %q", domain.ErrInvalidArgument, tag)
	}
	if !hasValue {
		return fmt.Sprintf(`[%q]`, key), nil
	}
	return fmt.Sprintf(`[%q=%q]`, key, value), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Convert maps named nodes to POI points and named ways to tracks (open) or
// areas (closed). Untagged nodes only supply way geometry.
func Convert(result *overpass.Result) []domain.Item {
	var items []domain.Item

	for id, node := range result.Nodes {
		name := node.Tags["name"]
		if name == "" {
			continue
		}
		items = append(items, domain.Item{
			ID:       "osm-node-" + strconv.FormatInt(id, 10),
			Title:    name,
			ItemType: domain.ItemTypePOI,
			Geometry: geospatial.NewPoint(node.Lon, node.Lat),
			Address:  address(node.Tags),
		})
	}

	for id, way := range result.Ways {
		name := way.Tags["name"]
		if name == "" || len(way.Nodes) < 2 {
			continue
		}
		coords := make([]geospatial.Position, 0, len(way.Nodes))
		for _, n := range way.Nodes {
			if n == nil {
				continue
			}
			coords = append(coords, geospatial.Position{n.Lon, n.Lat})
		}
		if len(coords) < 2 {
			continue
		}

		item := domain.Item{
			ID:      "osm-way-" + strconv.FormatInt(id, 10),
			Title:   name,
			Address: address(way.Tags),
		}
		if len(coords) >= 4 && coords[0] == coords[len(coords)-1] {
			item.ItemType = domain.ItemTypeArea
			item.Geometry = geospatial.Polygon{Coordinates: [][]geospatial.Position{coords}}
		} else {
			item.ItemType = domain.ItemTypeTrack
			item.Geometry = geospatial.LineString{Coordinates: coords}
		}
		items = append(items, item)
	}

	// map iteration order is random
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func address(tags map[string]string) string {
	street := strings.TrimSpace(tags["addr:street"] + " " + tags["addr:housenumber"])
	parts := make([]string, 0, 3)
	for _, p := range []string{street, tags["addr:city"], tags["addr:country"]} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
