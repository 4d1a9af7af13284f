package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// decodeFeatures turns a GeoJSON FeatureCollection into items. Features
// without an id get one derived from the source name and their position in
// the file, so re-running an import updates rather than duplicates.
// Geometries that cannot be represented are kept as unknown so validation
// rejects the single item instead of the whole file.
func decodeFeatures(source string, data []byte, defaultType domain.ItemType) ([]domain.Item, error) {
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	items := make([]domain.Item, 0, len(fc.Features))
	for i, raw := range fc.Features {
		f, err := decodeFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		item := domain.Item{
			ID:       f.ID,
			Title:    firstString(f.Properties, "title", "name"),
			ItemType: domain.ItemType(firstString(f.Properties, "item_type", "type")),
			Address:  firstString(f.Properties, "address"),
			Geometry: f.Geometry,
		}
		if item.ItemType == "" {
			item.ItemType = defaultType
		}
		if item.ID == "" {
			item.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("lokal:%s/%d", source, i))).String()
		}
		items = append(items, item)
	}
	return items, nil
}

type feature struct {
	ID         string
	Properties map[string]interface{}
	Geometry   geospatial.Geometry
}

// decodeFeature reads one feature with go-geom, falling back to the bare
// geometry tag for types go-geom rejects.
func decodeFeature(raw json.RawMessage) (feature, error) {
	var f geojson.Feature
	if err := json.Unmarshal(raw, &f); err == nil {
		return feature{ID: f.ID, Properties: f.Properties, Geometry: toGeometry(f.Geometry)}, nil
	}

	var loose struct {
		ID       string `json:"id"`
		Geometry *struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return feature{}, err
	}
	out := feature{ID: loose.ID, Properties: loose.Properties}
	if loose.Geometry != nil {
		out.Geometry = geospatial.UnknownGeometry{Kind: loose.Geometry.Type, Coordinates: loose.Geometry.Coordinates}
	}
	return out, nil
}

// toGeometry converts go-geom types to item geometries. A missing or empty
// geometry becomes nil.
func toGeometry(g geom.T) geospatial.Geometry {
	switch t := g.(type) {
	case nil:
		return nil
	case *geom.Point:
		c := t.FlatCoords()
		if len(c) < 2 {
			return nil
		}
		return geospatial.NewPoint(c[0], c[1])
	case *geom.LineString:
		return geospatial.LineString{Coordinates: positions(t.Coords())}
	case *geom.Polygon:
		rings := t.Coords()
		out := make([][]geospatial.Position, len(rings))
		for i, ring := range rings {
			out[i] = positions(ring)
		}
		return geospatial.Polygon{Coordinates: out}
	default:
		unknown := geospatial.UnknownGeometry{Kind: strings.TrimPrefix(fmt.Sprintf("%T", g), "*geom.")}
		if enc, err := geojson.Encode(g); err == nil {
			unknown.Kind = enc.Type
			if enc.Coordinates != nil {
				unknown.Coordinates = *enc.Coordinates
			}
		}
		return unknown
	}
}

func positions(coords []geom.Coord) []geospatial.Position {
	out := make([]geospatial.Position, len(coords))
	for i, c := range coords {
		out[i] = geospatial.Position{c.X(), c.Y()}
	}
	return out
}

func firstString(props map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
