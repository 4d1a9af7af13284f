package osm

import (
	"errors"
	"strings"
	"testing"

	"github.com/serjvanilla/go-overpass"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

func TestBuildQuery(t *testing.T) {
	q, err := BuildQuery(geospatial.BoundingBox{13.3, 52.4, 13.5, 52.6}, "amenity=cafe", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		`[timeout:30]`,
		`node["amenity"="cafe"]["name"](52.4,13.3,52.6,13.5);`,
		`way["amenity"="cafe"]["name"](52.4,13.3,52.6,13.5);`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %s:\n%s", want, q)
		}
	}
}

func TestBuildQuery_KeyOnly(t *testing.T) {
	q, err := BuildQuery(geospatial.BoundingBox{0, 0, 1, 1}, "tourism", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(q, `node["tourism"]["name"]`) || !strings.Contains(q, "[timeout:60]") {
		t.Errorf("unexpected query:\n%s", q)
	}
}

func TestBuildQuery_RejectsInjection(t *testing.T) {
	for _, tag := range []string{"", `amenity"];node(1,2,3,4`, "=cafe"} {
		if _, err := BuildQuery(geospatial.BoundingBox{0, 0, 1, 1}, tag, 10); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("tag %q: expected ErrInvalidArgument, got %v", tag, err)
		}
	}
}

func node(id int64, lon, lat float64, tags map[string]string) *overpass.Node {
	n := &overpass.Node{Lat: lat, Lon: lon}
	n.ID = id
	n.Tags = tags
	return n
}

func TestConvert(t *testing.T) {
	a := node(1, 13.0, 52.0, nil)
	b := node(2, 13.1, 52.0, nil)
	c := node(3, 13.1, 52.1, nil)
	cafe := node(10, 13.4, 52.5, map[string]string{
		"name": "Cafe", "addr:street": "Hauptstr.", "addr:housenumber": "5", "addr:city": "Berlin",
	})

	park := &overpass.Way{Nodes: []*overpass.Node{a, b, c, a}}
	park.ID = 20
	park.Tags = map[string]string{"name": "Park"}
	path := &overpass.Way{Nodes: []*overpass.Node{a, b, c}}
	path.ID = 21
	path.Tags = map[string]string{"name": "Path"}

	result := &overpass.Result{
		Nodes: map[int64]*overpass.Node{1: a, 2: b, 3: c, 10: cafe},
		Ways:  map[int64]*overpass.Way{20: park, 21: path},
	}

	items := Convert(result)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d: %+v", len(items), items)
	}

	byID := map[string]domain.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}

	if got := byID["osm-node-10"]; got.ItemType != domain.ItemTypePOI || got.Address != "Hauptstr. 5, Berlin" {
		t.Errorf("unexpected cafe item: %+v", got)
	}
	if got := byID["osm-way-20"]; got.ItemType != domain.ItemTypeArea || got.Geometry.Type() != geospatial.TypePolygon {
		t.Errorf("expected closed way to be an area polygon, got %+v", got)
	}
	if got := byID["osm-way-21"]; got.ItemType != domain.ItemTypeTrack || got.Geometry.Type() != geospatial.TypeLineString {
		t.Errorf("expected open way to be a track line, got %+v", got)
	}
}
