package hexgrid_test

import (
	"testing"

	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
	"github.com/samirrijal/lokalconnect/internal/pkg/hexgrid"
)

func TestGroup_SameCell(t *testing.T) {
	members := []hexgrid.Member{
		{ID: "a", Point: geospatial.NewPoint(13.4050, 52.5200)},
		{ID: "b", Point: geospatial.NewPoint(13.4051, 52.5201)},
		{ID: "c", Point: geospatial.NewPoint(2.3522, 48.8566)},
	}

	clusters := hexgrid.Group(members, 7)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Count != 2 {
		t.Errorf("expected largest cluster first with 2 members, got %d", clusters[0].Count)
	}
	if clusters[0].Cell != hexgrid.Cell(members[0].Point, 7) {
		t.Errorf("unexpected cell %s", clusters[0].Cell)
	}
	// the cell center of a res-7 hexagon is within ~2km of its members
	if d := geospatial.Distance(clusters[0].Center, members[0].Point); d > 2500 {
		t.Errorf("cluster center %.0fm from member", d)
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := hexgrid.Group(nil, 5); len(got) != 0 {
		t.Errorf("expected no clusters, got %d", len(got))
	}
}

func TestClampResolution(t *testing.T) {
	if hexgrid.ClampResolution(-3) != 0 || hexgrid.ClampResolution(99) != 15 || hexgrid.ClampResolution(8) != 8 {
		t.Error("unexpected clamping")
	}
}

func TestCell_Deterministic(t *testing.T) {
	p := geospatial.NewPoint(-2.935, 43.263)
	a, b := hexgrid.Cell(p, 9), hexgrid.Cell(p, 9)
	if a != b || a == "" {
		t.Errorf("expected stable non-empty cell, got %q and %q", a, b)
	}
}
