package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

func TestItemJSON_Location(t *testing.T) {
	item := domain.Item{
		ID:       "a",
		Title:    "Flohmarkt",
		ItemType: domain.ItemTypeEvent,
		Geometry: geospatial.NewPoint(13.41, 52.52),
		Address:  "Mauerpark 1, Berlin, Germany",
	}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Location *geospatial.Location `json:"location"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := geospatial.Location{Address: "Mauerpark 1", City: "Berlin", Country: "Germany"}
	if out.Location == nil || *out.Location != want {
		t.Errorf("location = %+v, want %+v", out.Location, want)
	}

	var back domain.Item
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if back.Address != item.Address {
		t.Errorf("address = %q, want %q", back.Address, item.Address)
	}
}

func TestItemJSON_NoAddressNoLocation(t *testing.T) {
	data, err := json.Marshal(domain.Item{ID: "b", Title: "x", ItemType: domain.ItemTypePOI, Geometry: geospatial.NewPoint(0, 0)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["location"]; ok {
		t.Errorf("expected no location field, got %s", data)
	}
}
