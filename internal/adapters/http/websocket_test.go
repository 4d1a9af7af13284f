package http

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

func subjects(names ...string) map[string]*nats.Subscription {
	m := make(map[string]*nats.Subscription, len(names))
	for _, n := range names {
		m[n] = nil
	}
	return m
}

func TestOverlapping(t *testing.T) {
	tests := []struct {
		name    string
		current map[string]*nats.Subscription
		subject string
		want    []string
	}{
		{"kind replaces catch-all", subjects("items.>"), "items.created.>", []string{"items.>"}},
		{"catch-all replaces kinds", subjects("items.created.>", "items.deleted.>"), "items.>", []string{"items.created.>", "items.deleted.>"}},
		{"kinds coexist", subjects("items.created.>"), "items.updated.>", nil},
		{"same subject", subjects("items.>"), "items.>", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlapping(tt.current, tt.subject)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("overlapping = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWSSubject(t *testing.T) {
	if s, ok := wsSubject(""); !ok || s != "items.>" {
		t.Errorf("catch-all = %q, %v", s, ok)
	}
	if s, ok := wsSubject("updated"); !ok || s != "items.updated.>" {
		t.Errorf("updated = %q, %v", s, ok)
	}
	if _, ok := wsSubject("moved"); ok {
		t.Error("expected unknown kind to be rejected")
	}
}

func TestEventInBounds(t *testing.T) {
	bbox := &geospatial.BoundingBox{13, 52, 14, 53}
	encode := func(e domain.ItemEvent) []byte {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return data
	}

	inside := encode(domain.ItemEvent{Kind: domain.ItemCreated, Item: domain.Item{ID: "a", Geometry: geospatial.NewPoint(13.4, 52.5)}})
	outside := encode(domain.ItemEvent{Kind: domain.ItemUpdated, Item: domain.Item{ID: "b", Geometry: geospatial.NewPoint(2.35, 48.85)}})
	deleted := encode(domain.ItemEvent{Kind: domain.ItemDeleted, Item: domain.Item{ID: "c"}})

	if !eventInBounds(inside, bbox) {
		t.Error("expected event inside the box")
	}
	if eventInBounds(outside, bbox) {
		t.Error("expected event outside the box to be dropped")
	}
	if !eventInBounds(deleted, bbox) {
		t.Error("deletions are always delivered")
	}
	if !eventInBounds(outside, nil) {
		t.Error("no watch means every event")
	}
}
