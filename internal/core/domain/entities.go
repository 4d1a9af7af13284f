package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

var (
	// ErrNotFound is returned by repositories when an item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks caller input rejected before any lookup.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ItemType classifies map-placeable items.
type ItemType string

const (
	ItemTypeEvent       ItemType = "event"
	ItemTypeMarketplace ItemType = "marketplace"
	ItemTypeUser        ItemType = "user"
	ItemTypeGroup       ItemType = "group"
	ItemTypeTrack       ItemType = "track"
	ItemTypeArea        ItemType = "area"
	ItemTypePOI         ItemType = "poi"
)

// ItemTypes lists every known item type.
var ItemTypes = []ItemType{
	ItemTypeEvent, ItemTypeMarketplace, ItemTypeUser, ItemTypeGroup,
	ItemTypeTrack, ItemTypeArea, ItemTypePOI,
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Item is a map-placeable object served by the content API.
type Item struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	ItemType ItemType            `json:"item_type"`
	Geometry geospatial.Geometry `json:"geometry"`
	Address  string              `json:"address,omitempty"`
	Distance *float64            `json:"distance,omitempty"` // meters, computed field
}

type itemJSON struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	ItemType ItemType        `json:"item_type"`
	Geometry json.RawMessage `json:"geometry"`
	Address  string               `json:"address,omitempty"`
	Location *geospatial.Location `json:"location,omitempty"`
	Distance *float64             `json:"distance,omitempty"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		ID:       i.ID,
		Title:    i.Title,
		ItemType: i.ItemType,
		Address:  i.Address,
		Distance: i.Distance,
	}
	if i.Address != "" {
		loc := i.Location()
		out.Location = &loc
	}
	if i.Geometry != nil {
		g, err := json.Marshal(i.Geometry)
		if err != nil {
			return nil, fmt.Errorf("encode geometry: %w", err)
		}
		out.Geometry = g
	} else {
		out.Geometry = json.RawMessage("null")
	}
	return json.Marshal(out)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var in itemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*i = Item{
		ID:       in.ID,
		Title:    in.Title,
		ItemType: in.ItemType,
		Address:  in.Address,
		Distance: in.Distance,
	}
	if len(in.Geometry) > 0 && string(in.Geometry) != "null" {
		g, err := geospatial.UnmarshalGeometry(in.Geometry)
		if err != nil {
			return err
		}
		i.Geometry = g
	}
	return nil
}

// Location splits the free-form address into address, city and country.
func (i Item) Location() geospatial.Location {
	return geospatial.ParseLocationString(i.Address)
}

// Center returns the representative point of the item's geometry.
func (i Item) Center() (geospatial.Point, error) {
	return geospatial.Center(i.Geometry)
}

// ItemPatch carries the mutable fields of an item; nil fields are left as is.
type ItemPatch struct {
	Title    *string             `json:"title,omitempty"`
	ItemType *ItemType           `json:"item_type,omitempty"`
	Geometry geospatial.Geometry `json:"-"`
	Address  *string             `json:"address,omitempty"`
}

func (p *ItemPatch) UnmarshalJSON(data []byte) error {
	var in struct {
		Title    *string         `json:"title"`
		ItemType *ItemType       `json:"item_type"`
		Geometry json.RawMessage `json:"geometry"`
		Address  *string         `json:"address"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = ItemPatch{Title: in.Title, ItemType: in.ItemType, Address: in.Address}
	if len(in.Geometry) > 0 && string(in.Geometry) != "null" {
		g, err := geospatial.UnmarshalGeometry(in.Geometry)
		if err != nil {
			return err
		}
		p.Geometry = g
	}
	return nil
}

// Apply returns a copy of item with the patch applied.
func (p ItemPatch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.ItemType != nil {
		item.ItemType = *p.ItemType
	}
	if p.Geometry != nil {
		item.Geometry = p.Geometry
	}
	if p.Address != nil {
		item.Address = *p.Address
	}
	return item
}

// ItemEventKind names a change to an item.
type ItemEventKind string

const (
	ItemCreated ItemEventKind = "created"
	ItemUpdated ItemEventKind = "updated"
	ItemDeleted ItemEventKind = "deleted"
)

// ItemEvent is broadcast whenever an item changes.
type ItemEvent struct {
	Kind ItemEventKind `json:"kind"`
	Item Item          `json:"item"`
	Time time.Time     `json:"time"`
}

// SyncReport summarizes a content mirror run.
type SyncReport struct {
	Fetched  int `json:"fetched"`
	Stored   int `json:"stored"`
	Rejected int `json:"rejected"`
}
