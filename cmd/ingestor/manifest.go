package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// Manifest lists the sources one ingestor run imports.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// Source is either a GeoJSON file or an Overpass import, never both.
type Source struct {
	Name string `yaml:"name"`

	// GeoJSON is a path to a FeatureCollection file.
	GeoJSON string `yaml:"geojson,omitempty"`
	// ItemType applies to GeoJSON features without an item_type property.
	ItemType domain.ItemType `yaml:"item_type,omitempty"`

	Overpass *OverpassImport `yaml:"overpass,omitempty"`
}

// OverpassImport selects OSM features carrying Tag inside BBox.
type OverpassImport struct {
	BBox []float64 `yaml:"bbox"` // minLng, minLat, maxLng, maxLat
	Tag  string    `yaml:"tag"`
}

// Bounds returns the import box.
func (o OverpassImport) Bounds() geospatial.BoundingBox {
	var b geospatial.BoundingBox
	copy(b[:], o.BBox)
	return b
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every malformed source at once.
func (m *Manifest) Validate() error {
	var errs []error
	seen := make(map[string]bool)

	for i, s := range m.Sources {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("sources[%d]", i)
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate source name", label))
		}
		seen[s.Name] = true

		switch {
		case s.GeoJSON != "" && s.Overpass != nil:
			errs = append(errs, fmt.Errorf("%s: set either geojson or overpass, not both", label))
		case s.GeoJSON == "" && s.Overpass == nil:
			errs = append(errs, fmt.Errorf("%s: one of geojson or overpass is required", label))
		case s.GeoJSON != "":
			if s.ItemType != "" && !s.ItemType.Valid() {
				errs = append(errs, fmt.Errorf("%s: unknown item_type %q", label, s.ItemType))
			}
		case s.Overpass != nil:
			if len(s.Overpass.BBox) != 4 {
				errs = append(errs, fmt.Errorf("%s: overpass.bbox needs 4 values", label))
			} else if b := s.Overpass.Bounds(); b.MinLng() > b.MaxLng() || b.MinLat() > b.MaxLat() {
				errs = append(errs, fmt.Errorf("%s: overpass.bbox min exceeds max", label))
			}
			if s.Overpass.Tag == "" {
				errs = append(errs, fmt.Errorf("%s: overpass.tag is required", label))
			}
		}
	}
	return errors.Join(errs...)
}

// Select returns the sources named in only, or all when only is empty.
func (m *Manifest) Select(only []string) ([]Source, error) {
	if len(only) == 0 {
		return m.Sources, nil
	}
	byName := make(map[string]Source, len(m.Sources))
	for _, s := range m.Sources {
		byName[s.Name] = s
	}
	out := make([]Source, 0, len(only))
	for _, name := range only {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		out = append(out, s)
	}
	return out, nil
}
