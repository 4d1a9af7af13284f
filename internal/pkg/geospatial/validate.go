package geospatial

import (
	"fmt"
	"strconv"
	"strings"
)

// IsValidCoordinates reports whether lng is in [-180, 180] and lat in [-90, 90].
func IsValidCoordinates(p Position) bool {
	lng, lat := p.Lng(), p.Lat()
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// ParsePosition parses "lng,lat" and rejects out-of-range values.
func ParsePosition(s string) (Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("position must be \"lng,lat\", got %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("latitude: %w", err)
	}
	p := Position{lng, lat}
	if !IsValidCoordinates(p) {
		return Position{}, fmt.Errorf("coordinates out of range: %g,%g", lng, lat)
	}
	return p, nil
}

// ValidateGeometry checks that every position of g is within range and that
// g has a computable center.
func ValidateGeometry(g Geometry) error {
	if _, err := Center(g); err != nil {
		return err
	}

	var positions []Position
	switch g := g.(type) {
	case Point:
		positions = []Position{g.Coordinates}
	case LineString:
		positions = g.Coordinates
	case Polygon:
		for _, ring := range g.Coordinates {
			positions = append(positions, ring...)
		}
	}

	for _, p := range positions {
		if !IsValidCoordinates(p) {
			return &InvalidGeometryError{
				Type:   g.Type(),
				Reason: fmt.Sprintf("coordinates out of range: [%g, %g]", p.Lng(), p.Lat()),
			}
		}
	}
	return nil
}
