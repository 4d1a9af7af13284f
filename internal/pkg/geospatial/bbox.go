package geospatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const kmPerDegreeLat = 111.0

// BoundingBox is [minLng, minLat, maxLng, maxLat].
type BoundingBox [4]float64

func (b BoundingBox) MinLng() float64 { return b[0] }
func (b BoundingBox) MinLat() float64 { return b[1] }
func (b BoundingBox) MaxLng() float64 { return b[2] }
func (b BoundingBox) MaxLat() float64 { return b[3] }

// NewBoundingBox approximates a square box of half-width radiusKm around
// center using a flat-earth model. The longitude span widens toward the poles
// and is not wrapped at the antimeridian.
func NewBoundingBox(center Point, radiusKm float64) BoundingBox {
	lat := center.Lat()
	lng := center.Lng()

	kmPerDegreeLng := kmPerDegreeLat * math.Cos(ToRadians(lat))

	deltaLat := radiusKm / kmPerDegreeLat
	deltaLng := radiusKm / kmPerDegreeLng

	return BoundingBox{lng - deltaLng, lat - deltaLat, lng + deltaLng, lat + deltaLat}
}

// BoundsFromCorners builds a box from north-east and south-west corners.
func BoundsFromCorners(northEast, southWest Position) BoundingBox {
	return BoundingBox{southWest.Lng(), southWest.Lat(), northEast.Lng(), northEast.Lat()}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Position) bool {
	return p.Lat() >= b.MinLat() && p.Lat() <= b.MaxLat() &&
		p.Lng() >= b.MinLng() && p.Lng() <= b.MaxLng()
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b[0], b[1], b[2], b[3])
}

// ParseBoundingBox parses "minLng,minLat,maxLng,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox needs 4 comma-separated values, got %d", len(parts))
	}
	var b BoundingBox
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		b[i] = v
	}
	if b.MinLng() > b.MaxLng() || b.MinLat() > b.MaxLat() {
		return BoundingBox{}, fmt.Errorf("bbox min exceeds max: %s", b)
	}
	return b, nil
}
