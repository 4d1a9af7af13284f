package geospatial

import "math"

// LocationFilter is a circular inclusion region around Center.
type LocationFilter struct {
	Center   Point        `json:"center"`
	RadiusKm float64      `json:"radius"`
	BBox     *BoundingBox `json:"bbox,omitempty"`
}

// NewLocationFilter builds a filter with its bounding box precomputed.
func NewLocationFilter(center Point, radiusKm float64) LocationFilter {
	bbox := NewBoundingBox(center, radiusKm)
	return LocationFilter{Center: center, RadiusKm: radiusKm, BBox: &bbox}
}

// Bounds returns the filter's bounding box, computing it when unset.
func (f LocationFilter) Bounds() BoundingBox {
	if f.BBox != nil {
		return *f.BBox
	}
	return NewBoundingBox(f.Center, f.RadiusKm)
}

// SearchBounds returns boxes that together cover every position within the
// filter's radius. Longitudes are split at the antimeridian, and the span
// becomes [-180, 180] once the circle reaches a pole.
func (f LocationFilter) SearchBounds() []BoundingBox {
	flat := NewBoundingBox(f.Center, f.RadiusKm)
	minLat := math.Max(flat.MinLat(), -90)
	maxLat := math.Min(flat.MaxLat(), 90)

	angular := f.RadiusKm / earthRadiusKm
	cosLat := math.Cos(ToRadians(f.Center.Lat()))
	if maxLat >= 90 || minLat <= -90 || math.Sin(angular) >= cosLat {
		return []BoundingBox{{-180, minLat, 180, maxLat}}
	}

	deltaLng := ToDegrees(math.Asin(math.Sin(angular) / cosLat))
	deltaLng = math.Max(deltaLng, flat.MaxLng()-f.Center.Lng())
	if deltaLng >= 180 {
		return []BoundingBox{{-180, minLat, 180, maxLat}}
	}

	minLng := f.Center.Lng() - deltaLng
	maxLng := f.Center.Lng() + deltaLng
	switch {
	case minLng < -180:
		return []BoundingBox{
			{-180, minLat, maxLng, maxLat},
			{minLng + 360, minLat, 180, maxLat},
		}
	case maxLng > 180:
		return []BoundingBox{
			{minLng, minLat, 180, maxLat},
			{-180, minLat, maxLng - 360, maxLat},
		}
	}
	return []BoundingBox{{minLng, minLat, maxLng, maxLat}}
}
