package geospatial

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// FormatDistance renders meters for display: "800m", "1.2km", "15km".
func FormatDistance(meters float64) string {
	switch {
	case meters < 1000:
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	case meters < 10000:
		return fmt.Sprintf("%.1fkm", meters/1000)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(meters/1000)))
	}
}

// FormatCoordinates renders a point as "lat, lng". A negative precision
// falls back to 4 decimals.
func FormatCoordinates(p Point, precision int) string {
	if precision < 0 {
		precision = 4
	}
	return fmt.Sprintf("%.*f, %.*f", precision, p.Lat(), precision, p.Lng())
}

// SortByDistance returns a copy of items ordered by ascending distance.
// Equal distances keep their input order.
func SortByDistance[T any](items []T, distance func(T) float64) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		da, db := distance(a), distance(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	return out
}

// Location is a postal-style place description.
type Location struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
}

// ParseLocationString splits "City, Country" or "Address, City, Country".
// Input without a comma is treated as a city name.
func ParseLocationString(s string) Location {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 {
		return Location{City: s}
	}
	n := len(parts)
	loc := Location{City: parts[n-2], Country: parts[n-1]}
	if n > 2 {
		loc.Address = strings.Join(parts[:n-2], ", ")
	}
	return loc
}
