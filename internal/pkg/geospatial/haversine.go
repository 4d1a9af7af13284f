package geospatial

import "math"

const earthRadiusKm = 6371.0

// Distance calculates the great-circle distance in meters between two points.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat(), a.Lng(), b.Lat(), b.Lng())
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRadians(lat2 - lat1)
	dLon := ToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRadians(lat1))*math.Cos(ToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// InLocationFilter reports whether p lies within the filter's radius.
// The boundary is inclusive.
func InLocationFilter(p Point, f LocationFilter) bool {
	return Distance(p, f.Center) <= f.RadiusKm*1000
}

func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
