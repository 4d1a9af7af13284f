package geospatial

// Center returns a representative point for a geometry.
//
// A Point is returned unchanged. A LineString yields the coordinate at index
// len/2 (not an interpolated midpoint). A Polygon yields the plain average of
// its outer ring's coordinates.
func Center(g Geometry) (Point, error) {
	switch g := g.(type) {
	case Point:
		return g, nil

	case LineString:
		if len(g.Coordinates) == 0 {
			return Point{}, &InvalidGeometryError{Type: TypeLineString, Reason: "no coordinates"}
		}
		return Point{Coordinates: g.Coordinates[len(g.Coordinates)/2]}, nil

	case Polygon:
		if len(g.Coordinates) == 0 || len(g.Coordinates[0]) == 0 {
			return Point{}, &InvalidGeometryError{Type: TypePolygon, Reason: "no coordinates in outer ring"}
		}
		ring := g.Coordinates[0]
		var x, y float64
		for _, c := range ring {
			x += c[0]
			y += c[1]
		}
		n := float64(len(ring))
		return NewPoint(x/n, y/n), nil

	case nil:
		return Point{}, &InvalidGeometryError{Reason: "missing geometry"}

	default:
		return Point{}, &UnsupportedGeometryError{Type: g.Type()}
	}
}
