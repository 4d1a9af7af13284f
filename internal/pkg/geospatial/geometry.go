// Package geospatial implements the geographic primitives shared by the item
// services: GeoJSON-style geometries, great-circle distance, geometry centers,
// bounding boxes and coordinate validation.
//
// Coordinates are always ordered [longitude, latitude].
package geospatial

import (
	"encoding/json"
	"fmt"
)

// Geometry type tags.
const (
	TypePoint      = "Point"
	TypeLineString = "LineString"
	TypePolygon    = "Polygon"
)

// Position is a single [lng, lat] coordinate pair.
type Position [2]float64

func (p Position) Lng() float64 { return p[0] }
func (p Position) Lat() float64 { return p[1] }

// Geometry is one of Point, LineString, Polygon or UnknownGeometry.
type Geometry interface {
	Type() string
	geometry()
}

// Point is a single location.
type Point struct {
	Coordinates Position
}

// NewPoint builds a Point from longitude and latitude.
func NewPoint(lng, lat float64) Point {
	return Point{Coordinates: Position{lng, lat}}
}

func (p Point) Lng() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// LineString is an ordered path of positions.
type LineString struct {
	Coordinates []Position
}

// Polygon is a list of linear rings, the first being the outer boundary.
type Polygon struct {
	Coordinates [][]Position
}

// UnknownGeometry keeps a geometry whose type tag is not understood, so it
// can round-trip and be reported instead of being dropped on decode.
type UnknownGeometry struct {
	Kind        string
	Coordinates json.RawMessage
}

func (Point) Type() string             { return TypePoint }
func (LineString) Type() string        { return TypeLineString }
func (Polygon) Type() string           { return TypePolygon }
func (g UnknownGeometry) Type() string { return g.Kind }

func (Point) geometry()           {}
func (LineString) geometry()      {}
func (Polygon) geometry()         {}
func (UnknownGeometry) geometry() {}

type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return marshalGeometry(TypePoint, p.Coordinates)
}

func (p *Point) UnmarshalJSON(data []byte) error {
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return err
	}
	pt, ok := g.(Point)
	if !ok {
		return &InvalidGeometryError{Type: g.Type(), Reason: "expected Point"}
	}
	*p = pt
	return nil
}

func (l LineString) MarshalJSON() ([]byte, error) {
	coords := l.Coordinates
	if coords == nil {
		coords = []Position{}
	}
	return marshalGeometry(TypeLineString, coords)
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	rings := p.Coordinates
	if rings == nil {
		rings = [][]Position{}
	}
	return marshalGeometry(TypePolygon, rings)
}

func (g UnknownGeometry) MarshalJSON() ([]byte, error) {
	coords := g.Coordinates
	if len(coords) == 0 {
		coords = json.RawMessage("null")
	}
	return json.Marshal(rawGeometry{Type: g.Kind, Coordinates: coords})
}

func marshalGeometry(kind string, coords any) ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}{kind, coords})
}

// UnmarshalGeometry decodes a GeoJSON geometry object. Unknown type tags decode
// into UnknownGeometry; malformed coordinates return an InvalidGeometryError.
func UnmarshalGeometry(data []byte) (Geometry, error) {
	var raw rawGeometry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}

	switch raw.Type {
	case TypePoint:
		var c []float64
		if err := json.Unmarshal(raw.Coordinates, &c); err != nil {
			return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
		}
		pos, err := toPosition(c)
		if err != nil {
			return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
		}
		return Point{Coordinates: pos}, nil

	case TypeLineString:
		var c [][]float64
		if len(raw.Coordinates) > 0 {
			if err := json.Unmarshal(raw.Coordinates, &c); err != nil {
				return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
			}
		}
		line, err := toPositions(c)
		if err != nil {
			return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
		}
		return LineString{Coordinates: line}, nil

	case TypePolygon:
		var c [][][]float64
		if len(raw.Coordinates) > 0 {
			if err := json.Unmarshal(raw.Coordinates, &c); err != nil {
				return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
			}
		}
		rings := make([][]Position, 0, len(c))
		for _, r := range c {
			ring, err := toPositions(r)
			if err != nil {
				return nil, &InvalidGeometryError{Type: raw.Type, Reason: err.Error()}
			}
			rings = append(rings, ring)
		}
		return Polygon{Coordinates: rings}, nil

	default:
		return UnknownGeometry{Kind: raw.Type, Coordinates: raw.Coordinates}, nil
	}
}

func toPosition(c []float64) (Position, error) {
	if len(c) < 2 {
		return Position{}, fmt.Errorf("position needs 2 values, got %d", len(c))
	}
	return Position{c[0], c[1]}, nil
}

func toPositions(cs [][]float64) ([]Position, error) {
	out := make([]Position, 0, len(cs))
	for _, c := range cs {
		p, err := toPosition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
