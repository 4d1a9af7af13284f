package geospatial

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry matches any *InvalidGeometryError via errors.Is.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrUnsupportedGeometry matches any *UnsupportedGeometryError via errors.Is.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// InvalidGeometryError is returned when a known geometry type lacks the
// coordinates needed for an operation.
type InvalidGeometryError struct {
	Type   string
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	if e.Type == "" {
		return "invalid geometry: " + e.Reason
	}
	return fmt.Sprintf("invalid %s geometry: %s", e.Type, e.Reason)
}

func (e *InvalidGeometryError) Is(target error) bool {
	return target == ErrInvalidGeometry
}

// UnsupportedGeometryError carries a type tag no operation understands.
type UnsupportedGeometryError struct {
	Type string
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("unsupported geometry type: %q", e.Type)
}

func (e *UnsupportedGeometryError) Is(target error) bool {
	return target == ErrUnsupportedGeometry
}
