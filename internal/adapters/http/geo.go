package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

func isGeometryError(err error) bool {
	return errors.Is(err, geospatial.ErrInvalidGeometry) || errors.Is(err, geospatial.ErrUnsupportedGeometry)
}

// DistanceHandler returns the great-circle distance between from and to.
func DistanceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := geospatial.ParsePosition(c.Query("from"))
		if err != nil {
			return errBadRequest(c, "from: "+err.Error())
		}
		to, err := geospatial.ParsePosition(c.Query("to"))
		if err != nil {
			return errBadRequest(c, "to: "+err.Error())
		}
		meters := geospatial.Distance(geospatial.Point{Coordinates: from}, geospatial.Point{Coordinates: to})
		return c.JSON(fiber.Map{
			"meters":    meters,
			"formatted": geospatial.FormatDistance(meters),
		})
	}
}

// CenterHandler returns the representative point of a GeoJSON geometry body.
func CenterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, err := geospatial.UnmarshalGeometry(c.Body())
		if err != nil {
			return errBodyDecode(c, err)
		}
		center, err := geospatial.Center(g)
		if err != nil {
			return errUnprocessable(c, err.Error())
		}
		return c.JSON(center)
	}
}

// BoundingBoxHandler returns the approximate box of radius km around lng/lat.
func BoundingBoxHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lng, okLng := queryFloat(c, "lng")
		lat, okLat := queryFloat(c, "lat")
		if !okLng || !okLat {
			return errBadRequest(c, "lng and lat are required numbers")
		}
		radius, ok := queryFloat(c, "radius")
		if !ok || radius < 0 {
			return errBadRequest(c, "radius must be a non-negative number")
		}
		center := geospatial.NewPoint(lng, lat)
		if !geospatial.IsValidCoordinates(center.Coordinates) {
			return errBadRequest(c, "coordinates out of range")
		}
		return c.JSON(fiber.Map{"bbox": geospatial.NewBoundingBox(center, radius)})
	}
}

// ValidateHandler reports whether lng/lat is a valid coordinate pair.
func ValidateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lng, okLng := queryFloat(c, "lng")
		lat, okLat := queryFloat(c, "lat")
		if !okLng || !okLat {
			return errBadRequest(c, "lng and lat are required numbers")
		}
		return c.JSON(fiber.Map{"valid": geospatial.IsValidCoordinates(geospatial.Position{lng, lat})})
	}
}
