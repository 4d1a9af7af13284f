package http

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
	"github.com/samirrijal/lokalconnect/internal/pkg/hexgrid"
)

// parseTypes splits a comma-separated type filter. Validation is left to the service.
func parseTypes(raw string) []domain.ItemType {
	if raw == "" {
		return nil
	}
	var types []domain.ItemType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			types = append(types, domain.ItemType(part))
		}
	}
	return types
}

// queryFloat parses a required float query parameter.
func queryFloat(c *fiber.Ctx, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ListItemsHandler returns items, optionally of a single type, paginated.
func ListItemsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := deps.Items.List(c.UserContext(), domain.ItemType(c.Query("type")))
		if err != nil {
			return errService(c, err)
		}

		offset, limit := pageParams(c, 100, 500)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(items)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: paginate(items, offset, limit), Pagination: pg})
	}
}

// NearbyItemsHandler returns items within radius km of lng/lat, nearest first.
func NearbyItemsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lng, okLng := queryFloat(c, "lng")
		lat, okLat := queryFloat(c, "lat")
		if !okLng || !okLat {
			return errBadRequest(c, "lng and lat are required numbers")
		}
		radius := c.QueryFloat("radius", 0)
		if radius < 0 {
			return errBadRequest(c, "radius must not be negative")
		}

		items, err := deps.Items.Nearby(c.UserContext(), geospatial.NewPoint(lng, lat),
			radius, parseTypes(c.Query("type")), c.QueryInt("limit", 50))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(items)
	}
}

// ItemsInBoundsHandler returns items whose center lies in bbox=minLng,minLat,maxLng,maxLat.
func ItemsInBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bbox, err := geospatial.ParseBoundingBox(c.Query("bbox"))
		if err != nil {
			return errBadRequest(c, "bbox: "+err.Error())
		}
		items, err := deps.Items.InBounds(c.UserContext(), bbox, parseTypes(c.Query("type")))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(items)
	}
}

// LegacyItemsInBoundsHandler serves the corner-based form ne=lng,lat&sw=lng,lat.
func LegacyItemsInBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ne, err := geospatial.ParsePosition(c.Query("ne"))
		if err != nil {
			return errBadRequest(c, "ne: "+err.Error())
		}
		sw, err := geospatial.ParsePosition(c.Query("sw"))
		if err != nil {
			return errBadRequest(c, "sw: "+err.Error())
		}
		items, err := deps.Items.InBounds(c.UserContext(), geospatial.BoundsFromCorners(ne, sw), parseTypes(c.Query("type")))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(items)
	}
}

// ItemClustersHandler groups items in bbox into H3 cells.
func ItemClustersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bbox, err := geospatial.ParseBoundingBox(c.Query("bbox"))
		if err != nil {
			return errBadRequest(c, "bbox: "+err.Error())
		}
		res := c.QueryInt("res", deps.ClusterResolution)
		if res < hexgrid.MinResolution || res > hexgrid.MaxResolution {
			return errBadRequest(c, "res must be between 0 and 15")
		}
		clusters, err := deps.Items.Clusters(c.UserContext(), bbox, res, parseTypes(c.Query("type")))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(fiber.Map{"resolution": res, "clusters": clusters})
	}
}

// GetItemHandler returns a single item.
func GetItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := deps.Items.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(item)
	}
}

// ItemCenterHandler returns the representative point of an item's geometry.
func ItemCenterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := deps.Items.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errService(c, err)
		}
		center, err := item.Center()
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(fiber.Map{
			"id":        item.ID,
			"center":    center,
			"formatted": geospatial.FormatCoordinates(center, c.QueryInt("precision", 4)),
		})
	}
}

// CreateItemHandler validates and stores a new item.
func CreateItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var item domain.Item
		if err := json.Unmarshal(c.Body(), &item); err != nil {
			return errBodyDecode(c, err)
		}
		item.Distance = nil
		if err := deps.Items.Create(c.UserContext(), &item); err != nil {
			return errService(c, err)
		}
		c.Location("/v1/items/" + item.ID)
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// UpdateItemHandler applies a partial update.
func UpdateItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch domain.ItemPatch
		if err := json.Unmarshal(c.Body(), &patch); err != nil {
			return errBodyDecode(c, err)
		}
		item, err := deps.Items.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return errService(c, err)
		}
		return c.JSON(item)
	}
}

// DeleteItemHandler removes an item.
func DeleteItemHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Items.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errService(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// errBodyDecode distinguishes bad geometry in an otherwise valid body (422)
// from malformed JSON (400).
func errBodyDecode(c *fiber.Ctx, err error) error {
	if isGeometryError(err) {
		return errUnprocessable(c, err.Error())
	}
	return errBadRequest(c, "invalid request body: "+err.Error())
}
