package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// itemTypesArg converts a [ItemType] list argument.
func itemTypesArg(v interface{}) []domain.ItemType {
	list, _ := v.([]interface{})
	types := make([]domain.ItemType, 0, len(list))
	for _, t := range list {
		if s, ok := t.(string); ok {
			types = append(types, domain.ItemType(s))
		}
	}
	return types
}

func pointValue(p geospatial.Point) map[string]interface{} {
	return map[string]interface{}{"lng": p.Lng(), "lat": p.Lat()}
}

// itemValue flattens an item for graphql-go's default resolvers.
func itemValue(item domain.Item) map[string]interface{} {
	m := map[string]interface{}{
		"id":        item.ID,
		"title":     item.Title,
		"item_type": string(item.ItemType),
		"address":   item.Address,
	}
	if item.Address != "" {
		loc := item.Location()
		m["city"] = loc.City
		m["country"] = loc.Country
	}
	if item.Geometry != nil {
		m["geometry_type"] = item.Geometry.Type()
	}
	if c, err := item.Center(); err == nil {
		m["center"] = pointValue(c)
	}
	if item.Distance != nil {
		m["distance"] = *item.Distance
	}
	return m
}

func itemValues(items []domain.Item) []map[string]interface{} {
	out := make([]map[string]interface{}, len(items))
	for i, item := range items {
		out[i] = itemValue(item)
	}
	return out
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	itemTypeEnumValues := graphql.EnumValueConfigMap{}
	for _, t := range domain.ItemTypes {
		itemTypeEnumValues[string(t)] = &graphql.EnumValueConfig{Value: string(t)}
	}
	itemTypeEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:   "ItemType",
		Values: itemTypeEnumValues,
	})

	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lng": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	itemType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Item",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"title":         &graphql.Field{Type: graphql.String},
			"item_type":     &graphql.Field{Type: itemTypeEnum},
			"address":       &graphql.Field{Type: graphql.String},
			"city":          &graphql.Field{Type: graphql.String},
			"country":       &graphql.Field{Type: graphql.String},
			"geometry_type": &graphql.Field{Type: graphql.String},
			"center":        &graphql.Field{Type: geoPointType},
			"distance":      &graphql.Field{Type: graphql.Float, Description: "Meters from the search center"},
		},
	})

	distanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Distance",
		Fields: graphql.Fields{
			"meters":    &graphql.Field{Type: graphql.Float},
			"formatted": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"items": &graphql.Field{
				Type:        graphql.NewList(itemType),
				Description: "List items, optionally of one type",
				Args: graphql.FieldConfigArgument{
					"type": &graphql.ArgumentConfig{Type: itemTypeEnum},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, _ := p.Args["type"].(string)
					items, err := deps.Items.List(p.Context, domain.ItemType(t))
					if err != nil {
						return nil, err
					}
					return itemValues(items), nil
				},
			},
			"item": &graphql.Field{
				Type:        itemType,
				Description: "Get an item by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					item, err := deps.Items.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return itemValue(*item), nil
				},
			},
			"itemsNearby": &graphql.Field{
				Type:        graphql.NewList(itemType),
				Description: "Items within radius km of a location, nearest first",
				Args: graphql.FieldConfigArgument{
					"lng":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"types":  &graphql.ArgumentConfig{Type: graphql.NewList(itemTypeEnum)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := geospatial.NewPoint(p.Args["lng"].(float64), p.Args["lat"].(float64))
					items, err := deps.Items.Nearby(p.Context, center,
						p.Args["radius"].(float64), itemTypesArg(p.Args["types"]), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return itemValues(items), nil
				},
			},
			"distance": &graphql.Field{
				Type:        distanceType,
				Description: "Great-circle distance between two locations",
				Args: graphql.FieldConfigArgument{
					"fromLng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"fromLat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLng":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"toLat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := geospatial.NewPoint(p.Args["fromLng"].(float64), p.Args["fromLat"].(float64))
					to := geospatial.NewPoint(p.Args["toLng"].(float64), p.Args["toLat"].(float64))
					meters := geospatial.Distance(from, to)
					return map[string]interface{}{
						"meters":    meters,
						"formatted": geospatial.FormatDistance(meters),
					}, nil
				},
			},
			"itemCenter": &graphql.Field{
				Type:        geoPointType,
				Description: "Representative point of an item's geometry",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					item, err := deps.Items.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					c, err := item.Center()
					if err != nil {
						return nil, err
					}
					return pointValue(c), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
