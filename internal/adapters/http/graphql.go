package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

// buildSchema creates the GraphQL schema over the landmark catalog.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	landmarkType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Landmark",
		Fields: graphql.Fields{
			"lat":     &graphql.Field{Type: graphql.Float},
			"lon":     &graphql.Field{Type: graphql.Float},
			"title":   &graphql.Field{Type: graphql.String},
			"summary": &graphql.Field{Type: graphql.String},
			"category": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if l, ok := p.Source.(domain.Landmark); ok {
						return string(l.Category), nil
					}
					return nil, nil
				},
			},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"glyph": &graphql.Field{Type: graphql.String},
			"color": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"landmarks": &graphql.Field{
				Type:        graphql.NewList(landmarkType),
				Description: "Landmarks inside a bounding box",
				Args: graphql.FieldConfigArgument{
					"north": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"south": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"east":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"west":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					b := domain.Bounds{
						North: p.Args["north"].(float64),
						South: p.Args["south"].(float64),
						East:  p.Args["east"].(float64),
						West:  p.Args["west"].(float64),
					}
					return deps.Catalog.Query(p.Context, domain.BoundsQuery(b))
				},
			},
			"landmarksNear": &graphql.Field{
				Type:        graphql.NewList(landmarkType),
				Description: "Landmarks around a searched location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"search": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					search, _ := p.Args["search"].(string)
					return deps.Catalog.Query(p.Context, domain.NearQuery(pt, search))
				},
			},
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Category tags with their marker glyph and color",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					out := make([]map[string]interface{}, 0, len(domain.Categories))
					for _, c := range domain.Categories {
						v := c.Visual()
						out = append(out, map[string]interface{}{
							"name":  string(c),
							"glyph": v.Glyph,
							"color": v.Color,
						})
					}
					return out, nil
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
