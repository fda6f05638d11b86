package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

var boundsParams = []string{"north", "south", "east", "west"}

// GetLandmarksHandler serves the landmark query endpoint widgets consume.
// It accepts either north/south/east/west or lat/lon[/search].
func GetLandmarksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseLandmarkQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if len(c.Query("search")) > 200 {
			return errBadRequest(c, "search too long (max 200 characters)")
		}

		landmarks, err := deps.Catalog.Query(c.UserContext(), q)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Error("landmark query failed", "query", q.String(), "error", err)
			return errInternal(c, "landmark query failed")
		}

		return c.JSON(landmarks)
	}
}

// parseLandmarkQuery reads exactly one query variant from the query string.
func parseLandmarkQuery(c *fiber.Ctx) (domain.ViewportQuery, error) {
	hasBounds := false
	for _, k := range boundsParams {
		if c.Query(k) != "" {
			hasBounds = true
		}
	}
	hasPoint := c.Query("lat") != "" || c.Query("lon") != ""

	var q domain.ViewportQuery
	switch {
	case hasBounds && hasPoint:
		return q, errors.New("use either north/south/east/west or lat/lon, not both")

	case hasBounds:
		vals := make([]float64, len(boundsParams))
		for i, k := range boundsParams {
			v, err := floatParam(c, k)
			if err != nil {
				return q, err
			}
			vals[i] = v
		}
		q = domain.BoundsQuery(domain.Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]})

	case hasPoint:
		lat, err := floatParam(c, "lat")
		if err != nil {
			return q, err
		}
		lon, err := floatParam(c, "lon")
		if err != nil {
			return q, err
		}
		q = domain.NearQuery(domain.GeoPoint{Lat: lat, Lon: lon}, strings.TrimSpace(c.Query("search")))

	default:
		return q, errors.New("north, south, east and west, or lat and lon, are required")
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func floatParam(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}
