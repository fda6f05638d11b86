// Package landmarkapi is the HTTP client for the remote landmark query endpoint.
package landmarkapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/pkg/telemetry"
)

// DefaultTimeout bounds a single landmark query.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Client implements ports.LandmarkSource.
type Client struct {
	endpoint string
	http     *http.Client
	tracer   trace.Tracer
}

// New creates a client for endpoint, e.g. "http://localhost:8080/get_landmarks".
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		tracer:   telemetry.Tracer("landmarkmap/landmarkapi"),
	}
}

// Fetch runs one landmark query. Transport errors, non-2xx statuses and
// undecodable bodies are reported as *domain.FetchFailure.
func (c *Client) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error) {
	ctx, span := c.tracer.Start(ctx, "landmarkapi.Fetch", trace.WithAttributes(
		attribute.Int64("landmark.sequence", int64(req.Sequence)),
		attribute.String("landmark.query_kind", string(req.Query.Kind)),
	))
	defer span.End()

	landmarks, err := c.fetch(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("landmark.count", len(landmarks)))
	return landmarks, nil
}

func (c *Client) fetch(ctx context.Context, q domain.ViewportQuery) ([]domain.Landmark, error) {
	u, err := c.queryURL(q)
	if err != nil {
		return nil, &domain.FetchFailure{Op: domain.OpLandmarks, Message: "build landmark query", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.FetchFailure{Op: domain.OpLandmarks, Message: "build landmark query", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &domain.FetchFailure{Op: domain.OpLandmarks, Message: "landmark query failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil, &domain.FetchFailure{Op: domain.OpLandmarks, Message: "landmark query failed", StatusCode: resp.StatusCode}
	}

	var landmarks []domain.Landmark
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&landmarks); err != nil {
		return nil, &domain.FetchFailure{Op: domain.OpLandmarks, Message: "decode landmarks", Err: err}
	}
	if landmarks == nil {
		landmarks = []domain.Landmark{}
	}
	return landmarks, nil
}

// queryURL encodes the active query variant as query-string parameters.
func (c *Client) queryURL(q domain.ViewportQuery) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	params := u.Query()
	switch q.Kind {
	case domain.QueryBounds:
		params.Set("north", formatCoord(q.Bounds.North))
		params.Set("south", formatCoord(q.Bounds.South))
		params.Set("east", formatCoord(q.Bounds.East))
		params.Set("west", formatCoord(q.Bounds.West))
	case domain.QueryPoint:
		params.Set("lat", formatCoord(q.Point.Location.Lat))
		params.Set("lon", formatCoord(q.Point.Location.Lon))
		params.Set("search", q.Point.SearchText)
	default:
		return "", fmt.Errorf("unknown query kind %q", q.Kind)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
