// Package nominatim geocodes free text through an OpenStreetMap Nominatim server.
package nominatim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/muesli/gominatim"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/pkg/telemetry"
)

// DefaultServer is the public OpenStreetMap instance.
const DefaultServer = "https://nominatim.openstreetmap.org"

// gominatim keeps its server in package state.
var serverMu sync.Mutex

// Geocoder implements ports.Geocoder. Requests are throttled to the server's
// usage policy.
type Geocoder struct {
	server  string
	limiter *rate.Limiter
	retries int
	tracer  trace.Tracer
}

// New creates a geocoder for server, allowing ratePerSecond requests per second.
func New(server string, ratePerSecond float64) *Geocoder {
	if server == "" {
		server = DefaultServer
	}
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Geocoder{
		server:  strings.TrimRight(server, "/"),
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		retries: 1,
		tracer:  telemetry.Tracer("landmarkmap/nominatim"),
	}
}

// Geocode returns the coordinate of the first match for text. No match is
// domain.ErrNotFound; transport or decoding problems are *domain.FetchFailure.
func (g *Geocoder) Geocode(ctx context.Context, text string) (domain.GeoPoint, error) {
	ctx, span := g.tracer.Start(ctx, "nominatim.Geocode", trace.WithAttributes(
		attribute.String("geocode.query", text),
	))
	defer span.End()

	p, err := g.geocode(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.GeoPoint{}, err
	}
	return p, nil
}

func (g *Geocoder) geocode(ctx context.Context, text string) (domain.GeoPoint, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.GeoPoint{}, &domain.FetchFailure{Op: domain.OpGeocode, Message: "geocoding request cancelled", Err: err}
	}

	res, err := g.search(ctx, text)
	if err != nil {
		if nothingFound(err) {
			return domain.GeoPoint{}, domain.ErrNotFound
		}
		return domain.GeoPoint{}, &domain.FetchFailure{Op: domain.OpGeocode, Message: "geocoding request failed", Err: err}
	}
	if len(res) == 0 {
		return domain.GeoPoint{}, domain.ErrNotFound
	}

	lat, err := strconv.ParseFloat(res[0].Lat, 64)
	if err != nil {
		return domain.GeoPoint{}, &domain.FetchFailure{Op: domain.OpGeocode, Message: "invalid geocoder latitude", Err: err}
	}
	lon, err := strconv.ParseFloat(res[0].Lon, 64)
	if err != nil {
		return domain.GeoPoint{}, &domain.FetchFailure{Op: domain.OpGeocode, Message: "invalid geocoder longitude", Err: err}
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, &domain.FetchFailure{Op: domain.OpGeocode, Message: fmt.Sprintf("geocoder returned invalid point %s,%s", res[0].Lat, res[0].Lon)}
	}
	return p, nil
}

type searchResult struct {
	res []gominatim.SearchResult
	err error
}

// search runs the blocking query off the caller's goroutine so ctx can abandon it.
// Truncated responses are retried.
func (g *Geocoder) search(ctx context.Context, text string) ([]gominatim.SearchResult, error) {
	done := make(chan searchResult, 1)
	go func() {
		serverMu.Lock()
		defer serverMu.Unlock()
		gominatim.SetServer(g.server)

		q := gominatim.SearchQuery{Q: text, Limit: 1}
		var r searchResult
		for attempt := 0; attempt <= g.retries; attempt++ {
			r.res, r.err = q.Get()
			if r.err == nil || !transient(r.err) {
				break
			}
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// gominatim reports an empty result list as an error rather than an empty slice.
const nothingFoundMessage = "Nothing found"

func nothingFound(err error) bool {
	return strings.Contains(err.Error(), nothingFoundMessage)
}

func transient(err error) bool {
	if nothingFound(err) {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") || strings.Contains(s, "EOF")
}
