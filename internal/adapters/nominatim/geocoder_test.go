package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

func TestGeocoder_FirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"43.2630","lon":"-2.9350","display_name":"Bilbao, Biscay, Spain"},
			{"lat":"10","lon":"10","display_name":"Elsewhere"}]`))
	}))
	defer srv.Close()

	g := New(srv.URL, 100)
	p, err := g.Geocode(context.Background(), "Bilbao")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Lat != 43.263 || p.Lon != -2.935 {
		t.Errorf("unexpected point %+v", p)
	}
}

func TestGeocoder_EmptyResultIsNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := New(srv.URL, 100)
	_, err := g.Geocode(context.Background(), "zzzqxnonexistentplace")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrNetworkFailure) {
		t.Error("not found must not be reported as a network failure")
	}
	if got := domain.UserMessage(err); got != domain.UserMessage(domain.ErrNotFound) {
		t.Errorf("unexpected banner %q", got)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("an empty result must not be retried, got %d requests", n)
	}
}

func TestGeocoder_ServerErrorIsGeocodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`internal error`))
	}))
	defer srv.Close()

	g := New(srv.URL, 100)
	_, err := g.Geocode(context.Background(), "Bilbao")
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("server error must not read as not found: %v", err)
	}
	var ff *domain.FetchFailure
	if !errors.As(err, &ff) {
		t.Fatalf("expected FetchFailure, got %v", err)
	}
	if ff.Op != domain.OpGeocode {
		t.Errorf("expected geocode operation, got %q", ff.Op)
	}
}

func TestNothingFoundIsNotTransient(t *testing.T) {
	err := errors.New("Nothing found; sorry :/")
	if !nothingFound(err) {
		t.Error("expected gominatim empty-result error to be recognised")
	}
	if transient(err) {
		t.Error("empty result must not be retried")
	}
	if !transient(errors.New("unexpected end of JSON input")) {
		t.Error("truncated response should be retried")
	}
}

func TestGeocoder_CancelledWhileThrottled(t *testing.T) {
	g := New("http://127.0.0.1:1", 0.001)
	// Drain the single burst token.
	g.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Geocode(ctx, "Bilbao"); !errors.Is(err, domain.ErrNetworkFailure) {
		t.Fatalf("expected FetchFailure, got %v", err)
	}
}
