// Command catalog builds a landmark catalog file from a CSV of places:
//
//	catalog places.csv [catalog.json]
//
// Columns: title, category, summary, lat, lon, geocode. Only title is
// required; rows without lat/lon are resolved through the configured geocoder
// using the geocode column, or the title when it is empty.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/landmarkmap/internal/adapters/memcache"
	"github.com/samirrijal/landmarkmap/internal/adapters/nominatim"
	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
	"github.com/samirrijal/landmarkmap/internal/core/usecases"
	"github.com/samirrijal/landmarkmap/internal/pkg/config"
	"github.com/samirrijal/landmarkmap/internal/pkg/logging"
)

// place is one CSV row. Rows without coordinates are geocoded by Query.
type place struct {
	Line     int
	Landmark domain.Landmark
	Query    string
	Located  bool
}

func main() {
	cfg, err := config.Load("landmarkmap-catalog")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text", cfg.Telemetry.ServiceName)

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s places.csv [catalog.json]", os.Args[0])
	}
	outPath := "catalog.json"
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open places: %v", err)
	}
	places, err := readPlaces(f)
	f.Close()
	if err != nil {
		log.Fatalf("read places: %v", err)
	}

	geocoder := usecases.NewGeocodeService(
		nominatim.New(cfg.Geocoder.Server, cfg.Geocoder.RatePerSecond),
		memcache.New(time.Hour, 10*time.Minute),
		cfg.Geocoder.CacheTTLSeconds,
	)

	landmarks := resolvePlaces(context.Background(), geocoder, places, 4)

	data, err := json.MarshalIndent(landmarks, "", "  ")
	if err != nil {
		log.Fatalf("encode catalog: %v", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("write catalog: %v", err)
	}

	slog.Info("catalog written", "path", outPath, "landmarks", len(landmarks), "rows", len(places))
}

// readPlaces parses the CSV. Rows with no title or unparseable coordinates
// are skipped with a warning.
func readPlaces(r io.Reader) ([]place, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["title"]; !ok {
		return nil, errors.New("header: title column is required")
	}

	var places []place
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping malformed row", "line", line, "error", err)
			continue
		}

		p := place{
			Line: line,
			Landmark: domain.Landmark{
				Title:    getField(record, cols, "title"),
				Summary:  getField(record, cols, "summary"),
				Category: domain.ParseCategory(getField(record, cols, "category")),
			},
			Query: getField(record, cols, "geocode"),
		}
		if p.Landmark.Title == "" {
			slog.Warn("skipping row without title", "line", line)
			continue
		}
		if p.Query == "" {
			p.Query = p.Landmark.Title
		}

		rawLat, rawLon := getField(record, cols, "lat"), getField(record, cols, "lon")
		if rawLat != "" || rawLon != "" {
			lat, errLat := strconv.ParseFloat(rawLat, 64)
			lon, errLon := strconv.ParseFloat(rawLon, 64)
			pt := domain.GeoPoint{Lat: lat, Lon: lon}
			if errLat != nil || errLon != nil || !pt.Valid() {
				slog.Warn("skipping row with invalid coordinates", "line", line, "lat", rawLat, "lon", rawLon)
				continue
			}
			p.Landmark.Lat, p.Landmark.Lon = lat, lon
			p.Located = true
		}

		places = append(places, p)
	}
	return places, nil
}

// resolvePlaces geocodes unlocated places with at most workers lookups in
// flight. Places that cannot be located are dropped. Output keeps input order.
func resolvePlaces(ctx context.Context, geocoder ports.Geocoder, places []place, workers int) []domain.Landmark {
	resolved := make([]*domain.Landmark, len(places))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i := range places {
		p := places[i]
		if p.Located {
			l := p.Landmark
			resolved[i] = &l
			continue
		}

		wg.Add(1)
		go func(i int, p place) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			pt, err := geocoder.Geocode(ctx, p.Query)
			if err != nil {
				slog.Warn("geocode failed, dropping place", "line", p.Line, "query", p.Query, "error", err)
				return
			}
			l := p.Landmark
			l.Lat, l.Lon = pt.Lat, pt.Lon
			resolved[i] = &l
		}(i, p)
	}
	wg.Wait()

	out := make([]domain.Landmark, 0, len(places))
	for _, l := range resolved {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		// Strip BOM from first column
		h = strings.TrimPrefix(h, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
