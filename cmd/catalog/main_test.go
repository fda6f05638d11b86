package main

import (
	"context"
	"strings"
	"testing"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, text string) (domain.GeoPoint, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, text string) (domain.GeoPoint, error) {
	return m.geocodeFn(ctx, text)
}

func TestReadPlaces(t *testing.T) {
	input := "\xef\xbb\xbfTitle,Category,Summary,Lat,Lon,Geocode\n" +
		"Guggenheim Museum Bilbao,cultural,Museum,43.2687,-2.934,\n" +
		"Arriaga,Swamp,Theatre,,,Teatro Arriaga Bilbao\n" +
		",Natural,No title,1,1,\n" +
		"Broken,Natural,Bad coords,abc,1,\n" +
		"Mundaka,Natural,Surf\n"

	places, err := readPlaces(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(places))
	}

	if !places[0].Located || places[0].Landmark.Lat != 43.2687 || places[0].Landmark.Category != domain.CategoryCultural {
		t.Errorf("unexpected first place %+v", places[0])
	}
	if places[1].Located || places[1].Query != "Teatro Arriaga Bilbao" || places[1].Landmark.Category != domain.CategoryOther {
		t.Errorf("unexpected second place %+v", places[1])
	}
	if places[2].Query != "Mundaka" || places[2].Line != 6 {
		t.Errorf("expected title as query on line 6, got %+v", places[2])
	}
}

func TestReadPlaces_RequiresTitleColumn(t *testing.T) {
	if _, err := readPlaces(strings.NewReader("name,lat,lon\nA,1,1\n")); err == nil {
		t.Fatal("expected error without title column")
	}
}

func TestResolvePlaces(t *testing.T) {
	geo := &mockGeocoder{
		geocodeFn: func(ctx context.Context, text string) (domain.GeoPoint, error) {
			if text == "Atlantis" {
				return domain.GeoPoint{}, domain.ErrNotFound
			}
			return domain.GeoPoint{Lat: 43.26, Lon: -2.93}, nil
		},
	}
	places := []place{
		{Landmark: domain.Landmark{Title: "A", Lat: 1, Lon: 2}, Located: true},
		{Landmark: domain.Landmark{Title: "B"}, Query: "Bilbao"},
		{Landmark: domain.Landmark{Title: "C"}, Query: "Atlantis"},
		{Landmark: domain.Landmark{Title: "D"}, Query: "Bilbao"},
	}

	got := resolvePlaces(context.Background(), geo, places, 2)
	if len(got) != 3 {
		t.Fatalf("expected 3 landmarks, got %d", len(got))
	}
	for i, want := range []string{"A", "B", "D"} {
		if got[i].Title != want {
			t.Errorf("landmark %d: expected %s, got %s", i, want, got[i].Title)
		}
	}
	if got[0].Lat != 1 || got[1].Lat != 43.26 {
		t.Errorf("unexpected coordinates %+v", got)
	}
}
