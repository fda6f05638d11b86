package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
)

// CatalogService backs the development landmark endpoint. The catalog is
// served as-is for any valid query; spatial and text filtering belong to the
// real landmark backend.
type CatalogService struct {
	landmarks []domain.Landmark
}

// NewCatalogService creates a CatalogService over landmarks.
func NewCatalogService(landmarks []domain.Landmark) *CatalogService {
	return &CatalogService{landmarks: landmarks}
}

// Query returns the catalog for a validated query.
func (s *CatalogService) Query(ctx context.Context, q domain.ViewportQuery) ([]domain.Landmark, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	out := make([]domain.Landmark, len(s.landmarks))
	copy(out, s.landmarks)
	return out, nil
}

// Fetch lets the catalog stand in for the remote landmark source.
func (s *CatalogService) Fetch(ctx context.Context, req domain.FetchRequest) ([]domain.Landmark, error) {
	return s.Query(ctx, req.Query)
}

// Len returns the catalog size.
func (s *CatalogService) Len() int { return len(s.landmarks) }

// LoadCatalog reads a JSON array of {lat, lon, title, summary, category}.
func LoadCatalog(path string) ([]domain.Landmark, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var landmarks []domain.Landmark
	if err := json.Unmarshal(data, &landmarks); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return landmarks, nil
}

// SampleCatalog is the built-in demonstration data set.
func SampleCatalog() []domain.Landmark {
	return []domain.Landmark{
		{Title: "Eiffel Tower", Lat: 48.8584, Lon: 2.2945, Summary: "Iconic iron tower in Paris.", Category: domain.CategoryHistorical},
		{Title: "Statue of Liberty", Lat: 40.6892, Lon: -74.0445, Summary: "Colossal statue in New York Harbor.", Category: domain.CategoryCultural},
		{Title: "Colosseum", Lat: 41.8902, Lon: 12.4922, Summary: "Ancient amphitheater in Rome.", Category: domain.CategoryHistorical},
		{Title: "Sagrada Família", Lat: 41.4036, Lon: 2.1744, Summary: "Unfinished basilica designed by Antoni Gaudí.", Category: domain.CategoryReligious},
		{Title: "Guggenheim Museum Bilbao", Lat: 43.2687, Lon: -2.9340, Summary: "Museum of modern and contemporary art.", Category: domain.CategoryCultural},
		{Title: "Yosemite Valley", Lat: 37.7456, Lon: -119.5936, Summary: "Glacial valley in the Sierra Nevada.", Category: domain.CategoryNatural},
		{Title: "University of Oxford", Lat: 51.7548, Lon: -1.2544, Summary: "Oldest university in the English-speaking world.", Category: domain.CategoryEducational},
		{Title: "Grand Bazaar", Lat: 41.0107, Lon: 28.9681, Summary: "One of the largest covered markets in the world.", Category: domain.CategoryCommercial},
	}
}
