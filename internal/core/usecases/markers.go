package usecases

import (
	"github.com/google/uuid"

	"github.com/samirrijal/landmarkmap/internal/core/domain"
	"github.com/samirrijal/landmarkmap/internal/core/ports"
)

// MarkerEntry is one displayed landmark. Entries are keyed by their position
// in the fetch result that produced them.
type MarkerEntry struct {
	Landmark domain.Landmark     `json:"landmark"`
	Visual   domain.MarkerVisual `json:"visual"`
	Category domain.Category     `json:"category"`
	Visible  bool                `json:"visible"`
}

// MarkerStore owns the landmark markers on the map.
type MarkerStore struct {
	widget  ports.MapWidget
	entries []*MarkerEntry
	enabled domain.CategorySet
	newID   func() string
}

// NewMarkerStore creates an empty store with every category visible.
func NewMarkerStore(widget ports.MapWidget) *MarkerStore {
	return &MarkerStore{
		widget:  widget,
		enabled: domain.AllCategories(),
		newID:   uuid.NewString,
	}
}

// ReplaceAll destroys every current marker and creates one per landmark,
// honouring the enabled category set. The widget sees the removals and
// additions inside the same flush.
func (s *MarkerStore) ReplaceAll(landmarks []domain.Landmark) {
	for _, e := range s.entries {
		if e.Visible {
			s.widget.RemoveMarker(e.Visual.ID)
		}
	}

	entries := make([]*MarkerEntry, 0, len(landmarks))
	for _, l := range landmarks {
		cat := l.Category
		if !cat.Known() {
			cat = domain.CategoryOther
		}
		vis := cat.Visual()
		e := &MarkerEntry{
			Landmark: l,
			Category: cat,
			Visual: domain.MarkerVisual{
				ID:       s.newID(),
				Location: l.Location(),
				Title:    l.Title,
				Popup:    l.Summary,
				Glyph:    vis.Glyph,
				Color:    vis.Color,
			},
		}
		if s.enabled.Has(cat) {
			s.widget.AddMarker(e.Visual)
			e.Visible = true
		}
		entries = append(entries, e)
	}
	s.entries = entries
}

// SetVisibility shows markers whose category is enabled and hides the rest.
// Hidden markers keep their entry and visual.
func (s *MarkerStore) SetVisibility(enabled domain.CategorySet) {
	s.enabled = enabled.Clone()
	for _, e := range s.entries {
		want := s.enabled.Has(e.Category)
		if want == e.Visible {
			continue
		}
		if want {
			s.widget.AddMarker(e.Visual)
		} else {
			s.widget.RemoveMarker(e.Visual.ID)
		}
		e.Visible = want
	}
}

// Entries returns a copy of the current entries in fetch order.
func (s *MarkerStore) Entries() []MarkerEntry {
	out := make([]MarkerEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries, visible or not.
func (s *MarkerStore) Len() int { return len(s.entries) }

// VisibleCount returns the number of markers currently on the map.
func (s *MarkerStore) VisibleCount() int {
	n := 0
	for _, e := range s.entries {
		if e.Visible {
			n++
		}
	}
	return n
}
