package usecases

import "github.com/samirrijal/landmarkmap/internal/core/domain"

// CategoryFilter holds the user's category toggles and pushes them to the
// marker store. It never touches the network.
type CategoryFilter struct {
	enabled domain.CategorySet
	store   *MarkerStore
}

// NewCategoryFilter starts with every category enabled.
func NewCategoryFilter(store *MarkerStore) *CategoryFilter {
	return &CategoryFilter{enabled: domain.AllCategories(), store: store}
}

// Set enables or disables c and applies the result immediately.
func (f *CategoryFilter) Set(c domain.Category, enabled bool) {
	if !c.Known() {
		c = domain.CategoryOther
	}
	if enabled {
		f.enabled[c] = struct{}{}
	} else {
		delete(f.enabled, c)
	}
	f.store.SetVisibility(f.enabled)
}

// Toggle flips c and returns its new state.
func (f *CategoryFilter) Toggle(c domain.Category) bool {
	on := !f.IsEnabled(c)
	f.Set(c, on)
	return on
}

// IsEnabled reports whether markers of category c are shown.
func (f *CategoryFilter) IsEnabled(c domain.Category) bool {
	return f.enabled.Has(c)
}

// Enabled returns a copy of the enabled set.
func (f *CategoryFilter) Enabled() domain.CategorySet {
	return f.enabled.Clone()
}
