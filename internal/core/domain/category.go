package domain

import (
	"encoding/json"
	"strings"
)

// Category is the closed set of landmark tags used for styling and filtering.
type Category string

const (
	CategoryHistorical  Category = "Historical"
	CategoryCultural    Category = "Cultural"
	CategoryNatural     Category = "Natural"
	CategoryEducational Category = "Educational"
	CategoryReligious   Category = "Religious"
	CategoryCommercial  Category = "Commercial"
	CategoryOther       Category = "Other"
)

// Categories lists every tag in display order.
var Categories = []Category{
	CategoryHistorical,
	CategoryCultural,
	CategoryNatural,
	CategoryEducational,
	CategoryReligious,
	CategoryCommercial,
	CategoryOther,
}

// CategoryVisual is the glyph and color a category renders with.
type CategoryVisual struct {
	Glyph string `json:"glyph"`
	Color string `json:"color"`
}

var categoryVisuals = map[Category]CategoryVisual{
	CategoryHistorical:  {Glyph: "landmark", Color: "#8B4513"},
	CategoryCultural:    {Glyph: "theater-masks", Color: "#9C27B0"},
	CategoryNatural:     {Glyph: "tree", Color: "#2E7D32"},
	CategoryEducational: {Glyph: "graduation-cap", Color: "#1565C0"},
	CategoryReligious:   {Glyph: "place-of-worship", Color: "#6D4C41"},
	CategoryCommercial:  {Glyph: "shopping-cart", Color: "#F57C00"},
	CategoryOther:       {Glyph: "map-marker-alt", Color: "#607D8B"},
}

// ParseCategory maps a raw tag onto the closed set. Matching is case-insensitive;
// empty or unknown values resolve to CategoryOther.
func ParseCategory(raw string) Category {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) {
			return c
		}
	}
	return CategoryOther
}

// Known reports whether c is one of the enumerated tags.
func (c Category) Known() bool {
	_, ok := categoryVisuals[c]
	return ok
}

// Visual resolves the glyph and color for c, falling back to Other.
func (c Category) Visual() CategoryVisual {
	if v, ok := categoryVisuals[c]; ok {
		return v
	}
	return categoryVisuals[CategoryOther]
}

// UnmarshalJSON normalizes any incoming tag so that decoded landmarks always
// carry a member of the closed set.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw string
	if string(data) != "null" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	*c = ParseCategory(raw)
	return nil
}

// CategorySet is a set of enabled categories.
type CategorySet map[Category]struct{}

// AllCategories returns a set containing every category.
func AllCategories() CategorySet {
	s := make(CategorySet, len(Categories))
	for _, c := range Categories {
		s[c] = struct{}{}
	}
	return s
}

// Has reports membership. Unknown tags are treated as Other.
func (s CategorySet) Has(c Category) bool {
	if !c.Known() {
		c = CategoryOther
	}
	_, ok := s[c]
	return ok
}

// Clone returns an independent copy.
func (s CategorySet) Clone() CategorySet {
	out := make(CategorySet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the members in display order.
func (s CategorySet) Sorted() []Category {
	out := make([]Category, 0, len(s))
	for _, c := range Categories {
		if _, ok := s[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
