package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category identifies the kind of job a buyer posts.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryTour      Category = "tour"
	CategoryService   Category = "service"
	CategoryFinancing Category = "financing"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryTransport,
	CategoryTour,
	CategoryService,
	CategoryFinancing,
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTransport, CategoryTour, CategoryService, CategoryFinancing:
		return true
	default:
		return false
	}
}

// ParseCategory normalizes s and returns the matching Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", eris.Errorf("model: unknown category %q", s)
	}
	return c, nil
}
