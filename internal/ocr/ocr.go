package ocr

import (
	"context"
	"strings"
)

// Candidate is the metadata an extractor proposes for a receipt image.
// Empty fields mean "no guess"; the capture flow fills defaults.
type Candidate struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Store  string `json:"store"`
}

// Extractor reads receipt metadata from an image.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (Candidate, error)
	Name() string
}

// Registry holds named extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds an extractor. Panics on duplicate name.
func (r *Registry) Register(e Extractor) {
	key := strings.ToLower(e.Name())
	if _, ok := r.extractors[key]; ok {
		panic("duplicate extractor: " + key)
	}
	r.extractors[key] = e
}

// Get returns the extractor registered under name, or nil.
func (r *Registry) Get(name string) Extractor {
	return r.extractors[strings.ToLower(name)]
}

// DefaultRegistry returns a registry with the built-in extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewMock(nil, nil))
	r.Register(Manual{})
	return r
}

// Manual proposes nothing; the user types every field.
type Manual struct{}

// Name returns "manual".
func (Manual) Name() string { return "manual" }

// Extract returns an empty Candidate.
func (Manual) Extract(ctx context.Context, _ []byte, _ string) (Candidate, error) {
	return Candidate{}, ctx.Err()
}
