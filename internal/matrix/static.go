package matrix

import (
	"context"
	"fmt"

	"routeplan/internal/model"
)

// Static serves a fixed matrix. Used for problems submitted with an inline
// matrix and in tests; it still enforces the provider contract's shape.
type Static struct {
	m model.TimeMatrix
}

// NewStatic wraps a prebuilt matrix.
func NewStatic(m model.TimeMatrix) *Static { return &Static{m: m} }

// Matrix implements Provider.
func (s *Static) Matrix(_ context.Context, locations []model.Location) (model.TimeMatrix, error) {
	if len(locations) < 2 {
		return nil, ErrTooFewLocations
	}
	if len(s.m) != len(locations) {
		return nil, fmt.Errorf("matrix: static matrix is %dx%d, want %d locations", len(s.m), len(s.m), len(locations))
	}
	return s.m, nil
}
