package matrix

import (
	"context"
	"errors"

	"routeplan/internal/model"
)

// ErrTooFewLocations is returned for inputs a pairwise matrix makes no
// sense for.
var ErrTooFewLocations = errors.New("matrix: need at least two locations")

// Contract for producing a travel-time matrix over an ordered location set.
// Implementations must preserve input order as matrix indices and must mark
// pairs with no route as model.Unreachable rather than inventing a number.
type Provider interface {
	// Matrix returns the square travel-time matrix for the given locations.
	Matrix(ctx context.Context, locations []model.Location) (model.TimeMatrix, error)
}

// APIError is a non-OK status from the remote matrix service.
type APIError struct {
	Status string
}

func (e *APIError) Error() string {
	return "matrix: api returned status " + e.Status
}
