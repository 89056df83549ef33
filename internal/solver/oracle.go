package solver

import (
	"context"
	"time"
)

// PlacedBreak is a break scheduled by the oracle: it follows the node at
// position After in the route's node sequence and occupies
// [Start, Start+Duration] in cumulative route seconds.
type PlacedBreak struct {
	After    int
	Start    int64
	Duration int64
}

// VehicleRoute is the oracle's raw answer for one vehicle: the ordered node
// sequence including the pinned start and end, the cumulative time value at
// each node, and any breaks it scheduled.
type VehicleRoute struct {
	Nodes  []int
	Times  []int64
	Breaks []PlacedBreak
}

// Assignment holds one VehicleRoute per vehicle, index-aligned with the
// encoded model's fleet.
type Assignment struct {
	Routes []VehicleRoute
}

// Oracle is the external search engine boundary. Solve returns exactly one
// of: an Assignment covering every visit, ErrInfeasible, ErrTimeLimit, or a
// transport-level error. A non-positive limit yields ErrTimeLimit without
// searching.
type Oracle interface {
	Solve(ctx context.Context, m *EncodedModel, limit time.Duration) (*Assignment, error)
}
