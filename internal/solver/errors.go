package solver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInfeasible means it is proven that no assignment satisfies every
// constraint. It is never produced for an exhausted search budget; a
// heuristic oracle that merely failed to find a solution reports
// ErrTimeLimit instead.
var ErrInfeasible = errors.New("no feasible assignment")

// ErrTimeLimit means the search budget ran out before the oracle found a
// solution or proved there is none. It must never be presented as
// infeasibility: a time-out is not proof that no solution exists.
var ErrTimeLimit = errors.New("search time limit exceeded")

// InfeasibleError wraps ErrInfeasible with the constraint families that were
// active in the model. The list is a diagnostic hint, not a root cause.
type InfeasibleError struct {
	Constraints []string
}

func (e *InfeasibleError) Error() string {
	if len(e.Constraints) == 0 {
		return ErrInfeasible.Error()
	}
	return fmt.Sprintf("%v (active constraints: %s)", ErrInfeasible, strings.Join(e.Constraints, ", "))
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }
