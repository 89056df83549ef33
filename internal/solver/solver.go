package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplan/internal/model"
)

// Solve runs the whole pipeline: encode the problem, hand it to the oracle,
// decode the raw assignment. Infeasibility is wrapped with the active
// constraint families as a diagnostic hint; a time limit propagates
// unchanged so callers can never mistake an exhausted budget for a proof.
func Solve(ctx context.Context, p *model.Problem, o Oracle, limit time.Duration) (*model.Solution, error) {
	m, err := Encode(p)
	if err != nil {
		if errors.Is(err, ErrInfeasible) {
			return nil, &InfeasibleError{Constraints: activeConstraints(p)}
		}
		return nil, err
	}

	a, err := o.Solve(ctx, m, limit)
	if err != nil {
		if errors.Is(err, ErrInfeasible) {
			return nil, &InfeasibleError{Constraints: activeConstraints(p)}
		}
		if errors.Is(err, ErrTimeLimit) {
			return nil, err
		}
		return nil, fmt.Errorf("solve: oracle: %w", err)
	}

	sol, err := Decode(p, a)
	if err != nil {
		return nil, err
	}
	return sol, nil
}

// activeConstraints names the constraint families present in the model.
// Diagnostic only; infeasibility may stem from any combination of them.
func activeConstraints(p *model.Problem) []string {
	out := []string{"horizon"}
	for _, v := range p.Vehicles {
		if len(v.Breaks) > 0 {
			out = append(out, "breaks")
			break
		}
	}
	for _, row := range p.Matrix {
		for _, t := range row {
			if t == model.Unreachable {
				return append(out, "unreachable pairs")
			}
		}
	}
	return out
}
