package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"routeplan/internal/model"
)

func mustProblem(t *testing.T, locs []model.Location, mat model.TimeMatrix, vehs []model.Vehicle, horizon, service int64) *model.Problem {
	t.Helper()
	p, err := model.New(locs, mat, vehs, horizon, service)
	require.NoError(t, err)
	return p
}

func TestEncodeMapsUnreachableToInfCost(t *testing.T) {
	locs := []model.Location{{}, {}, {}}
	mat := model.TimeMatrix{{0, 10, model.Unreachable}, {10, 0, 5}, {7, 5, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	m, err := Encode(p)
	require.NoError(t, err)
	require.Equal(t, InfCost, m.Cost[0][2])
	require.Equal(t, int64(10), m.Cost[0][1])
	require.Equal(t, []int{1, 2}, m.Visits)
	require.Equal(t, []int{0}, m.Starts)
	require.Equal(t, []int{0}, m.Ends)
}

func TestEncodeExcludesAllPinnedNodesFromVisits(t *testing.T) {
	locs := []model.Location{{}, {}, {}, {}}
	mat := model.TimeMatrix{
		{0, 1, 1, 1},
		{1, 0, 1, 1},
		{1, 1, 0, 1},
		{1, 1, 1, 0},
	}
	// distinct start and end depots for each vehicle
	vehs := []model.Vehicle{{Start: 0, End: 1}, {Start: 2, End: 3}}
	p := mustProblem(t, locs, mat, vehs, 100, 0)

	m, err := Encode(p)
	require.NoError(t, err)
	require.Empty(t, m.Visits)
}

func TestEncodeSortsBreaksByWindow(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	vehs := []model.Vehicle{{Start: 0, End: 0, Breaks: []model.Break{
		{Duration: 5, EarliestStart: 50, LatestStart: 60},
		{Duration: 3, EarliestStart: 0, LatestStart: 20},
	}}}
	p := mustProblem(t, locs, mat, vehs, 200, 0)

	m, err := Encode(p)
	require.NoError(t, err)
	require.Len(t, m.Breaks[0], 2)
	require.Equal(t, int64(0), m.Breaks[0][0].EarliestStart)
	require.Equal(t, int64(50), m.Breaks[0][1].EarliestStart)
}

func TestEncodeRejectsBreaksBeyondHorizon(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	vehs := []model.Vehicle{{Start: 0, End: 0, Breaks: []model.Break{
		{Duration: 50, EarliestStart: 0, LatestStart: 5},
	}}}
	p := mustProblem(t, locs, mat, vehs, 30, 0)

	_, err := Encode(p)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestEncodeRejectsBreaksWithConflictingWindows(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	// each break fits on its own, but the first cannot finish before the
	// second's window closes
	vehs := []model.Vehicle{{Start: 0, End: 0, Breaks: []model.Break{
		{Duration: 10, EarliestStart: 0, LatestStart: 0},
		{Duration: 5, EarliestStart: 5, LatestStart: 8},
	}}}
	p := mustProblem(t, locs, mat, vehs, 100, 0)

	_, err := Encode(p)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestEncodeUnservableVisitIsInfeasible(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, model.Unreachable}, {model.Unreachable, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	_, err := Encode(p)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestDecodeRoundTrip(t *testing.T) {
	locs := []model.Location{{Label: "a"}, {Label: "b"}, {Label: "c"}}
	mat := model.TimeMatrix{{0, 10, 20}, {10, 0, 5}, {20, 5, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 200, 2)

	// 0 ->(10) 1 ->(5) 2 ->(20) 0 with 2s service at every stop but the last
	a := &Assignment{Routes: []VehicleRoute{{
		Nodes: []int{0, 1, 2, 0},
		Times: []int64{0, 12, 19, 41},
	}}}
	sol, err := Decode(p, a)
	require.NoError(t, err)
	require.Len(t, sol.Routes, 1)
	rt := sol.Routes[0]
	require.Equal(t, int64(41), rt.Duration)
	require.Equal(t, int64(41), sol.TotalTime)
	require.Equal(t, int64(12), rt.Stops[1].Arrival)
	require.Equal(t, int64(14), rt.Stops[1].Departure)
	// no service dwell at the final stop
	require.Equal(t, rt.Stops[3].Arrival, rt.Stops[3].Departure)
}

func TestDecodeRejectsWrongRouteCount(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	_, err := Decode(p, &Assignment{})
	require.Error(t, err)
}

func TestDecodeRejectsMissedVisit(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	// start -> end directly, skipping visit 1
	a := &Assignment{Routes: []VehicleRoute{{Nodes: []int{0, 0}, Times: []int64{0, 0}}}}
	_, err := Decode(p, a)
	require.Error(t, err)
	require.Contains(t, err.Error(), "visited 0 times")
}

func TestDecodeRejectsTimeAccountingViolation(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	a := &Assignment{Routes: []VehicleRoute{{Nodes: []int{0, 1, 0}, Times: []int64{0, 9, 20}}}}
	_, err := Decode(p, a)
	require.Error(t, err)
	require.Contains(t, err.Error(), "arrival at stop 1")
}

func TestDecodeRejectsHorizonViolation(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 15, 0)

	a := &Assignment{Routes: []VehicleRoute{{Nodes: []int{0, 1, 0}, Times: []int64{0, 10, 20}}}}
	_, err := Decode(p, a)
	require.Error(t, err)
	require.Contains(t, err.Error(), "horizon")
}

func TestDecodeBreakWindows(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	vehs := []model.Vehicle{{Start: 0, End: 0, Breaks: []model.Break{{Duration: 5, EarliestStart: 0, LatestStart: 20}}}}
	p := mustProblem(t, locs, mat, vehs, 100, 0)

	// break at departure from the start node pushes every later arrival
	good := &Assignment{Routes: []VehicleRoute{{
		Nodes:  []int{0, 1, 0},
		Times:  []int64{0, 15, 25},
		Breaks: []PlacedBreak{{After: 0, Start: 0, Duration: 5}},
	}}}
	sol, err := Decode(p, good)
	require.NoError(t, err)
	require.Equal(t, int64(25), sol.TotalTime)
	require.Len(t, sol.Routes[0].Breaks, 1)
	require.Equal(t, int64(5), sol.Routes[0].Breaks[0].End)

	// missing break
	missing := &Assignment{Routes: []VehicleRoute{{Nodes: []int{0, 1, 0}, Times: []int64{0, 10, 20}}}}
	_, err = Decode(p, missing)
	require.Error(t, err)
	require.Contains(t, err.Error(), "break windows")

	// break outside its window
	late := &Assignment{Routes: []VehicleRoute{{
		Nodes:  []int{0, 1, 0},
		Times:  []int64{0, 10, 25},
		Breaks: []PlacedBreak{{After: 1, Start: 30, Duration: 5}},
	}}}
	_, err = Decode(p, late)
	require.Error(t, err)
}

type stubOracle struct {
	a   *Assignment
	err error
}

func (o *stubOracle) Solve(_ context.Context, _ *EncodedModel, _ time.Duration) (*Assignment, error) {
	return o.a, o.err
}

func TestSolveWrapsInfeasibleWithConstraints(t *testing.T) {
	locs := []model.Location{{}, {}, {}}
	mat := model.TimeMatrix{{0, 10, model.Unreachable}, {10, 0, 5}, {7, 5, 0}}
	vehs := []model.Vehicle{{Start: 0, End: 0, Breaks: []model.Break{{Duration: 5, EarliestStart: 0, LatestStart: 10}}}}
	p := mustProblem(t, locs, mat, vehs, 100, 0)

	_, err := Solve(context.Background(), p, &stubOracle{err: ErrInfeasible}, time.Second)
	require.ErrorIs(t, err, ErrInfeasible)
	var inf *InfeasibleError
	require.True(t, errors.As(err, &inf))
	require.Contains(t, inf.Constraints, "horizon")
	require.Contains(t, inf.Constraints, "breaks")
	require.Contains(t, inf.Constraints, "unreachable pairs")
}

func TestSolvePropagatesTimeLimitUnchanged(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	_, err := Solve(context.Background(), p, &stubOracle{err: ErrTimeLimit}, time.Second)
	require.ErrorIs(t, err, ErrTimeLimit)
	require.NotErrorIs(t, err, ErrInfeasible)
}

func TestSolveDecodesOracleAssignment(t *testing.T) {
	locs := []model.Location{{}, {}}
	mat := model.TimeMatrix{{0, 10}, {10, 0}}
	p := mustProblem(t, locs, mat, []model.Vehicle{{Start: 0, End: 0}}, 100, 0)

	a := &Assignment{Routes: []VehicleRoute{{Nodes: []int{0, 1, 0}, Times: []int64{0, 10, 20}}}}
	sol, err := Solve(context.Background(), p, &stubOracle{a: a}, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(20), sol.TotalTime)
}
