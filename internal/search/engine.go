package search

import (
	"context"
	"math"
	"math/rand"
	"time"

	"routeplan/internal/solver"
)

// missingPenalty dominates any travel cost so the search always prefers
// assigning a visit over leaving it out.
const missingPenalty = solver.InfCost

// Engine is an adaptive large-neighborhood search over an encoded routing
// model: removal/insertion operators with adaptive roulette weights, a
// simulated-annealing acceptance criterion and an intra-route 2-opt pass.
// It implements solver.Oracle. Deterministic for a fixed Seed.
type Engine struct {
	Seed          int64
	MaxIterations int     // optional iteration cap; 0 means none
	StallLimit    int     // iterations without improvement before the search converges
	InitialTemp   float64 // initial temperature for the acceptance criterion
	Cooling       float64 // temperature factor per iteration
}

// Metrics describes one search run.
type Metrics struct {
	RemovalSelects        [2]int // random, related
	InsertSelects         [2]int // greedy, regret2
	Iterations            int
	Improvements          int
	AcceptedWorse         int
	BestCost              int64
	FinalRemovalWeights   [2]float64
	FinalInsertionWeights [2]float64
	Snapshots             []WeightSnapshot
}

// WeightSnapshot records adaptive operator weights at an iteration mark.
type WeightSnapshot struct {
	Iteration int
	Removal   [2]float64
	Insertion [2]float64
}

// New returns an Engine with default parameters and the given seed
// (0 selects a fixed default; runs stay reproducible either way).
func New(seed int64) *Engine {
	if seed == 0 {
		seed = 1
	}
	return &Engine{Seed: seed, StallLimit: 500, InitialTemp: 1.0, Cooling: 0.995}
}

// state is a working solution: per-vehicle visit orders plus the visits no
// feasible position was found for.
type state struct {
	orders  [][]int
	missing []int
	cost    int64
}

func (s state) clone() state {
	out := state{
		orders:  make([][]int, len(s.orders)),
		missing: append([]int(nil), s.missing...),
		cost:    s.cost,
	}
	for i := range s.orders {
		out.orders[i] = append([]int(nil), s.orders[i]...)
	}
	return out
}

// Solve implements solver.Oracle.
func (e *Engine) Solve(ctx context.Context, m *solver.EncodedModel, limit time.Duration) (*solver.Assignment, error) {
	a, _, err := e.SolveWithMetrics(ctx, m, limit)
	return a, err
}

// SolveWithMetrics runs the search and additionally reports run metrics.
func (e *Engine) SolveWithMetrics(ctx context.Context, m *solver.EncodedModel, limit time.Duration) (*solver.Assignment, Metrics, error) {
	var met Metrics
	if limit <= 0 {
		// Zero budget: nothing was searched, so nothing was proven.
		return nil, met, solver.ErrTimeLimit
	}
	rng := rand.New(rand.NewSource(e.Seed))
	stall := e.StallLimit
	if stall <= 0 {
		stall = 500
	}
	temp := e.InitialTemp
	if temp <= 0 {
		temp = 1.0
	}
	cool := e.Cooling
	if cool <= 0 || cool >= 1 {
		cool = 0.995
	}

	curr := greedySeed(m)
	best := curr.clone()
	met.BestCost = best.cost

	remW := [2]float64{1, 1}
	insW := [2]float64{1, 1}
	deadline := time.Now().Add(limit)
	sinceImproved := 0
	cancelled := false
	const snapshotEvery = 50

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if sinceImproved >= stall {
			break
		}
		met.Iterations++
		if e.MaxIterations > 0 && met.Iterations >= e.MaxIterations {
			break
		}

		k := 1 + rng.Intn(3)
		op := selectOp(remW[:], rng)
		met.RemovalSelects[op]++
		ip := selectOp(insW[:], rng)
		met.InsertSelects[ip]++

		cand := curr.clone()
		var removed []int
		switch op {
		case 0:
			removed = pickRandomVisits(cand, k, rng)
		case 1:
			removed = relatedRemoval(m, cand, k, rng)
		}
		dropVisits(&cand, removed)
		pool := append(removed, cand.missing...)
		cand.missing = nil
		switch ip {
		case 0:
			greedyInsert(m, &cand, pool)
		case 1:
			regretInsert(m, &cand, pool)
		}
		twoOptImprove(m, &cand)
		cand.cost = costOf(m, cand)

		delta := float64(cand.cost - best.cost)
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			curr = cand
			if cand.cost < best.cost {
				best = cand.clone()
				remW[op] += 0.1
				insW[ip] += 0.1
				met.Improvements++
				met.BestCost = best.cost
				sinceImproved = 0
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
				met.AcceptedWorse++
				sinceImproved++
			}
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
			sinceImproved++
		}
		temp *= cool
		if met.Iterations%snapshotEvery == 0 {
			met.Snapshots = append(met.Snapshots, WeightSnapshot{Iteration: met.Iterations, Removal: remW, Insertion: insW})
		}
	}
	met.FinalRemovalWeights = remW
	met.FinalInsertionWeights = insW

	if len(best.missing) == 0 {
		a, ok := buildAssignment(m, best)
		if ok {
			return a, met, nil
		}
	}
	if cancelled {
		return nil, met, ctx.Err()
	}
	// No feasible incumbent: nothing was proven, only the budget spent.
	// Infeasibility claims belong to the encoder's checks.
	return nil, met, solver.ErrTimeLimit
}

// greedySeed builds the initial solution by cheapest feasible insertion.
func greedySeed(m *solver.EncodedModel) state {
	s := state{orders: make([][]int, m.NumVehicles())}
	greedyInsert(m, &s, append([]int(nil), m.Visits...))
	s.cost = costOf(m, s)
	return s
}

// greedyInsert places each pool node at the globally cheapest feasible
// (vehicle, position); nodes with no feasible position land in missing.
func greedyInsert(m *solver.EncodedModel, s *state, pool []int) {
	for len(pool) > 0 {
		bestNode, bestVehicle, bestPos := -1, -1, -1
		bestDelta := int64(math.MaxInt64)
		for ni, node := range pool {
			for v := range s.orders {
				base, ok := propagate(m, v, s.orders[v])
				if !ok {
					continue
				}
				for pos := 0; pos <= len(s.orders[v]); pos++ {
					cand, ok := propagate(m, v, withInserted(s.orders[v], node, pos))
					if !ok {
						continue
					}
					if d := cand.travel - base.travel; d < bestDelta {
						bestDelta = d
						bestNode = ni
						bestVehicle = v
						bestPos = pos
					}
				}
			}
		}
		if bestNode == -1 {
			s.missing = append(s.missing, pool...)
			return
		}
		s.orders[bestVehicle] = withInserted(s.orders[bestVehicle], pool[bestNode], bestPos)
		pool = append(pool[:bestNode], pool[bestNode+1:]...)
	}
}

// regretInsert places pool nodes by largest regret-2 (gap between the best
// and second-best feasible insertion) first.
func regretInsert(m *solver.EncodedModel, s *state, pool []int) {
	for len(pool) > 0 {
		chosen, chosenVehicle, chosenPos := -1, -1, -1
		chosenRegret := int64(-1)
		chosenBest := int64(math.MaxInt64)
		for ni, node := range pool {
			best1, best2 := int64(math.MaxInt64), int64(math.MaxInt64)
			bv, bp := -1, -1
			for v := range s.orders {
				base, ok := propagate(m, v, s.orders[v])
				if !ok {
					continue
				}
				for pos := 0; pos <= len(s.orders[v]); pos++ {
					cand, ok := propagate(m, v, withInserted(s.orders[v], node, pos))
					if !ok {
						continue
					}
					d := cand.travel - base.travel
					if d < best1 {
						best2 = best1
						best1 = d
						bv, bp = v, pos
					} else if d < best2 {
						best2 = d
					}
				}
			}
			if bv == -1 {
				continue
			}
			regret := int64(0)
			if best2 < math.MaxInt64 {
				regret = best2 - best1
			}
			if regret > chosenRegret || (regret == chosenRegret && best1 < chosenBest) {
				chosen = ni
				chosenVehicle, chosenPos = bv, bp
				chosenRegret = regret
				chosenBest = best1
			}
		}
		if chosen == -1 {
			s.missing = append(s.missing, pool...)
			return
		}
		s.orders[chosenVehicle] = withInserted(s.orders[chosenVehicle], pool[chosen], chosenPos)
		pool = append(pool[:chosen], pool[chosen+1:]...)
	}
}

// pickRandomVisits removes up to k assigned visits uniformly at random.
func pickRandomVisits(s state, k int, rng *rand.Rand) []int {
	var all []int
	for _, ord := range s.orders {
		all = append(all, ord...)
	}
	if len(all) == 0 {
		return nil
	}
	var removed []int
	for i := 0; i < k && len(all) > 0; i++ {
		j := rng.Intn(len(all))
		removed = append(removed, all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return removed
}

// relatedRemoval picks a random seed visit and removes the k-1 visits most
// related to it, where relatedness is the cheaper directed arc between the
// pair. Related visits are the ones most likely to benefit from being
// reinserted together.
func relatedRemoval(m *solver.EncodedModel, s state, k int, rng *rand.Rand) []int {
	var all []int
	for _, ord := range s.orders {
		all = append(all, ord...)
	}
	if len(all) == 0 {
		return nil
	}
	seed := all[rng.Intn(len(all))]
	type scored struct {
		node  int
		score int64
	}
	var rel []scored
	for _, node := range all {
		if node == seed {
			continue
		}
		d := m.Cost[seed][node]
		if r := m.Cost[node][seed]; r < d {
			d = r
		}
		rel = append(rel, scored{node: node, score: d})
	}
	for i := 0; i < len(rel); i++ {
		for j := i + 1; j < len(rel); j++ {
			if rel[j].score < rel[i].score {
				rel[i], rel[j] = rel[j], rel[i]
			}
		}
	}
	removed := []int{seed}
	for i := 0; i < len(rel) && len(removed) < k; i++ {
		removed = append(removed, rel[i].node)
	}
	return removed
}

func dropVisits(s *state, removed []int) {
	if len(removed) == 0 {
		return
	}
	rm := make(map[int]bool, len(removed))
	for _, n := range removed {
		rm[n] = true
	}
	for v := range s.orders {
		kept := s.orders[v][:0]
		for _, n := range s.orders[v] {
			if !rm[n] {
				kept = append(kept, n)
			}
		}
		s.orders[v] = kept
	}
}

// twoOptImprove reverses intra-route segments while that reduces travel and
// keeps the schedule feasible.
func twoOptImprove(m *solver.EncodedModel, s *state) {
	for v := range s.orders {
		ord := s.orders[v]
		n := len(ord)
		if n < 3 {
			continue
		}
		base, ok := propagate(m, v, ord)
		if !ok {
			continue
		}
		improved := true
		for improved {
			improved = false
			for i := 0; i < n-1; i++ {
				for k := i + 1; k < n; k++ {
					cand := append([]int(nil), ord...)
					for a, b := i, k; a < b; a, b = a+1, b-1 {
						cand[a], cand[b] = cand[b], cand[a]
					}
					cs, ok := propagate(m, v, cand)
					if !ok {
						continue
					}
					if cs.travel < base.travel {
						ord = cand
						base = cs
						improved = true
					}
				}
			}
		}
		s.orders[v] = ord
	}
}

func costOf(m *solver.EncodedModel, s state) int64 {
	var total int64
	for v := range s.orders {
		sc, ok := propagate(m, v, s.orders[v])
		if !ok {
			total += missingPenalty
			continue
		}
		total += sc.travel
	}
	total += int64(len(s.missing)) * missingPenalty
	return total
}

func withInserted(ord []int, node, pos int) []int {
	out := make([]int, 0, len(ord)+1)
	out = append(out, ord[:pos]...)
	out = append(out, node)
	out = append(out, ord[pos:]...)
	return out
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func buildAssignment(m *solver.EncodedModel, s state) (*solver.Assignment, bool) {
	a := &solver.Assignment{Routes: make([]solver.VehicleRoute, m.NumVehicles())}
	for v := range s.orders {
		sc, ok := propagate(m, v, s.orders[v])
		if !ok {
			return nil, false
		}
		a.Routes[v] = solver.VehicleRoute{Nodes: sc.nodes, Times: sc.times, Breaks: sc.breaks}
	}
	return a, true
}
