package solver

import (
	"fmt"
	"sort"

	"routeplan/internal/model"
)

// InfCost is the arc cost assigned to unreachable pairs. Large enough that
// the oracle never prefers such an arc, small enough that summing a full
// route of them cannot overflow int64.
const InfCost int64 = 1 << 40

// BreakInterval is a rest requirement in oracle terms: the break must start
// within [EarliestStart, LatestStart] (cumulative route seconds) and lasts
// exactly Duration. Its position in the stop sequence is the oracle's choice.
type BreakInterval struct {
	EarliestStart int64
	LatestStart   int64
	Duration      int64
}

// EncodedModel is the constraint form a solving oracle consumes: a node per
// location, arc costs, per-vehicle pinned start/end nodes, the set of nodes
// that must be visited, per-vehicle break intervals and the time horizon.
type EncodedModel struct {
	NumNodes int
	Cost     [][]int64 // Cost[a][b]: travel seconds a->b, InfCost if unreachable
	Service  []int64   // dwell seconds at each node
	Starts   []int     // Starts[v]: pinned first node of vehicle v
	Ends     []int     // Ends[v]: pinned last node of vehicle v
	Visits   []int     // nodes that must appear in exactly one route
	Breaks   [][]BreakInterval
	Horizon  int64
}

// NumVehicles returns the fleet size of the encoded model.
func (m *EncodedModel) NumVehicles() int { return len(m.Starts) }

// Encode translates a validated Problem into an EncodedModel.
//
// Every vehicle's start/end pair is pinned independently; nothing here
// assumes a shared depot. The visit set is every location that is not some
// vehicle's start or end. Unreachable matrix entries become InfCost arcs so
// that a fully blocked model surfaces as infeasibility rather than as a
// spuriously cheap route.
func Encode(p *model.Problem) (*EncodedModel, error) {
	n := p.NumLocations()
	cost := make([][]int64, n)
	for i := 0; i < n; i++ {
		cost[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			if t := p.Matrix[i][j]; t == model.Unreachable {
				cost[i][j] = InfCost
			} else {
				cost[i][j] = t
			}
		}
	}

	service := make([]int64, n)
	for i := range service {
		service[i] = p.ServiceTime
	}

	nv := len(p.Vehicles)
	starts := make([]int, nv)
	ends := make([]int, nv)
	breaks := make([][]BreakInterval, nv)
	pinned := make(map[int]bool, 2*nv)
	for v, veh := range p.Vehicles {
		starts[v] = veh.Start
		ends[v] = veh.End
		pinned[veh.Start] = true
		pinned[veh.End] = true
		if len(veh.Breaks) > 0 {
			bs := make([]BreakInterval, len(veh.Breaks))
			for i, b := range veh.Breaks {
				bs[i] = BreakInterval{EarliestStart: b.EarliestStart, LatestStart: b.LatestStart, Duration: b.Duration}
			}
			// Scheduling walks breaks in window order.
			sort.Slice(bs, func(i, j int) bool { return bs[i].EarliestStart < bs[j].EarliestStart })
			breaks[v] = bs
		}
	}

	var visits []int
	for i := 0; i < n; i++ {
		if !pinned[i] {
			visits = append(visits, i)
		}
	}

	m := &EncodedModel{
		NumNodes: n,
		Cost:     cost,
		Service:  service,
		Starts:   starts,
		Ends:     ends,
		Visits:   visits,
		Breaks:   breaks,
		Horizon:  p.Horizon,
	}
	if err := checkServable(m); err != nil {
		return nil, err
	}
	if err := checkBreaks(m); err != nil {
		return nil, err
	}
	return m, nil
}

// checkServable rejects models containing a visit no route could ever
// include: one whose incoming arcs are all InfCost, or outgoing arcs all
// InfCost. Such a model is infeasible regardless of search.
func checkServable(m *EncodedModel) error {
	for _, node := range m.Visits {
		in, out := false, false
		for o := 0; o < m.NumNodes; o++ {
			if o == node {
				continue
			}
			if m.Cost[o][node] < InfCost {
				in = true
			}
			if m.Cost[node][o] < InfCost {
				out = true
			}
		}
		if !in || !out {
			return fmt.Errorf("encode: location %d unreachable from every other location: %w", node, ErrInfeasible)
		}
	}
	return nil
}

// checkBreaks rejects break sets no schedule could satisfy. Starting each
// break at the earliest instant its window and the preceding breaks allow
// is the best case for every possible route, so a missed window or horizon
// overrun under that schedule holds for all of them.
func checkBreaks(m *EncodedModel) error {
	for v, bs := range m.Breaks {
		var t int64
		for i, b := range bs {
			start := b.EarliestStart
			if t > start {
				start = t
			}
			if start > b.LatestStart {
				return fmt.Errorf("encode: vehicle %d break %d cannot start within its window: %w", v, i, ErrInfeasible)
			}
			t = start + b.Duration
		}
		if t > m.Horizon {
			return fmt.Errorf("encode: vehicle %d breaks cannot fit the horizon: %w", v, ErrInfeasible)
		}
	}
	return nil
}
