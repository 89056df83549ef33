package solver

import (
	"fmt"
	"sort"

	"routeplan/internal/model"
)

// Decode walks a raw oracle assignment and reconstructs the Solution:
// ordered stops per vehicle with arrival/departure timestamps, and break
// pseudo-intervals converted into BreakWindow entries so that routes list
// only real locations.
//
// Decode validates the assignment against the problem while walking it.
// Every violation is surfaced as an error; nothing is patched up, and no
// partial Solution is ever returned.
func Decode(p *model.Problem, a *Assignment) (*model.Solution, error) {
	if a == nil {
		return nil, fmt.Errorf("decode: nil assignment")
	}
	if len(a.Routes) != len(p.Vehicles) {
		return nil, fmt.Errorf("decode: assignment has %d routes for %d vehicles", len(a.Routes), len(p.Vehicles))
	}

	seen := make(map[int]int, p.NumLocations()) // visit node -> count
	routes := make([]model.Route, len(a.Routes))
	var total int64
	for v := range a.Routes {
		rt, err := decodeRoute(p, v, &a.Routes[v], seen)
		if err != nil {
			return nil, err
		}
		routes[v] = rt
		total += rt.Duration
	}

	// Every non-pinned location must be visited exactly once.
	pinned := make(map[int]bool, 2*len(p.Vehicles))
	for _, veh := range p.Vehicles {
		pinned[veh.Start] = true
		pinned[veh.End] = true
	}
	for i := 0; i < p.NumLocations(); i++ {
		if pinned[i] {
			continue
		}
		if c := seen[i]; c != 1 {
			return nil, fmt.Errorf("decode: location %d visited %d times, want exactly once", i, c)
		}
	}

	return &model.Solution{Routes: routes, TotalTime: total}, nil
}

func decodeRoute(p *model.Problem, v int, r *VehicleRoute, seen map[int]int) (model.Route, error) {
	veh := p.Vehicles[v]
	if len(r.Nodes) < 2 {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: route has %d nodes, want at least start and end", v, len(r.Nodes))
	}
	if len(r.Times) != len(r.Nodes) {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: %d time values for %d nodes", v, len(r.Times), len(r.Nodes))
	}
	if r.Nodes[0] != veh.Start {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: route starts at %d, pinned start is %d", v, r.Nodes[0], veh.Start)
	}
	if last := r.Nodes[len(r.Nodes)-1]; last != veh.End {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: route ends at %d, pinned end is %d", v, last, veh.End)
	}
	if r.Times[0] != 0 {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: route must begin at time 0, got %d", v, r.Times[0])
	}

	stops := make([]model.Stop, len(r.Nodes))
	for i, node := range r.Nodes {
		if node < 0 || node >= p.NumLocations() {
			return model.Route{}, fmt.Errorf("decode: vehicle %d: node %d out of range", v, node)
		}
		arr := r.Times[i]
		dep := arr
		if i < len(r.Nodes)-1 {
			dep = arr + p.ServiceTime
		}
		stops[i] = model.Stop{Location: node, Arrival: arr, Departure: dep}
		if i > 0 && i < len(r.Nodes)-1 {
			seen[node]++
		}
	}

	// Break pseudo-intervals become BreakWindow entries on the route.
	windows := make([]model.BreakWindow, 0, len(r.Breaks))
	for _, b := range r.Breaks {
		if b.After < 0 || b.After >= len(stops) {
			return model.Route{}, fmt.Errorf("decode: vehicle %d: break after stop %d out of range", v, b.After)
		}
		windows = append(windows, model.BreakWindow{AfterStop: b.After, Start: b.Start, End: b.Start + b.Duration})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
	if err := checkBreakWindows(v, veh.Breaks, windows, stops); err != nil {
		return model.Route{}, err
	}

	// Time-accounting exactness per leg: the next arrival is the previous
	// departure plus travel plus whatever breaks the oracle placed in the gap.
	for i := 0; i+1 < len(stops); i++ {
		t := p.Travel(stops[i].Location, stops[i+1].Location)
		if t == model.Unreachable {
			return model.Route{}, fmt.Errorf("decode: vehicle %d: leg %d->%d uses an unreachable pair", v, stops[i].Location, stops[i+1].Location)
		}
		var gap int64
		for _, w := range windows {
			if w.AfterStop == i {
				gap += w.End - w.Start
			}
		}
		want := stops[i].Departure + t + gap
		if stops[i+1].Arrival != want {
			return model.Route{}, fmt.Errorf("decode: vehicle %d: arrival at stop %d is %d, want %d", v, i+1, stops[i+1].Arrival, want)
		}
	}

	duration := stops[len(stops)-1].Arrival
	for _, w := range windows {
		// A break taken after the final stop extends the route.
		if w.End > duration {
			duration = w.End
		}
	}
	if duration > p.Horizon {
		return model.Route{}, fmt.Errorf("decode: vehicle %d: route duration %d exceeds horizon %d", v, duration, p.Horizon)
	}

	return model.Route{Vehicle: v, Stops: stops, Breaks: windows, Duration: duration}, nil
}

// checkBreakWindows verifies one scheduled window per requirement, matched
// in window order, each compliant with its requirement's bounds.
func checkBreakWindows(v int, reqs []model.Break, windows []model.BreakWindow, stops []model.Stop) error {
	if len(windows) != len(reqs) {
		return fmt.Errorf("decode: vehicle %d: %d break windows for %d requirements", v, len(windows), len(reqs))
	}
	if len(reqs) == 0 {
		return nil
	}
	ordered := make([]model.Break, len(reqs))
	copy(ordered, reqs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].EarliestStart < ordered[j].EarliestStart })
	for i, w := range windows {
		req := ordered[i]
		if w.Start < req.EarliestStart || w.Start > req.LatestStart {
			return fmt.Errorf("decode: vehicle %d: break %d starts at %d, outside window [%d,%d]",
				v, i, w.Start, req.EarliestStart, req.LatestStart)
		}
		if got := w.End - w.Start; got != req.Duration {
			return fmt.Errorf("decode: vehicle %d: break %d lasts %d, want %d", v, i, got, req.Duration)
		}
		if w.Start < stops[w.AfterStop].Departure {
			return fmt.Errorf("decode: vehicle %d: break %d starts at %d before departure of stop %d", v, i, w.Start, w.AfterStop)
		}
	}
	return nil
}
