package search

import "routeplan/internal/solver"

// sched is the propagated timetable for one vehicle's visit order.
type sched struct {
	nodes  []int                // pinned start, visits, pinned end
	times  []int64              // cumulative arrival at each node
	breaks []solver.PlacedBreak // in start-time order
	travel int64                // summed arc cost, the objective contribution
	total  int64                // route duration including trailing breaks
}

// propagate computes cumulative times for vehicle v visiting order between
// its pinned start and end, scheduling the vehicle's break intervals along
// the way.
//
// Break policy: each break starts at the earliest instant its window and any
// preceding break allow. A break never interrupts or precedes service at a
// stop; it is taken at a departure point, or mid-leg by pausing travel, or
// by idling at the end location when the route finishes before the window
// opens. Starting as early as possible is optimal here because a break's
// duration is fixed and only idle waiting can add time beyond it.
//
// Returns ok=false when a leg is unreachable, a break window cannot be met
// under this policy, or the horizon is exceeded.
func propagate(m *solver.EncodedModel, v int, order []int) (sched, bool) {
	seq := make([]int, 0, len(order)+2)
	seq = append(seq, m.Starts[v])
	seq = append(seq, order...)
	seq = append(seq, m.Ends[v])

	s := sched{
		nodes: seq,
		times: make([]int64, len(seq)),
	}
	reqs := m.Breaks[v]
	bi := 0          // next unscheduled break
	var free int64   // end of the most recent break
	var t int64      // cumulative time cursor

	last := len(seq) - 1
	for i := 0; i < last; i++ {
		s.times[i] = t
		dep := t + m.Service[seq[i]]

		// Breaks whose window opened while serving this stop start right at
		// departure (catch-up; service is never interrupted).
		for bi < len(reqs) && reqs[bi].EarliestStart <= dep {
			start := dep
			if free > start {
				start = free
			}
			if start > reqs[bi].LatestStart {
				return sched{}, false
			}
			free = start + reqs[bi].Duration
			s.breaks = append(s.breaks, solver.PlacedBreak{After: i, Start: start, Duration: reqs[bi].Duration})
			dep = free
			bi++
		}

		arc := m.Cost[seq[i]][seq[i+1]]
		if arc >= solver.InfCost {
			return sched{}, false
		}
		s.travel += arc
		arrive := dep + arc

		// Windows opening mid-leg: pause the drive at the window's start.
		for bi < len(reqs) && reqs[bi].EarliestStart < arrive {
			start := reqs[bi].EarliestStart
			if free > start {
				start = free
			}
			if start >= arrive {
				break // pushed past this leg; next stop handles it
			}
			if start > reqs[bi].LatestStart {
				return sched{}, false
			}
			free = start + reqs[bi].Duration
			s.breaks = append(s.breaks, solver.PlacedBreak{After: i, Start: start, Duration: reqs[bi].Duration})
			arrive += reqs[bi].Duration
			bi++
		}
		t = arrive
	}
	s.times[last] = t
	s.total = t

	// Required breaks outstanding after the route ends: idle at the end
	// location until each window opens. A trivial start==end route with a
	// configured break still takes it; the requirement is never dropped.
	for ; bi < len(reqs); bi++ {
		start := reqs[bi].EarliestStart
		if t > start {
			start = t
		}
		if free > start {
			start = free
		}
		if start > reqs[bi].LatestStart {
			return sched{}, false
		}
		free = start + reqs[bi].Duration
		s.breaks = append(s.breaks, solver.PlacedBreak{After: last, Start: start, Duration: reqs[bi].Duration})
		if free > s.total {
			s.total = free
		}
	}

	if s.total > m.Horizon {
		return sched{}, false
	}
	return s, true
}
