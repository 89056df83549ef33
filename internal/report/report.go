package report

import (
	"fmt"
	"io"

	"routeplan/internal/model"
)

// Write renders a human-readable route report: per vehicle the stop
// sequence with arrival times, any break windows, the route total, and the
// fleet total.
func Write(w io.Writer, p *model.Problem, s *model.Solution) {
	for _, rt := range s.Routes {
		hasBreaks := len(rt.Breaks) > 0
		if hasBreaks {
			fmt.Fprintf(w, "Breaks for vehicle %d:\n", rt.Vehicle)
			for i, b := range rt.Breaks {
				fmt.Fprintf(w, "  break %d: start(%d) duration(%d)\n", i, b.Start, b.End-b.Start)
			}
		}
		fmt.Fprintf(w, "Route for vehicle %d:\n  ", rt.Vehicle)
		for i, st := range rt.Stops {
			if i > 0 {
				fmt.Fprint(w, " -> ")
			}
			fmt.Fprintf(w, "%s Time(%d)", locationName(p, st.Location), st.Arrival)
		}
		fmt.Fprintf(w, "\n  Time of the route: %d\n", rt.Duration)
	}
	fmt.Fprintf(w, "Total time of all routes: %d\n", s.TotalTime)
}

func locationName(p *model.Problem, idx int) string {
	if idx >= 0 && idx < len(p.Locations) && p.Locations[idx].Label != "" {
		return p.Locations[idx].Label
	}
	return fmt.Sprintf("%d", idx)
}
