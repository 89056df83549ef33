package api

import (
	"fmt"

	"routeplan/internal/model"
)

// validatePlanRequest checks request shape before the model builder runs its
// own full validation. Keeps obviously malformed payloads out of solve.
func validatePlanRequest(req *model.PlanRequest) error {
	if len(req.Locations) == 0 {
		return fmt.Errorf("locations must not be empty")
	}
	if len(req.Vehicles) == 0 {
		return fmt.Errorf("vehicles must not be empty")
	}
	if req.Horizon <= 0 {
		return fmt.Errorf("horizon must be > 0")
	}
	if req.ServiceTime < 0 {
		return fmt.Errorf("serviceTime must be >= 0")
	}
	if req.SearchLimitSeconds < 0 {
		return fmt.Errorf("searchLimitSeconds must be >= 0")
	}
	if req.Matrix != nil && len(req.Matrix) != len(req.Locations) {
		return fmt.Errorf("matrix must have one row per location")
	}
	for i, v := range req.Vehicles {
		if v.Start < 0 || v.Start >= len(req.Locations) {
			return fmt.Errorf("vehicles[%d].start out of range", i)
		}
		if v.End < 0 || v.End >= len(req.Locations) {
			return fmt.Errorf("vehicles[%d].end out of range", i)
		}
	}
	return nil
}
