package model

import "time"

// Plan statuses. A plan is only ever stored with a terminal status; there
// is no partially solved state.
const (
    StatusSolved     = "solved"
    StatusInfeasible = "infeasible"
    StatusTimeLimit  = "time_limit"
)

// PlanRequest is the externally supplied problem configuration. Either an
// inline matrix is given, or locations carry coordinates/labels for the
// matrix provider to resolve.
type PlanRequest struct {
    Locations          []Location `json:"locations"`
    Vehicles           []Vehicle  `json:"vehicles"`
    Matrix             TimeMatrix `json:"matrix,omitempty"`
    Horizon            int64      `json:"horizon"`
    ServiceTime        int64      `json:"serviceTime,omitempty"`
    SearchLimitSeconds float64    `json:"searchLimitSeconds,omitempty"`
    Seed               int64      `json:"seed,omitempty"`
}

// Plan is a solved (or terminally failed) planning run as persisted and
// returned by the API.
type Plan struct {
    ID            string         `json:"id"`
    TenantID      string         `json:"tenantId"`
    CreatedAt     time.Time      `json:"createdAt"`
    Status        string         `json:"status"`
    Detail        string         `json:"detail,omitempty"`
    Request       PlanRequest    `json:"request"`
    Solution      *Solution      `json:"solution,omitempty"`
    SearchMetrics map[string]any `json:"searchMetrics,omitempty"`
    SolveMs       int64          `json:"solveMs"`
}
