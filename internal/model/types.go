package model

// Core domain types for the routing problem and its solution.

// Unreachable marks a matrix entry for which the data source reported that
// no route exists between the pair. It is distinct from zero and must be
// handled explicitly by the encoder; it never appears in a decoded Route.
const Unreachable int64 = -1

// Location is a stop candidate. Its index in Problem.Locations is the
// canonical identity used by the matrix, vehicles and routes. Label and
// coordinates are carried for display and matrix fetching only.
type Location struct {
    Label string  `json:"label,omitempty"`
    Lat   float64 `json:"lat,omitempty"`
    Lng   float64 `json:"lng,omitempty"`
}

// TimeMatrix maps (origin, destination) location indices to travel seconds.
// Square, not necessarily symmetric, zero diagonal. Entries are either
// non-negative or the Unreachable sentinel.
type TimeMatrix [][]int64

// Break is a rest requirement attached to a vehicle. All offsets are
// measured from the vehicle's route start (time zero).
type Break struct {
    Duration      int64 `json:"duration"`
    EarliestStart int64 `json:"earliestStart"`
    LatestStart   int64 `json:"latestStart"`
}

// Vehicle has its own start and end location; fleets with heterogeneous
// depots are the normal case, a shared depot is just start==end everywhere.
type Vehicle struct {
    Start  int     `json:"start"`
    End    int     `json:"end"`
    Breaks []Break `json:"breaks,omitempty"`
}

// Stop is one visited location in a route. Departure-Arrival is dwell
// (service) time; zero unless the problem configures a service time.
type Stop struct {
    Location  int   `json:"location"`
    Arrival   int64 `json:"arrival"`
    Departure int64 `json:"departure"`
}

// BreakWindow records where and when a scheduled break actually happened:
// after the stop at AfterStop (index into Route.Stops), starting at Start
// and ending at End, in cumulative route seconds.
type BreakWindow struct {
    AfterStop int   `json:"afterStop"`
    Start     int64 `json:"start"`
    End       int64 `json:"end"`
}

// Route is the decoded itinerary of one vehicle. Immutable once produced.
type Route struct {
    Vehicle  int           `json:"vehicle"`
    Stops    []Stop        `json:"stops"`
    Breaks   []BreakWindow `json:"breaks,omitempty"`
    Duration int64         `json:"duration"`
}

// Solution maps every vehicle (by index) to its Route. It is only ever
// produced whole; infeasible or timed-out solves yield no Solution at all.
type Solution struct {
    Routes    []Route `json:"routes"`
    TotalTime int64   `json:"totalTime"`
}
