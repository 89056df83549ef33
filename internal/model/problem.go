package model

import (
    "errors"
    "fmt"
)

// ValidationError reports malformed problem input. It is returned by New and
// never recovered from internally; callers surface it as a 400-class failure.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    return fmt.Sprintf("invalid problem: %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
    var ve *ValidationError
    return errors.As(err, &ve)
}

// Problem is the validated, immutable model handed to the encoder.
// Construct only via New.
type Problem struct {
    Locations   []Location
    Matrix      TimeMatrix
    Vehicles    []Vehicle
    Horizon     int64 // max cumulative route seconds per vehicle, required
    ServiceTime int64 // dwell seconds at each visited stop, default 0
}

// New validates raw inputs and assembles a Problem. It rejects rather than
// coerces: out-of-range vehicle endpoints, inconsistent matrices, inverted
// break windows and a missing horizon are all hard errors.
func New(locations []Location, matrix TimeMatrix, vehicles []Vehicle, horizon, serviceTime int64) (*Problem, error) {
    if len(locations) == 0 {
        return nil, &ValidationError{Field: "locations", Reason: "must not be empty"}
    }
    n := len(locations)
    if len(matrix) != n {
        return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("got %d rows for %d locations", len(matrix), n)}
    }
    for i, row := range matrix {
        if len(row) != n {
            return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("row %d has %d entries, want %d", i, len(row), n)}
        }
        for j, v := range row {
            if v < 0 && v != Unreachable {
                return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("entry [%d][%d] is negative", i, j)}
            }
            if i == j && v != 0 {
                return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("diagonal entry [%d][%d] must be zero", i, j)}
            }
        }
    }
    if len(vehicles) == 0 {
        return nil, &ValidationError{Field: "vehicles", Reason: "must not be empty"}
    }
    for vi, v := range vehicles {
        if v.Start < 0 || v.Start >= n {
            return nil, &ValidationError{Field: fmt.Sprintf("vehicles[%d].start", vi), Reason: fmt.Sprintf("index %d out of range [0,%d)", v.Start, n)}
        }
        if v.End < 0 || v.End >= n {
            return nil, &ValidationError{Field: fmt.Sprintf("vehicles[%d].end", vi), Reason: fmt.Sprintf("index %d out of range [0,%d)", v.End, n)}
        }
        for bi, b := range v.Breaks {
            if b.Duration < 0 {
                return nil, &ValidationError{Field: fmt.Sprintf("vehicles[%d].breaks[%d].duration", vi, bi), Reason: "must be non-negative"}
            }
            if b.EarliestStart < 0 {
                return nil, &ValidationError{Field: fmt.Sprintf("vehicles[%d].breaks[%d].earliestStart", vi, bi), Reason: "must be non-negative"}
            }
            if b.EarliestStart > b.LatestStart {
                return nil, &ValidationError{Field: fmt.Sprintf("vehicles[%d].breaks[%d]", vi, bi), Reason: "earliestStart exceeds latestStart"}
            }
        }
    }
    if horizon <= 0 {
        // A missing horizon is a modeling error, not something to default.
        return nil, &ValidationError{Field: "horizon", Reason: "must be a positive number of seconds"}
    }
    if serviceTime < 0 {
        return nil, &ValidationError{Field: "serviceTime", Reason: "must be non-negative"}
    }
    return &Problem{
        Locations:   locations,
        Matrix:      matrix,
        Vehicles:    vehicles,
        Horizon:     horizon,
        ServiceTime: serviceTime,
    }, nil
}

// NumLocations returns the matrix dimension.
func (p *Problem) NumLocations() int { return len(p.Locations) }

// Travel returns the matrix entry from a to b. Callers must handle the
// Unreachable sentinel.
func (p *Problem) Travel(a, b int) int64 { return p.Matrix[a][b] }
