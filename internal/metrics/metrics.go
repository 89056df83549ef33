package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // SolveOutcomes counts plan solves by outcome (solved, infeasible, time_limit, error)
    SolveOutcomes = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "plan_solve_outcomes_total", Help: "Plan solve attempts by outcome."},
        []string{"outcome"},
    )
    // SolveDuration tracks wall-clock solve time in seconds
    SolveDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "plan_solve_duration_seconds", Help: "Solve duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
        []string{"outcome"},
    )
    // MatrixFetches counts matrix provider calls by result
    MatrixFetches = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "matrix_fetches_total", Help: "Travel-time matrix fetches by result."},
        []string{"result"},
    )
    // MatrixFetchDuration tracks matrix fetch latency in seconds
    MatrixFetchDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "matrix_fetch_duration_seconds", Help: "Matrix fetch duration in seconds.", Buckets: prometheus.DefBuckets},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(SolveOutcomes)
        Registry.MustRegister(SolveDuration)
        Registry.MustRegister(MatrixFetches)
        Registry.MustRegister(MatrixFetchDuration)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
