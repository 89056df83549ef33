package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "routeplan/internal/buildinfo"
    "routeplan/internal/matrix"
    "routeplan/internal/metrics"
    "routeplan/internal/model"
    "routeplan/internal/search"
    "routeplan/internal/solver"
)

// metricsOracle wraps the search engine so the orchestration in
// solver.Solve stays in charge while run metrics are still captured.
type metricsOracle struct {
    eng *search.Engine
    met search.Metrics
}

func (o *metricsOracle) Solve(ctx context.Context, m *solver.EncodedModel, limit time.Duration) (*solver.Assignment, error) {
    a, met, err := o.eng.SolveWithMetrics(ctx, m, limit)
    o.met = met
    return a, err
}

// PlansHandler handles POST/GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        s.solvePlan(w, r)
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        status := r.URL.Query().Get("status")
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListPlans(r.Context(), tenant, status, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) solvePlan(w http.ResponseWriter, r *http.Request) {
    var req model.PlanRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePlanRequest(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)

    mat := req.Matrix
    if mat == nil {
        if s.Provider == nil {
            writeProblem(w, http.StatusBadRequest, "Missing matrix", "no inline matrix and no matrix provider configured", r.URL.Path)
            return
        }
        fs := time.Now()
        m, err := s.Provider.Matrix(r.Context(), req.Locations)
        metrics.MatrixFetchDuration.Observe(time.Since(fs).Seconds())
        if err != nil {
            metrics.MatrixFetches.WithLabelValues("error").Inc()
            if errors.Is(err, matrix.ErrTooFewLocations) {
                writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
                return
            }
            writeProblem(w, http.StatusBadGateway, "Matrix fetch failed", err.Error(), r.URL.Path)
            return
        }
        metrics.MatrixFetches.WithLabelValues("ok").Inc()
        mat = m
    }

    p, err := model.New(req.Locations, mat, req.Vehicles, req.Horizon, req.ServiceTime)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid problem", err.Error(), r.URL.Path)
        return
    }

    limit := time.Duration(req.SearchLimitSeconds * float64(time.Second))
    if req.SearchLimitSeconds == 0 {
        limit = time.Duration(s.Cfg.Solver.SearchLimitSeconds * float64(time.Second))
    }
    seed := req.Seed
    if seed == 0 { seed = s.Cfg.Solver.Seed }
    eng := search.New(seed)
    if s.Cfg.Solver.StallLimit > 0 { eng.StallLimit = s.Cfg.Solver.StallLimit }
    if s.Cfg.Solver.MaxIterations > 0 { eng.MaxIterations = s.Cfg.Solver.MaxIterations }
    oracle := &metricsOracle{eng: eng}

    start := time.Now()
    sol, solveErr := solver.Solve(r.Context(), p, oracle, limit)
    elapsed := time.Since(start)

    plan := model.Plan{
        TenantID:      tenant,
        Request:       req,
        SearchMetrics: searchMetricsMap(oracle.met),
        SolveMs:       elapsed.Milliseconds(),
    }
    switch {
    case solveErr == nil:
        plan.Status = model.StatusSolved
        plan.Solution = sol
    case errors.Is(solveErr, solver.ErrInfeasible):
        plan.Status = model.StatusInfeasible
        plan.Detail = solveErr.Error()
    case errors.Is(solveErr, solver.ErrTimeLimit):
        plan.Status = model.StatusTimeLimit
        plan.Detail = solveErr.Error()
    default:
        metrics.SolveOutcomes.WithLabelValues("error").Inc()
        metrics.SolveDuration.WithLabelValues("error").Observe(elapsed.Seconds())
        writeProblem(w, http.StatusInternalServerError, "Solve failed", solveErr.Error(), r.URL.Path)
        return
    }
    metrics.SolveOutcomes.WithLabelValues(plan.Status).Inc()
    metrics.SolveDuration.WithLabelValues(plan.Status).Observe(elapsed.Seconds())

    plan, err = s.Store.CreatePlan(r.Context(), plan)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Persist plan failed", err.Error(), r.URL.Path)
        return
    }

    evtType := statusEvent(plan.Status)
    data := map[string]any{"planId": plan.ID, "status": plan.Status, "solveMs": plan.SolveMs}
    if plan.Solution != nil { data["totalTime"] = plan.Solution.TotalTime }
    s.Pub.Emit(r.Context(), tenant, evtType, data)
    s.Broker.Publish(plan.ID, SSEEvent{Type: evtType, Data: data})

    instance := "/v1/plans/" + plan.ID
    switch plan.Status {
    case model.StatusSolved:
        writeJSON(w, http.StatusOK, plan)
    case model.StatusInfeasible:
        writeProblem(w, http.StatusUnprocessableEntity, "Infeasible", plan.Detail, instance)
    default:
        writeProblem(w, http.StatusGatewayTimeout, "Search time limit exceeded", plan.Detail, instance)
    }
}

func statusEvent(status string) string {
    switch status {
    case model.StatusSolved:
        return "plan.solved"
    case model.StatusInfeasible:
        return "plan.infeasible"
    default:
        return "plan.timelimit"
    }
}

func searchMetricsMap(m search.Metrics) map[string]any {
    return map[string]any{
        "iterations":     m.Iterations,
        "improvements":   m.Improvements,
        "acceptedWorse":  m.AcceptedWorse,
        "bestCost":       m.BestCost,
        "removalSelects": []int{m.RemovalSelects[0], m.RemovalSelects[1]},
        "insertSelects":  []int{m.InsertSelects[0], m.InsertSelects[1]},
        "removalWeights": []float64{m.FinalRemovalWeights[0], m.FinalRemovalWeights[1]},
        "insertWeights":  []float64{m.FinalInsertionWeights[0], m.FinalInsertionWeights[1]},
    }
}

// PlanByIDHandler handles GET /v1/plans/{id} and GET /v1/plans/{id}/events
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
    path := r.URL.Path
    rest := strings.TrimPrefix(path, "/v1/plans/")
    if rest == path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if len(parts) > 1 && parts[1] == "events" {
        // SSE for plan events
        if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
        flusher, ok := w.(http.Flusher)
        if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
        w.Header().Set("Content-Type", "text/event-stream")
        w.Header().Set("Cache-Control", "no-cache")
        w.Header().Set("Connection", "keep-alive")
        ch := s.Broker.Subscribe(id)
        defer s.Broker.Unsubscribe(id, ch)
        // initial heartbeat
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
        flusher.Flush()
        notify := r.Context().Done()
        for {
            select {
            case <-notify:
                return
            case evt := <-ch:
                b, _ := json.Marshal(evt.Data)
                fmt.Fprintf(w, "event: %s\n", evt.Type)
                fmt.Fprintf(w, "data: %s\n\n", string(b))
                flusher.Flush()
            case <-time.After(15 * time.Second):
                fmt.Fprintf(w, "event: heartbeat\n")
                fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
                flusher.Flush()
            }
        }
    }
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    _, tenant := s.withTenant(r)
    plan, err := s.Store.GetPlan(r.Context(), tenant, id)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Plan not found", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, plan)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, buildinfo.Info())
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}
