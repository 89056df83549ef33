package api

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "routeplan/internal/config"
    "routeplan/internal/model"
    "routeplan/internal/webhooks"
)

func newTestServer(t *testing.T) *Server {
    t.Helper()
    s, err := NewServer(config.Config{Solver: config.Solver{SearchLimitSeconds: 1}})
    if err != nil { t.Fatalf("NewServer: %v", err) }
    return s
}

func postPlan(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
    t.Helper()
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/plans", bytes.NewReader([]byte(body)))
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlansHandler(rr, req)
    return rr
}

func TestHealthReady(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }
    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    if rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
}

func TestSolvePlanInlineMatrix(t *testing.T) {
    s := newTestServer(t)
    rr := postPlan(t, s, `{
        "locations": [{"label":"depot"},{"label":"stop"}],
        "matrix": [[0,10],[10,0]],
        "vehicles": [{"start":0,"end":0}],
        "horizon": 100
    }`)
    if rr.Code != 200 { t.Fatalf("solve: got %d body %s", rr.Code, rr.Body.String()) }
    var plan model.Plan
    if err := json.Unmarshal(rr.Body.Bytes(), &plan); err != nil { t.Fatalf("decode: %v", err) }
    if plan.ID == "" || plan.Status != model.StatusSolved { t.Fatalf("plan: %+v", plan) }
    if plan.Solution == nil || plan.Solution.TotalTime != 20 {
        t.Fatalf("solution: %+v", plan.Solution)
    }
}

func TestSolvePlanWithBreak(t *testing.T) {
    s := newTestServer(t)
    rr := postPlan(t, s, `{
        "locations": [{"label":"depot"},{"label":"stop"}],
        "matrix": [[0,10],[10,0]],
        "vehicles": [{"start":0,"end":0,"breaks":[{"duration":5,"earliestStart":0,"latestStart":20}]}],
        "horizon": 100
    }`)
    if rr.Code != 200 { t.Fatalf("solve: got %d body %s", rr.Code, rr.Body.String()) }
    var plan model.Plan
    if err := json.Unmarshal(rr.Body.Bytes(), &plan); err != nil { t.Fatalf("decode: %v", err) }
    if plan.Solution == nil || plan.Solution.TotalTime != 25 {
        t.Fatalf("expected total 25, got %+v", plan.Solution)
    }
    if len(plan.Solution.Routes[0].Breaks) != 1 {
        t.Fatalf("expected one break window: %+v", plan.Solution.Routes[0])
    }
}

func TestSolvePlanBadRequests(t *testing.T) {
    s := newTestServer(t)
    if rr := postPlan(t, s, `{not json`); rr.Code != 400 { t.Fatalf("bad json: %d", rr.Code) }
    if rr := postPlan(t, s, `{"locations":[{}],"vehicles":[{"start":0,"end":0}],"matrix":[[0]],"horizon":0}`); rr.Code != 400 {
        t.Fatalf("missing horizon: %d", rr.Code)
    }
    // no inline matrix and no provider configured
    if rr := postPlan(t, s, `{"locations":[{},{}],"vehicles":[{"start":0,"end":0}],"horizon":10}`); rr.Code != 400 {
        t.Fatalf("missing matrix: %d", rr.Code)
    }
}

func TestSolvePlanInfeasible(t *testing.T) {
    s := newTestServer(t)
    rr := postPlan(t, s, `{
        "locations": [{},{}],
        "matrix": [[0,-1],[-1,0]],
        "vehicles": [{"start":0,"end":0}],
        "horizon": 100
    }`)
    if rr.Code != http.StatusUnprocessableEntity { t.Fatalf("infeasible: got %d body %s", rr.Code, rr.Body.String()) }
    var prob Problem
    if err := json.Unmarshal(rr.Body.Bytes(), &prob); err != nil { t.Fatalf("decode problem: %v", err) }
    if prob.Status != 422 || prob.Title != "Infeasible" { t.Fatalf("problem: %+v", prob) }

    // plan persisted with terminal status
    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/plans?status="+model.StatusInfeasible, nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlansHandler(rr, req)
    if rr.Code != 200 { t.Fatalf("list: %d", rr.Code) }
    var res struct{ Items []model.Plan `json:"items"` }
    if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil { t.Fatalf("decode list: %v", err) }
    if len(res.Items) != 1 { t.Fatalf("expected one infeasible plan, got %d", len(res.Items)) }
}

func TestSolvePlanTimeLimit(t *testing.T) {
    s := newTestServer(t)
    // horizon too tight to serve both visits; a vanishing search budget means
    // the engine cannot prove anything, so the outcome is a time limit
    rr := postPlan(t, s, `{
        "locations": [{},{},{}],
        "matrix": [[0,10,10],[10,0,10],[10,10,0]],
        "vehicles": [{"start":0,"end":0}],
        "horizon": 25,
        "searchLimitSeconds": 0.000000001
    }`)
    if rr.Code != http.StatusGatewayTimeout { t.Fatalf("time limit: got %d body %s", rr.Code, rr.Body.String()) }
    var prob Problem
    if err := json.Unmarshal(rr.Body.Bytes(), &prob); err != nil { t.Fatalf("decode problem: %v", err) }
    if prob.Status != 504 { t.Fatalf("problem: %+v", prob) }
}

func TestPlanGetByID(t *testing.T) {
    s := newTestServer(t)
    rr := postPlan(t, s, `{
        "locations": [{},{}],
        "matrix": [[0,10],[10,0]],
        "vehicles": [{"start":0,"end":0}],
        "horizon": 100
    }`)
    if rr.Code != 200 { t.Fatalf("solve: %d", rr.Code) }
    var plan model.Plan
    _ = json.Unmarshal(rr.Body.Bytes(), &plan)

    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/plans/"+plan.ID, nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlanByIDHandler(rr, req)
    if rr.Code != 200 { t.Fatalf("get: %d", rr.Code) }

    // unknown id
    rr = httptest.NewRecorder()
    req = httptest.NewRequest(http.MethodGet, "/v1/plans/nope", nil)
    req.Header.Set("X-Tenant-Id", "t_test")
    s.PlanByIDHandler(rr, req)
    if rr.Code != 404 { t.Fatalf("missing: %d", rr.Code) }
}

func TestSolveEnqueuesWebhook(t *testing.T) {
    cfg := config.Config{
        Solver:   config.Solver{SearchLimitSeconds: 1},
        Webhooks: []webhooks.Subscription{{URL: "https://example.invalid/hook", Secret: "shh", Events: []string{"plan.solved"}}},
    }
    s, err := NewServer(cfg)
    if err != nil { t.Fatalf("NewServer: %v", err) }
    rr := postPlan(t, s, `{
        "locations": [{},{}],
        "matrix": [[0,10],[10,0]],
        "vehicles": [{"start":0,"end":0}],
        "horizon": 100
    }`)
    if rr.Code != 200 { t.Fatalf("solve: %d", rr.Code) }
    due, err := s.Store.FetchDueWebhookDeliveries(context.Background(), 10)
    if err != nil { t.Fatalf("fetch due: %v", err) }
    if len(due) != 1 || due[0].EventType != "plan.solved" { t.Fatalf("deliveries: %+v", due) }
}

func TestRequireAuth(t *testing.T) {
    s, err := NewServer(config.Config{AuthToken: "tok", Solver: config.Solver{SearchLimitSeconds: 1}})
    if err != nil { t.Fatalf("NewServer: %v", err) }
    h := s.RequireAuth(s.PlansHandler)

    rr := httptest.NewRecorder()
    h(rr, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
    if rr.Code != 401 { t.Fatalf("no token: %d", rr.Code) }

    rr = httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
    req.Header.Set("Authorization", "Bearer tok")
    h(rr, req)
    if rr.Code != 200 { t.Fatalf("with token: %d", rr.Code) }
}

func TestOpenAPIServed(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.OpenAPIHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
    if rr.Code != 200 { t.Fatalf("openapi: %d", rr.Code) }
    if !bytes.Contains(rr.Body.Bytes(), []byte("/v1/plans")) {
        t.Fatal("spec does not mention /v1/plans")
    }
}

// sseRecorder is a minimal ResponseWriter that implements http.Flusher
// and captures writes for SSE tests.
type sseRecorder struct {
    hdr  http.Header
    buf  bytes.Buffer
    code int
}

func (r *sseRecorder) Header() http.Header { if r.hdr == nil { r.hdr = http.Header{} }; return r.hdr }
func (r *sseRecorder) WriteHeader(c int) { r.code = c }
func (r *sseRecorder) Write(p []byte) (int, error) { return r.buf.Write(p) }
func (r *sseRecorder) Flush() {}

func TestPlanEventsSSE(t *testing.T) {
    s := newTestServer(t)
    id := "plan-sse-test"

    sseReq := httptest.NewRequest(http.MethodGet, "/v1/plans/"+id+"/events", nil)
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    sseReq = sseReq.WithContext(ctx)

    rec := &sseRecorder{}
    done := make(chan struct{})
    go func() {
        s.PlanByIDHandler(rec, sseReq)
        close(done)
    }()

    // Give the handler time to subscribe and send the heartbeat
    time.Sleep(50 * time.Millisecond)
    s.Broker.Publish(id, SSEEvent{Type: "plan.solved", Data: map[string]any{"planId": id}})

    deadline := time.Now().Add(500 * time.Millisecond)
    for time.Now().Before(deadline) {
        if bytes.Contains(rec.buf.Bytes(), []byte("event: plan.solved")) {
            break
        }
        time.Sleep(10 * time.Millisecond)
    }
    if !bytes.Contains(rec.buf.Bytes(), []byte("event: plan.solved")) {
        t.Fatalf("SSE did not contain expected event. Body: %s", rec.buf.String())
    }
    cancel()
    select {
    case <-done:
    case <-time.After(200 * time.Millisecond):
        t.Fatal("handler did not exit after cancel")
    }
}
