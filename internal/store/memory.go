package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    "routeplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu         sync.Mutex
    plans      map[string]model.Plan // id -> plan
    byTen      map[string][]string   // tenant -> plan ids, insertion order
    deliveries map[string]*memDelivery
    order      []string // delivery ids, insertion order
}

func NewMemory() *Memory {
    return &Memory{
        plans:      map[string]model.Plan{},
        byTen:      map[string][]string{},
        deliveries: map[string]*memDelivery{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    LastError    string
    ResponseCode int
    LatencyMs    int
    DeliveredAt  *time.Time
}

func (m *Memory) CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if plan.ID == "" { plan.ID = uuid.New().String() }
    if plan.CreatedAt.IsZero() { plan.CreatedAt = time.Now().UTC() }
    m.plans[plan.ID] = plan
    m.byTen[plan.TenantID] = append(m.byTen[plan.TenantID], plan.ID)
    return plan, nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    p, ok := m.plans[id]
    if !ok || p.TenantID != tenantID { return model.Plan{}, ErrNotFound }
    return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Plan, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.byTen[tenantID]
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    if limit <= 0 { limit = 100 }
    out := []model.Plan{}
    next := ""
    for i := start; i < len(ids); i++ {
        p := m.plans[ids[i]]
        if status != "" && p.Status != status { continue }
        out = append(out, p)
        if len(out) == limit {
            if i+1 < len(ids) { next = ids[i] }
            break
        }
    }
    return out, next, nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    m.deliveries[id] = &memDelivery{WebhookDelivery: WebhookDelivery{
        ID: id, TenantID: tenantID, EventType: eventType, URL: url, Secret: secret,
        Payload: payload, NextAttemptAt: time.Now(), Status: "pending",
    }}
    m.order = append(m.order, id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if limit <= 0 { limit = 50 }
    now := time.Now()
    out := []WebhookDelivery{}
    for _, id := range m.order {
        d := m.deliveries[id]
        if d.Status != "pending" || d.NextAttemptAt.After(now) { continue }
        out = append(out, d.WebhookDelivery)
        if len(out) == limit { break }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok { return ErrNotFound }
    d.Attempts++
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        now := time.Now()
        d.Status = "delivered"
        d.DeliveredAt = &now
    } else if nextAttemptAt != nil {
        d.NextAttemptAt = *nextAttemptAt
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d, ok := m.deliveries[id]
    if !ok { return ErrNotFound }
    d.Attempts++
    d.Status = "failed"
    d.LastError = lastError
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    return nil
}
