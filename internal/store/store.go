package store

import (
    "context"
    "errors"
    "time"

    "routeplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Plans
    CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error)
    GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error)
    ListPlans(ctx context.Context, tenantID, status, cursor string, limit int) (items []model.Plan, nextCursor string, err error)

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// WebhookDelivery is a pending or settled delivery attempt.
type WebhookDelivery struct {
    ID            string
    TenantID      string
    EventType     string
    URL           string
    Secret        string
    Payload       []byte
    Attempts      int
    NextAttemptAt time.Time
    Status        string // pending | delivered | failed
}

var ErrNotFound = errors.New("not found")
