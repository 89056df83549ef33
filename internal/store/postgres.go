package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "routeplan/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

// Ping reports database connectivity; used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
    return p.db.PingContext(ctx)
}

// Migrate creates the schema if missing (dev helper; production uses real
// migrations).
func (p *Postgres) Migrate(ctx context.Context) error {
    _, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS plans (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    status TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    request JSONB NOT NULL,
    solution JSONB,
    search_metrics JSONB,
    solve_ms BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS plans_tenant_created_idx ON plans (tenant_id, created_at DESC);
CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id UUID PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    url TEXT NOT NULL,
    secret TEXT NOT NULL DEFAULT '',
    payload JSONB NOT NULL,
    attempts INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_error TEXT NOT NULL DEFAULT '',
    response_code INT NOT NULL DEFAULT 0,
    latency_ms INT NOT NULL DEFAULT 0,
    delivered_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at);
`)
    return err
}

func (p *Postgres) CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
    if plan.ID == "" { plan.ID = uuid.New().String() }
    if plan.CreatedAt.IsZero() { plan.CreatedAt = time.Now().UTC() }
    reqJSON, err := json.Marshal(plan.Request)
    if err != nil { return model.Plan{}, fmt.Errorf("marshal request: %w", err) }
    var solJSON, metJSON any
    if plan.Solution != nil {
        b, err := json.Marshal(plan.Solution)
        if err != nil { return model.Plan{}, fmt.Errorf("marshal solution: %w", err) }
        solJSON = b
    }
    if plan.SearchMetrics != nil {
        b, err := json.Marshal(plan.SearchMetrics)
        if err != nil { return model.Plan{}, fmt.Errorf("marshal metrics: %w", err) }
        metJSON = b
    }
    _, err = p.db.ExecContext(ctx, `
INSERT INTO plans (id, tenant_id, created_at, status, detail, request, solution, search_metrics, solve_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
        plan.ID, plan.TenantID, plan.CreatedAt, plan.Status, plan.Detail, reqJSON, solJSON, metJSON, plan.SolveMs)
    if err != nil { return model.Plan{}, err }
    return plan, nil
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
    row := p.db.QueryRowContext(ctx, `
SELECT id::text, tenant_id, created_at, status, detail, request, solution, search_metrics, solve_ms
FROM plans WHERE tenant_id=$1 AND id=$2::uuid`, tenantID, id)
    return scanPlan(row)
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, status, cursor string, limit int) ([]model.Plan, string, error) {
    if limit <= 0 { limit = 100 }
    var after time.Time
    if cursor != "" {
        cp, err := p.GetPlan(ctx, tenantID, cursor)
        if err != nil { return nil, "", fmt.Errorf("bad cursor: %w", err) }
        after = cp.CreatedAt
    }
    q := `
SELECT id::text, tenant_id, created_at, status, detail, request, solution, search_metrics, solve_ms
FROM plans WHERE tenant_id=$1`
    args := []any{tenantID}
    if status != "" {
        args = append(args, status)
        q += fmt.Sprintf(" AND status=$%d", len(args))
    }
    if cursor != "" {
        args = append(args, after)
        q += fmt.Sprintf(" AND created_at < $%d", len(args))
    }
    args = append(args, limit)
    q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Plan{}
    for rows.Next() {
        pl, err := scanPlan(rows)
        if err != nil { return nil, "", err }
        out = append(out, pl)
    }
    next := ""
    if len(out) == limit { next = out[len(out)-1].ID }
    return out, next, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPlan(r rowScanner) (model.Plan, error) {
    var pl model.Plan
    var reqJSON []byte
    var solJSON, metJSON sql.Null[[]byte]
    err := r.Scan(&pl.ID, &pl.TenantID, &pl.CreatedAt, &pl.Status, &pl.Detail, &reqJSON, &solJSON, &metJSON, &pl.SolveMs)
    if errors.Is(err, sql.ErrNoRows) { return model.Plan{}, ErrNotFound }
    if err != nil { return model.Plan{}, err }
    if err := json.Unmarshal(reqJSON, &pl.Request); err != nil { return model.Plan{}, fmt.Errorf("unmarshal request: %w", err) }
    if solJSON.Valid && len(solJSON.V) > 0 {
        pl.Solution = &model.Solution{}
        if err := json.Unmarshal(solJSON.V, pl.Solution); err != nil { return model.Plan{}, fmt.Errorf("unmarshal solution: %w", err) }
    }
    if metJSON.Valid && len(metJSON.V) > 0 {
        if err := json.Unmarshal(metJSON.V, &pl.SearchMetrics); err != nil { return model.Plan{}, fmt.Errorf("unmarshal metrics: %w", err) }
    }
    return pl, nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx, `
INSERT INTO webhook_deliveries (id, tenant_id, event_type, url, secret, payload)
VALUES ($1,$2,$3,$4,$5,$6)`, id, tenantID, eventType, url, secret, payload)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    if limit <= 0 { limit = 50 }
    rows, err := p.db.QueryContext(ctx, `
SELECT id::text, tenant_id, event_type, url, secret, payload, attempts, next_attempt_at, status
FROM webhook_deliveries
WHERE status='pending' AND next_attempt_at <= now()
ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Attempts, &d.NextAttemptAt, &d.Status); err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if success {
        _, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET attempts=attempts+1, status='delivered', delivered_at=now(), last_error=$2, response_code=$3, latency_ms=$4
WHERE id=$1::uuid`, id, lastError, responseCode, latencyMs)
        return err
    }
    next := time.Now().Add(time.Minute)
    if nextAttemptAt != nil { next = *nextAttemptAt }
    _, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET attempts=attempts+1, next_attempt_at=$2, last_error=$3, response_code=$4, latency_ms=$5
WHERE id=$1::uuid`, id, next, lastError, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `
UPDATE webhook_deliveries
SET attempts=attempts+1, status='failed', last_error=$2, response_code=$3, latency_ms=$4
WHERE id=$1::uuid`, id, lastError, responseCode, latencyMs)
    return err
}
