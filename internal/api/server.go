// Package api implements HTTP handlers and helpers for the routeplan service.
package api

import (
    "context"
    "net/http"
    "strings"

    "routeplan/internal/config"
    "routeplan/internal/matrix"
    "routeplan/internal/store"
    "routeplan/internal/webhooks"
)

type Server struct {
    Cfg      config.Config
    Store    store.Store
    Pub      *webhooks.Publisher
    Broker   EventBroker
    Provider matrix.Provider
}

// NewServer wires the server from cfg. If databaseUrl is unset, uses the
// in-memory store; if redisUrl is unset, the in-memory SSE broker.
func NewServer(cfg config.Config) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if err := sp.Migrate(context.Background()); err != nil {
            return nil, err
        }
        s = sp
    }
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    var provider matrix.Provider
    if cfg.Matrix.APIKey != "" {
        dm := matrix.NewDistanceMatrixAI(matrix.Config{
            BaseURL:   cfg.Matrix.BaseURL,
            APIKey:    cfg.Matrix.APIKey,
            Dimension: cfg.Matrix.Dimension,
            Timeout:   cfg.Matrix.MatrixTimeout(),
            RPS:       cfg.Matrix.RPS,
        })
        provider = dm
        if cfg.RedisURL != "" {
            if c, err := matrix.NewCached(dm, cfg.RedisURL, dm.CacheScope(), cfg.Matrix.CacheTTL()); err == nil { provider = c }
        }
    }
    return &Server{
        Cfg:      cfg,
        Store:    s,
        Pub:      webhooks.NewPublisher(s, cfg.Webhooks),
        Broker:   broker,
        Provider: provider,
    }, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// RequireAuth enforces the static bearer token when one is configured.
// Without a configured token every request passes.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if s.Cfg.AuthToken == "" {
            next(w, r)
            return
        }
        authz := r.Header.Get("Authorization")
        if !strings.HasPrefix(strings.ToLower(authz), "bearer ") || strings.TrimSpace(authz[len("Bearer "):]) != s.Cfg.AuthToken {
            writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token", r.URL.Path)
            return
        }
        next(w, r)
    }
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}
