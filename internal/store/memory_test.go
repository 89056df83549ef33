package store

import (
    "context"
    "testing"
    "time"

    "routeplan/internal/model"
)

func TestMemoryPlanCRUD(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    created, err := m.CreatePlan(ctx, model.Plan{TenantID: "t_test", Status: model.StatusSolved})
    if err != nil { t.Fatalf("create: %v", err) }
    if created.ID == "" { t.Fatal("expected generated id") }
    if created.CreatedAt.IsZero() { t.Fatal("expected createdAt") }

    got, err := m.GetPlan(ctx, "t_test", created.ID)
    if err != nil { t.Fatalf("get: %v", err) }
    if got.Status != model.StatusSolved { t.Fatalf("status: %q", got.Status) }

    // tenant isolation
    if _, err := m.GetPlan(ctx, "t_other", created.ID); err != ErrNotFound {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
    if _, err := m.GetPlan(ctx, "t_test", "nope"); err != ErrNotFound {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
}

func TestMemoryListPlansPagination(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    for i := 0; i < 5; i++ {
        st := model.StatusSolved
        if i%2 == 1 { st = model.StatusInfeasible }
        if _, err := m.CreatePlan(ctx, model.Plan{TenantID: "t_test", Status: st}); err != nil {
            t.Fatalf("create: %v", err)
        }
    }

    page1, next, err := m.ListPlans(ctx, "t_test", "", "", 2)
    if err != nil { t.Fatalf("list: %v", err) }
    if len(page1) != 2 || next == "" { t.Fatalf("page1: %d items, next %q", len(page1), next) }

    page2, _, err := m.ListPlans(ctx, "t_test", "", next, 10)
    if err != nil { t.Fatalf("list page2: %v", err) }
    if len(page2) != 3 { t.Fatalf("page2: %d items", len(page2)) }
    for _, p := range page2 {
        if p.ID == page1[0].ID || p.ID == page1[1].ID { t.Fatal("cursor did not advance") }
    }

    solved, _, err := m.ListPlans(ctx, "t_test", model.StatusSolved, "", 10)
    if err != nil { t.Fatalf("list solved: %v", err) }
    if len(solved) != 3 { t.Fatalf("solved: %d items", len(solved)) }
}

func TestMemoryWebhookQueue(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()

    id, err := m.EnqueueWebhook(ctx, "t_test", "plan.solved", "https://example.invalid/hook", "shh", []byte(`{}`))
    if err != nil { t.Fatalf("enqueue: %v", err) }

    due, err := m.FetchDueWebhookDeliveries(ctx, 10)
    if err != nil { t.Fatalf("fetch: %v", err) }
    if len(due) != 1 || due[0].ID != id { t.Fatalf("due: %+v", due) }

    // failed attempt reschedules
    next := time.Now().Add(time.Hour)
    if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
        t.Fatalf("mark: %v", err)
    }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 { t.Fatalf("expected no due deliveries, got %d", len(due)) }

    // success settles it
    if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 8); err != nil {
        t.Fatalf("mark success: %v", err)
    }
    if d := m.deliveries[id]; d.Status != "delivered" || d.Attempts != 2 {
        t.Fatalf("delivery state: %+v", d)
    }

    // terminal failure
    id2, _ := m.EnqueueWebhook(ctx, "t_test", "plan.solved", "https://example.invalid/hook", "shh", []byte(`{}`))
    if err := m.FailWebhookDelivery(ctx, id2, "gave up", 503, 5); err != nil {
        t.Fatalf("fail: %v", err)
    }
    due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
    if len(due) != 0 { t.Fatalf("failed delivery still due: %+v", due) }
}
