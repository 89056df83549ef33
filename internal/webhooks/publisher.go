package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"routeplan/internal/store"
)

// Subscription is a configured webhook target. Events lists the plan event
// types it wants; empty means all.
type Subscription struct {
	URL    string   `yaml:"url" json:"url"`
	Secret string   `yaml:"secret" json:"secret"`
	Events []string `yaml:"events" json:"events"`
}

func (s Subscription) wants(eventType string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Publisher enqueues plan events for delivery to subscribed URLs.
type Publisher struct {
	Store store.Store
	Subs  []Subscription
}

func NewPublisher(s store.Store, subs []Subscription) *Publisher {
	return &Publisher{Store: s, Subs: subs}
}

// Emit enqueues an event for every subscription interested in eventType.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	if len(p.Subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":       fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range p.Subs {
		if !s.wants(eventType) {
			continue
		}
		_, _ = p.Store.EnqueueWebhook(ctx, tenantID, eventType, s.URL, s.Secret, body)
	}
}
