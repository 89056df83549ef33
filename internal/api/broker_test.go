package api

import (
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    pid := "p1"
    ch := b.Subscribe(pid)

    evt := SSEEvent{Type: "plan.solved", Data: map[string]any{"planId": pid}}
    b.Publish(pid, evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["planId"].(string) != pid { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }

    b.Unsubscribe(pid, ch)
    select {
    case _, ok := <-ch:
        if ok { t.Fatal("channel should be closed after unsubscribe") }
    case <-time.After(50 * time.Millisecond):
        // acceptable if already drained and closed
    }
}

func TestBrokerDropsWhenSubscriberSlow(t *testing.T) {
    b := NewBroker()
    pid := "p2"
    ch := b.Subscribe(pid)
    // fill the buffer; extra events must not block the publisher
    for i := 0; i < 20; i++ {
        b.Publish(pid, SSEEvent{Type: "plan.solved"})
    }
    b.Unsubscribe(pid, ch)
}

func TestBrokerIsolatesPlans(t *testing.T) {
    b := NewBroker()
    ch1 := b.Subscribe("a")
    ch2 := b.Subscribe("b")
    b.Publish("a", SSEEvent{Type: "plan.solved"})
    select {
    case <-ch2:
        t.Fatal("event leaked to another plan's subscriber")
    case <-time.After(50 * time.Millisecond):
    }
    select {
    case <-ch1:
    case <-time.After(200 * time.Millisecond):
        t.Fatal("subscriber missed its event")
    }
    b.Unsubscribe("a", ch1)
    b.Unsubscribe("b", ch2)
}

func TestRedisBrokerUnsubscribeLeavesCloseToReader(t *testing.T) {
    b, err := NewRedisBroker("redis://127.0.0.1:6399/0")
    if err != nil { t.Fatalf("NewRedisBroker: %v", err) }

    // a channel the broker never saw: Unsubscribe must not close it, and
    // calling it twice must not panic
    ch := make(chan SSEEvent, 1)
    b.Unsubscribe("p1", ch)
    b.Unsubscribe("p1", ch)

    select {
    case _, ok := <-ch:
        if !ok { t.Fatal("unsubscribe closed a channel it does not own") }
        t.Fatal("unexpected event")
    default:
    }
}
