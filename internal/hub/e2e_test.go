package hub

import (
    "context"
    "testing"
    "time"

    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/event"
    "github.com/fedmask/chaincoord/internal/ledger"
)

// TestRoundLifecycle walks a full create-task/start-round/end-round sequence
// through the coordinator against the in-memory ledger and checks that every
// active subscriber observes the lifecycle events the ledger node would emit.
func TestRoundLifecycle(t *testing.T) {
    const node = "0xN0DE"
    led := ledger.NewMemory()
    led.SetReceiptLogs("createTask", ledger.Log{Name: "TaskCreated", Values: map[string]any{"taskId": "T1"}})
    coord := coordinator.New(node, led)
    h := New(led)

    client := h.Subscribe("0xA")
    defer h.Unsubscribe(client)
    operator := h.Subscribe("")
    defer h.Unsubscribe(operator)

    _, taskID, err := coord.CreateTask(context.Background(), node, "mnist", "0xc0ffee", "hlr", true, 2)
    if err != nil { t.Fatalf("create task: %v", err) }
    if taskID != "T1" { t.Fatalf("task id: %q", taskID) }

    if _, err := coord.StartRound(context.Background(), node, taskID, 1, "0xw31647"); err != nil {
        t.Fatalf("start round: %v", err)
    }
    led.Emit(ledger.RawEvent{Name: "RoundStart", Values: map[string]any{"taskId": taskID, "round": 1}})

    for _, sub := range []*Subscription{client, operator} {
        ev := nextEvent(t, sub)
        rs, ok := ev.(event.RoundStarted)
        if !ok || rs.TaskID != taskID || rs.Round != 1 {
            t.Fatalf("want RoundStarted T1/1, got %#v", ev)
        }
    }

    // scoped selection reaches only the listed client
    led.Emit(ledger.RawEvent{Name: "PartnerSelected", Values: map[string]any{"taskId": taskID, "round": 1, "addrs": []any{"0xA"}}})
    if ev := nextEvent(t, client); ev.Name() != "PartnerSelected" {
        t.Fatalf("client missed selection: %#v", ev)
    }

    if _, err := coord.EndRound(context.Background(), node, taskID, 1); err != nil {
        t.Fatalf("end round: %v", err)
    }
    led.Emit(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": taskID, "round": 1}})

    for _, sub := range []*Subscription{client, operator} {
        ev := nextEvent(t, sub)
        re, ok := ev.(event.RoundEnded)
        if !ok || re.TaskID != taskID || re.Round != 1 {
            t.Fatalf("want RoundEnded T1/1, got %#v", ev)
        }
    }

    calls := led.Calls()
    wantOps := []string{"createTask", "startRound", "endRound"}
    if len(calls) != len(wantOps) {
        t.Fatalf("call count: %d", len(calls))
    }
    for i, op := range wantOps {
        if calls[i].Method != op {
            t.Fatalf("call %d: got %q want %q", i, calls[i].Method, op)
        }
    }
}

func nextEvent(t *testing.T, sub *Subscription) event.Event {
    t.Helper()
    select {
    case ev, ok := <-sub.Events():
        if !ok {
            t.Fatalf("stream closed")
        }
        return ev
    case <-time.After(2 * time.Second):
        t.Fatalf("no event delivered")
    }
    return nil
}
