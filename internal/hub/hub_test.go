package hub

import (
    "context"
    "testing"
    "time"

    "github.com/fedmask/chaincoord/internal/event"
    "github.com/fedmask/chaincoord/internal/ledger"
)

func recvEvent(t *testing.T, sub *Subscription) event.Event {
    t.Helper()
    select {
    case ev, ok := <-sub.Events():
        if !ok {
            t.Fatalf("stream closed")
        }
        return ev
    case <-time.After(time.Second):
        t.Fatalf("no event within 1s")
    }
    return nil
}

func TestHub_DeliversTranslatedEvents_InOrder(t *testing.T) {
    led := ledger.NewMemory()
    h := New(led)
    sub := h.Subscribe("0xA")
    defer h.Unsubscribe(sub)

    led.Emit(ledger.RawEvent{Name: "RoundStart", Values: map[string]any{"taskId": "T1", "round": "1"}})
    led.Emit(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": "T1", "round": "1"}})

    if ev := recvEvent(t, sub); ev.Name() != "RoundStarted" {
        t.Fatalf("first event %s", ev.Name())
    }
    ev := recvEvent(t, sub)
    re, ok := ev.(event.RoundEnded)
    if !ok || re.TaskID != "T1" || re.Round != 1 {
        t.Fatalf("second event %+v", ev)
    }
}

func TestHub_SubscriberIsolation(t *testing.T) {
    led := ledger.NewMemory()
    h := New(led)
    subA := h.Subscribe("0xA")
    subB := h.Subscribe("0xB")
    defer h.Unsubscribe(subA)
    defer h.Unsubscribe(subB)

    // scoped event targeting only 0xA
    led.Emit(ledger.RawEvent{Name: "PartnerSelected", Values: map[string]any{
        "taskId": "T1", "round": "1", "addrs": []any{"0xA"},
    }})
    // broadcast event seen by both
    led.Emit(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": "T1", "round": "1"}})

    if ev := recvEvent(t, subA); ev.Name() != "PartnerSelected" {
        t.Fatalf("A first event %s", ev.Name())
    }
    if ev := recvEvent(t, subA); ev.Name() != "RoundEnded" {
        t.Fatalf("A second event %s", ev.Name())
    }
    // B must see only the broadcast, never A's scoped event
    if ev := recvEvent(t, subB); ev.Name() != "RoundEnded" {
        t.Fatalf("B leaked scoped event: %s", ev.Name())
    }
}

func TestHub_UnrecognizedRawEvents_Dropped(t *testing.T) {
    led := ledger.NewMemory()
    h := New(led)
    sub := h.Subscribe("0xA")
    defer h.Unsubscribe(sub)

    led.Emit(ledger.RawEvent{Name: "BlockSealed", Values: map[string]any{"height": "9"}})
    led.Emit(ledger.RawEvent{Name: "TaskFinished", Values: map[string]any{"taskId": "T1"}})

    if ev := recvEvent(t, sub); ev.Name() != "TaskFinished" {
        t.Fatalf("unrecognized raw event leaked: %s", ev.Name())
    }
}

func TestHub_Unsubscribe_Idempotent(t *testing.T) {
    led := ledger.NewMemory()
    h := New(led)
    sub := h.Subscribe("0xA")
    h.Unsubscribe(sub)
    h.Unsubscribe(sub) // second release is a no-op
    h.Unsubscribe(nil)
    h.Unsubscribe(&Subscription{out: make(chan event.Event), done: make(chan struct{})}) // never subscribed

    // stream reports closed after release
    select {
    case _, ok := <-sub.Events():
        if ok {
            t.Fatalf("event delivered after unsubscribe")
        }
    case <-time.After(time.Second):
        t.Fatalf("stream not closed after unsubscribe")
    }
}

func TestHub_EachSubscriberOwnsUpstream(t *testing.T) {
    led := ledger.NewMemory()
    h := New(led)
    subA := h.Subscribe("0xA")
    subB := h.Subscribe("0xB")
    h.Unsubscribe(subA)

    // A's upstream is gone; B still receives
    led.Emit(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": "T2", "round": "4"}})
    ev := recvEvent(t, subB)
    re := ev.(event.RoundEnded)
    if re.TaskID != "T2" || re.Round != 4 {
        t.Fatalf("got %+v", re)
    }
    h.Unsubscribe(subB)
}

func TestService_SinkReceivesRoundRecords(t *testing.T) {
    got := make(chan RoundRecord, 4)
    led := ledger.NewMemory()
    h := New(led)
    s := NewService(h)
    s.SetSink(sinkFunc(func(v RoundRecord) { got <- v }))
    if err := s.Start(context.Background()); err != nil {
        t.Fatalf("start: %v", err)
    }
    defer func() { _ = s.Stop(context.Background()) }()

    led.Emit(ledger.RawEvent{Name: "RoundStart", Values: map[string]any{"taskId": "T1", "round": "1"}})
    led.Emit(ledger.RawEvent{Name: "RoundEnd", Values: map[string]any{"taskId": "T1", "round": "1"}})

    for _, want := range []string{"started", "ended"} {
        select {
        case rec := <-got:
            if rec.Phase != want || rec.TaskID != "T1" || rec.Round != 1 {
                t.Fatalf("want phase %s, got %+v", want, rec)
            }
        case <-time.After(time.Second):
            t.Fatalf("no %s record within 1s", want)
        }
    }
}

type sinkFunc func(RoundRecord)

func (f sinkFunc) Publish(v RoundRecord) { f(v) }
