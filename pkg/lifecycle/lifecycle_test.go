package lifecycle

import (
    "context"
    "errors"
    "testing"
)

type stubService struct {
    name     string
    startErr error
    stopErr  error
    log      *[]string
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Start(ctx context.Context) error {
    *s.log = append(*s.log, "start:"+s.name)
    return s.startErr
}

func (s *stubService) Stop(ctx context.Context) error {
    *s.log = append(*s.log, "stop:"+s.name)
    return s.stopErr
}

func TestManager_StartStopOrder(t *testing.T) {
    var log []string
    m := New()
    m.Add(&stubService{name: "a", log: &log})
    m.Add(&stubService{name: "b", log: &log})

    if err := m.StartAll(context.Background()); err != nil {
        t.Fatalf("start: %v", err)
    }
    if err := m.StopAll(context.Background()); err != nil {
        t.Fatalf("stop: %v", err)
    }
    want := []string{"start:a", "start:b", "stop:b", "stop:a"}
    if len(log) != len(want) {
        t.Fatalf("log mismatch: %v", log)
    }
    for i := range want {
        if log[i] != want[i] {
            t.Fatalf("step %d: got %q want %q", i, log[i], want[i])
        }
    }
}

func TestManager_StartFailureRollsBack(t *testing.T) {
    var log []string
    boom := errors.New("bind failed")
    m := New()
    m.Add(&stubService{name: "a", log: &log})
    m.Add(&stubService{name: "b", startErr: boom, log: &log})
    m.Add(&stubService{name: "c", log: &log})

    if err := m.StartAll(context.Background()); !errors.Is(err, boom) {
        t.Fatalf("want %v, got %v", boom, err)
    }
    want := []string{"start:a", "start:b", "stop:a"}
    if len(log) != len(want) {
        t.Fatalf("log mismatch: %v", log)
    }
    for i := range want {
        if log[i] != want[i] {
            t.Fatalf("step %d: got %q want %q", i, log[i], want[i])
        }
    }
}

func TestManager_StopAggregatesErrors(t *testing.T) {
    var log []string
    e1, e2 := errors.New("one"), errors.New("two")
    m := New()
    m.Add(&stubService{name: "a", stopErr: e1, log: &log})
    m.Add(&stubService{name: "b", stopErr: e2, log: &log})

    if err := m.StartAll(context.Background()); err != nil {
        t.Fatalf("start: %v", err)
    }
    err := m.StopAll(context.Background())
    if !errors.Is(err, e1) || !errors.Is(err, e2) {
        t.Fatalf("aggregate missing causes: %v", err)
    }
}
