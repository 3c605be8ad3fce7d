package lifecycle

import (
    "context"

    "go.uber.org/multierr"

    "github.com/fedmask/chaincoord/pkg/logger"
)

// Service is the minimal lifecycle contract every long-lived component
// implements. Start must be non-blocking (spawn goroutines, return).
type Service interface {
    Name() string
    Start(ctx context.Context) error
    Stop(ctx context.Context) error
}

// Manager starts services in registration order and stops them in reverse.
type Manager struct{ svcs []Service }

func New() *Manager { return &Manager{} }

func (m *Manager) Add(s Service) { m.svcs = append(m.svcs, s) }

// StartAll starts every registered service, failing fast on the first error.
// Services already started are stopped best-effort before returning.
func (m *Manager) StartAll(ctx context.Context) error {
    for i, s := range m.svcs {
        if err := s.Start(ctx); err != nil {
            logger.ErrorJ("lifecycle", map[string]any{"service": s.Name(), "op": "start", "result": "error", "err": err.Error()})
            for j := i - 1; j >= 0; j-- { _ = m.svcs[j].Stop(ctx) }
            return err
        }
        logger.InfoJ("lifecycle", map[string]any{"service": s.Name(), "op": "start", "result": "ok"})
    }
    return nil
}

// StopAll stops services in reverse order, aggregating errors.
func (m *Manager) StopAll(ctx context.Context) error {
    var err error
    for i := len(m.svcs) - 1; i >= 0; i-- {
        s := m.svcs[i]
        if e := s.Stop(ctx); e != nil {
            logger.ErrorJ("lifecycle", map[string]any{"service": s.Name(), "op": "stop", "result": "error", "err": e.Error()})
            err = multierr.Append(err, e)
            continue
        }
        logger.InfoJ("lifecycle", map[string]any{"service": s.Name(), "op": "stop", "result": "ok"})
    }
    return err
}
