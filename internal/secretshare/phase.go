package secretshare

import (
    "context"
    "sync"
    "time"

    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// Phase is one stage of the masking handshake within a round.
type Phase string

const (
    PhaseSelection   Phase = "selection"
    PhaseCommitment  Phase = "commitment"
    PhaseCalculation Phase = "calculation"
    PhaseAggregation Phase = "aggregation"
    PhaseReveal      Phase = "reveal"
    PhaseDone        Phase = "done"
)

// Config bounds how long a round may sit in one phase before the tracker
// flags it as stalled.
type Config struct {
    PhaseTimeout time.Duration
}

func defaultConfig(c Config) Config {
    if c.PhaseTimeout <= 0 {
        c.PhaseTimeout = 2 * time.Minute
    }
    return c
}

// PhaseTracker follows one round through the handshake. It never gates
// ledger calls (phase ordering is the ledger's invariant); it only records
// progress and flags stalls for operators.
type PhaseTracker struct {
    mu        sync.Mutex
    cfg       Config
    taskID    string
    round     int
    phase     Phase
    enteredAt time.Time
    stalled   bool

    ctx    context.Context
    cancel context.CancelFunc
}

func NewPhaseTracker(taskID string, round int, cfg Config) *PhaseTracker {
    cfg = defaultConfig(cfg)
    return &PhaseTracker{cfg: cfg, taskID: taskID, round: round, phase: PhaseSelection, enteredAt: time.Now()}
}

// Start launches the stall watchdog.
func (t *PhaseTracker) Start(ctx context.Context) {
    t.mu.Lock()
    if t.ctx != nil { t.mu.Unlock(); return }
    t.ctx, t.cancel = context.WithCancel(ctx)
    t.enteredAt = time.Now()
    t.mu.Unlock()

    go t.watchdog()
}

// Stop ends tracking.
func (t *PhaseTracker) Stop() {
    t.mu.Lock(); if t.cancel != nil { t.cancel() }; t.mu.Unlock()
}

func (t *PhaseTracker) watchdog() {
    tick := time.NewTicker(time.Second)
    defer tick.Stop()
    for {
        select {
        case <-t.ctx.Done():
            return
        case <-tick.C:
            t.mu.Lock()
            if t.phase != PhaseDone && !t.stalled && time.Since(t.enteredAt) >= t.cfg.PhaseTimeout {
                t.stalled = true
                metrics.Inc("secretshare_rounds_total", map[string]string{"result": "stalled"})
                logger.ErrorJ("secretshare_phase", map[string]any{"event": "stall", "task": t.taskID, "round": t.round, "phase": string(t.phase), "latency_ms": time.Since(t.enteredAt).Milliseconds()})
            }
            t.mu.Unlock()
        }
    }
}

// Advance records entry into the next phase.
func (t *PhaseTracker) Advance(next Phase) {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.phase == PhaseDone || next == t.phase {
        return
    }
    metrics.ObserveSummary("secretshare_phase_ms", map[string]string{"phase": string(t.phase)}, float64(time.Since(t.enteredAt).Milliseconds()))
    logger.InfoJ("secretshare_phase", map[string]any{"event": "phase", "task": t.taskID, "round": t.round, "phase": string(next)})
    t.phase = next
    t.enteredAt = time.Now()
    if next == PhaseDone {
        result := "ok"
        if t.stalled { result = "stalled" }
        metrics.Inc("secretshare_rounds_total", map[string]string{"result": result})
    }
}

// Status is a read-only snapshot.
type Status struct {
    Phase   Phase
    Stalled bool
}

func (t *PhaseTracker) Status() Status {
    t.mu.Lock(); defer t.mu.Unlock()
    return Status{Phase: t.phase, Stalled: t.stalled}
}
