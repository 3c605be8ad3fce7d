package secretshare

import (
    "context"
    "fmt"
    "sync"

    "golang.org/x/sync/errgroup"

    "github.com/fedmask/chaincoord/internal/coordinator"
)

// Orchestrator drives the masking handshake for a round: candidate
// selection, commitment upload, calculation, result commitments,
// aggregation, reveals, and share retrieval. It issues ledger calls in the
// documented order only; whether an out-of-order call is acceptable is the
// ledger's decision, and its rejection propagates to the caller unchanged.
type Orchestrator struct {
    node  string
    coord *coordinator.Coordinator
    cfg   Config

    mu       sync.Mutex
    trackers map[string]*PhaseTracker
}

func New(node string, coord *coordinator.Coordinator, cfg Config) *Orchestrator {
    return &Orchestrator{node: node, coord: coord, cfg: cfg, trackers: make(map[string]*PhaseTracker)}
}

func roundKey(taskID string, round int) string { return fmt.Sprintf("%s|%d", taskID, round) }

// tracker returns the round's phase tracker, creating and starting it on
// first use.
func (o *Orchestrator) tracker(ctx context.Context, taskID string, round int) *PhaseTracker {
    key := roundKey(taskID, round)
    o.mu.Lock()
    defer o.mu.Unlock()
    t, ok := o.trackers[key]
    if !ok {
        t = NewPhaseTracker(taskID, round, o.cfg)
        t.Start(ctx)
        o.trackers[key] = t
    }
    return t
}

// RoundStatus reports the tracked handshake phase for a round.
func (o *Orchestrator) RoundStatus(taskID string, round int) (Status, bool) {
    o.mu.Lock()
    defer o.mu.Unlock()
    t, ok := o.trackers[roundKey(taskID, round)]
    if !ok {
        return Status{}, false
    }
    return t.Status(), true
}

// SelectCandidates fixes the round's candidate set (phase 1).
func (o *Orchestrator) SelectCandidates(ctx context.Context, taskID string, round int, clients []string) (string, error) {
    o.tracker(ctx, taskID, round).Advance(PhaseSelection)
    return o.coord.SelectCandidates(ctx, o.node, taskID, round, clients)
}

// UploadCommitments publishes the seed and secret-key commitment pairs
// (phase 2). Both lists are order-aligned with receivers; reveals for these
// receivers are only accepted by the ledger after this step.
func (o *Orchestrator) UploadCommitments(ctx context.Context, taskID string, round int, receivers, seedCommitments, keyCommitments []string) (string, string, error) {
    o.tracker(ctx, taskID, round).Advance(PhaseCommitment)
    seedTx, err := o.coord.UploadSeedCommitment(ctx, o.node, taskID, round, receivers, seedCommitments)
    if err != nil {
        return "", "", err
    }
    keyTx, err := o.coord.UploadSecretKeyCommitment(ctx, o.node, taskID, round, receivers, keyCommitments)
    if err != nil {
        return seedTx, "", err
    }
    return seedTx, keyTx, nil
}

// StartCalculation opens the calculation phase (phase 3).
func (o *Orchestrator) StartCalculation(ctx context.Context, taskID string, round int, clients []string) (string, error) {
    o.tracker(ctx, taskID, round).Advance(PhaseCalculation)
    return o.coord.StartCalculation(ctx, o.node, taskID, round, clients)
}

// UploadResultCommitment records one client's masked result (phase 4).
func (o *Orchestrator) UploadResultCommitment(ctx context.Context, taskID string, round int, commitment string) (string, error) {
    return o.coord.UploadResultCommitment(ctx, o.node, taskID, round, commitment)
}

// StartAggregation opens the aggregation phase (phase 5).
func (o *Orchestrator) StartAggregation(ctx context.Context, taskID string, round int, clients []string) (string, error) {
    o.tracker(ctx, taskID, round).Advance(PhaseAggregation)
    return o.coord.StartAggregation(ctx, o.node, taskID, round, clients)
}

// RevealSecrets uploads the seed and secret-key values (phase 6). Values
// whose commitments were never uploaded are rejected ledger-side; the
// rejection surfaces here without reordering or retrying.
func (o *Orchestrator) RevealSecrets(ctx context.Context, taskID string, round int, senders, seeds, keys []string) (string, string, error) {
    o.tracker(ctx, taskID, round).Advance(PhaseReveal)
    seedTx, err := o.coord.UploadSeed(ctx, o.node, taskID, round, senders, seeds)
    if err != nil {
        return "", "", err
    }
    keyTx, err := o.coord.UploadSecretKey(ctx, o.node, taskID, round, senders, keys)
    if err != nil {
        return seedTx, "", err
    }
    return seedTx, keyTx, nil
}

// EndRound closes the round and its tracker.
func (o *Orchestrator) EndRound(ctx context.Context, taskID string, round int) (string, error) {
    tx, err := o.coord.EndRound(ctx, o.node, taskID, round)
    if err != nil {
        return "", err
    }
    o.mu.Lock()
    if t, ok := o.trackers[roundKey(taskID, round)]; ok {
        t.Advance(PhaseDone)
        t.Stop()
        delete(o.trackers, roundKey(taskID, round))
    }
    o.mu.Unlock()
    return tx, nil
}

// CollectShares retrieves every sender's share bundle for one receiver
// (phase 7), fanning the per-sender queries out concurrently and returning
// them in sender order so the receiver can strip each sender's mask.
func (o *Orchestrator) CollectShares(ctx context.Context, taskID string, round int, senders []string, receiver string) ([]coordinator.SecretShareData, error) {
    out := make([]coordinator.SecretShareData, len(senders))
    g, ctx := errgroup.WithContext(ctx)
    for i, sender := range senders {
        g.Go(func() error {
            recs, err := o.coord.GetSecretShareDatas(ctx, taskID, round, []string{sender}, receiver)
            if err != nil {
                return err
            }
            if len(recs) != 1 {
                return fmt.Errorf("%w: getSecretShareDatas: %d records for one sender", coordinator.ErrMalformedResult, len(recs))
            }
            out[i] = recs[0]
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }
    return out, nil
}
