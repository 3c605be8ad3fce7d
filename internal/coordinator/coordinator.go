package coordinator

import (
    "context"
    "fmt"
    "time"

    "github.com/fedmask/chaincoord/internal/ledger"
    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
    "github.com/fedmask/chaincoord/pkg/trace"
)

// Protocol tuning constants fixed by startRound; not caller-configurable.
const (
    roundWeightCap  = 1 << 20
    roundWeightStep = 8
)

// Coordinator sequences the task/round lifecycle against the ledger. Every
// mutating operation is gated on the single authorized node address before
// any ledger call is issued; queries are open. The coordinator holds no
// task state of its own: the ledger is the system of record.
type Coordinator struct {
    node    string
    led     ledger.Client
    journal *Journal
}

func New(node string, lc ledger.Client) *Coordinator {
    return &Coordinator{node: node, led: lc}
}

// SetJournal installs a best-effort mutation intent journal (optional).
func (c *Coordinator) SetJournal(j *Journal) { c.journal = j }

func (c *Coordinator) authorize(op, addr string) error {
    if addr != c.node {
        metrics.Inc("coord_ops_total", map[string]string{"op": op, "result": "unauthorized"})
        logger.ErrorJ("coord_op", map[string]any{"op": op, "result": "unauthorized", "addr": addr})
        return fmt.Errorf("%w: %s", ErrUnauthorized, addr)
    }
    return nil
}

// mutate submits one ledger call, journals the intent, and awaits finality.
func (c *Coordinator) mutate(ctx context.Context, op, taskID string, round int, args ...any) (ledger.Receipt, error) {
    ctx, tid := trace.Ensure(ctx)
    begin := time.Now()
    h, err := c.led.Submit(ctx, op, args...)
    if err != nil {
        metrics.Inc("coord_ops_total", map[string]string{"op": op, "result": "submit_error"})
        logger.ErrorJ("coord_op", map[string]any{"op": op, "result": "submit_error", "err": err.Error(), "trace_id": tid})
        return ledger.Receipt{}, err
    }
    if c.journal != nil {
        _ = c.journal.Append(Intent{Op: op, TaskID: taskID, Round: round, Handle: string(h)})
    }
    r, err := c.led.Confirm(ctx, h)
    dur := time.Since(begin).Milliseconds()
    if err != nil {
        metrics.Inc("coord_ops_total", map[string]string{"op": op, "result": "confirm_error"})
        logger.ErrorJ("coord_op", map[string]any{"op": op, "result": "confirm_error", "err": err.Error(), "latency_ms": dur, "trace_id": tid})
        return ledger.Receipt{}, err
    }
    metrics.Inc("coord_ops_total", map[string]string{"op": op, "result": "ok"})
    metrics.ObserveSummary("coord_op_ms", map[string]string{"op": op}, float64(dur))
    logger.InfoJ("coord_op", map[string]any{"op": op, "result": "ok", "tx": r.TxHash, "task": taskID, "latency_ms": dur, "trace_id": tid})
    return r, nil
}

// CreateTask registers a new aggregation task and returns the transaction
// hash plus the ledger-assigned task identifier decoded from the result logs.
func (c *Coordinator) CreateTask(ctx context.Context, addr, dataset, commitment, taskType string, enableVerify bool, tolerance int) (string, string, error) {
    if err := c.authorize("createTask", addr); err != nil {
        return "", "", err
    }
    r, err := c.mutate(ctx, "createTask", "", 0, addr, dataset, commitment, taskType, enableVerify, tolerance)
    if err != nil {
        return "", "", err
    }
    vals := ledger.DecodeLogs(r)
    taskID := asString(vals["taskId"])
    if taskID == "" {
        return "", "", fmt.Errorf("%w: createTask: taskId log missing", ErrNoResult)
    }
    return r.TxHash, taskID, nil
}

// FinishTask marks the task finished; terminal for the task.
func (c *Coordinator) FinishTask(ctx context.Context, addr, taskID string) (string, error) {
    if err := c.authorize("finishTask", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "finishTask", taskID, 0, addr, taskID)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// StartRound opens a round with the supplied weight commitment. The weight
// cap and step parameters are protocol constants fixed here.
func (c *Coordinator) StartRound(ctx context.Context, addr, taskID string, round int, weightCommitment string) (string, error) {
    if err := c.authorize("startRound", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "startRound", taskID, round, addr, taskID, round, weightCommitment, roundWeightCap, roundWeightStep)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// JoinRound registers a client's round key pair.
func (c *Coordinator) JoinRound(ctx context.Context, addr, taskID string, round int, pk1, pk2 string) (string, error) {
    if err := c.authorize("joinRound", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "joinRound", taskID, round, addr, taskID, round, pk1, pk2)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// SelectCandidates fixes the candidate set for a round.
func (c *Coordinator) SelectCandidates(ctx context.Context, addr, taskID string, round int, clients []string) (string, error) {
    if err := c.authorize("selectCandidates", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "selectCandidates", taskID, round, addr, taskID, round, clients)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// UploadSeedCommitment publishes order-aligned (receivers, commitments).
func (c *Coordinator) UploadSeedCommitment(ctx context.Context, addr, taskID string, round int, receivers, commitments []string) (string, error) {
    if err := c.authorize("uploadSeedCommitment", addr); err != nil {
        return "", err
    }
    if len(receivers) != len(commitments) {
        return "", fmt.Errorf("%w: uploadSeedCommitment: %d receivers, %d commitments", ErrMismatchedLists, len(receivers), len(commitments))
    }
    r, err := c.mutate(ctx, "uploadSeedCommitment", taskID, round, addr, taskID, round, receivers, commitments)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// UploadSecretKeyCommitment publishes order-aligned (receivers, commitments).
func (c *Coordinator) UploadSecretKeyCommitment(ctx context.Context, addr, taskID string, round int, receivers, commitments []string) (string, error) {
    if err := c.authorize("uploadSecretKeyCommitment", addr); err != nil {
        return "", err
    }
    if len(receivers) != len(commitments) {
        return "", fmt.Errorf("%w: uploadSecretKeyCommitment: %d receivers, %d commitments", ErrMismatchedLists, len(receivers), len(commitments))
    }
    r, err := c.mutate(ctx, "uploadSecretKeyCommitment", taskID, round, addr, taskID, round, receivers, commitments)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// StartCalculation moves the round into the calculation phase.
func (c *Coordinator) StartCalculation(ctx context.Context, addr, taskID string, round int, clients []string) (string, error) {
    if err := c.authorize("startCalculation", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "startCalculation", taskID, round, addr, taskID, round, clients)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// UploadResultCommitment publishes one client's masked result commitment.
func (c *Coordinator) UploadResultCommitment(ctx context.Context, addr, taskID string, round int, commitment string) (string, error) {
    if err := c.authorize("uploadResultCommitment", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "uploadResultCommitment", taskID, round, addr, taskID, round, commitment)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// StartAggregation moves the round into the aggregation phase.
func (c *Coordinator) StartAggregation(ctx context.Context, addr, taskID string, round int, clients []string) (string, error) {
    if err := c.authorize("startAggregation", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "startAggregation", taskID, round, addr, taskID, round, clients)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// UploadSeed reveals seed pieces for order-aligned senders. The ledger
// rejects reveals whose commitments were not uploaded first; that rejection
// propagates unchanged.
func (c *Coordinator) UploadSeed(ctx context.Context, addr, taskID string, round int, senders, seeds []string) (string, error) {
    if err := c.authorize("uploadSeed", addr); err != nil {
        return "", err
    }
    if len(senders) != len(seeds) {
        return "", fmt.Errorf("%w: uploadSeed: %d senders, %d seeds", ErrMismatchedLists, len(senders), len(seeds))
    }
    r, err := c.mutate(ctx, "uploadSeed", taskID, round, addr, taskID, round, senders, seeds)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// UploadSecretKey reveals secret-key pieces for order-aligned senders.
func (c *Coordinator) UploadSecretKey(ctx context.Context, addr, taskID string, round int, senders, keys []string) (string, error) {
    if err := c.authorize("uploadSecretKey", addr); err != nil {
        return "", err
    }
    if len(senders) != len(keys) {
        return "", fmt.Errorf("%w: uploadSecretKey: %d senders, %d keys", ErrMismatchedLists, len(senders), len(keys))
    }
    r, err := c.mutate(ctx, "uploadSecretKey", taskID, round, addr, taskID, round, senders, keys)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// EndRound closes the round; terminal for the round.
func (c *Coordinator) EndRound(ctx context.Context, addr, taskID string, round int) (string, error) {
    if err := c.authorize("endRound", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "endRound", taskID, round, addr, taskID, round)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}

// ConfirmVerification flips the task's verification confirmation; the flag
// is monotonic on the ledger side and never unset.
func (c *Coordinator) ConfirmVerification(ctx context.Context, addr, taskID string) (string, error) {
    if err := c.authorize("confirmVerification", addr); err != nil {
        return "", err
    }
    r, err := c.mutate(ctx, "confirmVerification", taskID, 0, addr, taskID)
    if err != nil {
        return "", err
    }
    return r.TxHash, nil
}
