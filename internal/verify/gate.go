package verify

import (
    "context"
    "encoding/hex"
    "errors"
    "fmt"
    "time"

    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/ledger"
    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// ErrNoVerifierForSize means no verifier is configured for the requested
// weight-vector size class. Raised before proof export or submission.
var ErrNoVerifierForSize = errors.New("no verifier for weight size")

// ProofExporter turns a proof and its public signals into the call-data
// strings the ledger verifier expects. External collaborator; the gate never
// inspects the formats.
type ProofExporter interface {
    ExportCallData(proof, pubSignals []byte) (string, string, error)
}

// HexExporter is the default ProofExporter: hex call-data with no
// re-encoding. Deployments whose verifier expects a different layout inject
// their own exporter.
type HexExporter struct{}

func (HexExporter) ExportCallData(proof, pubSignals []byte) (string, string, error) {
    return "0x" + hex.EncodeToString(proof), "0x" + hex.EncodeToString(pubSignals), nil
}

// Gate submits zero-knowledge proofs for a task's aggregate, selecting the
// verifier configured for the weight-vector size class. Confirmation state
// lives with the coordinator; the gate owns only the proof path.
type Gate struct {
    node      string
    led       ledger.Client
    coord     *coordinator.Coordinator
    verifiers map[int]string
    export    ProofExporter
}

func New(node string, lc ledger.Client, coord *coordinator.Coordinator, verifiers map[int]string, export ProofExporter) *Gate {
    return &Gate{node: node, led: lc, coord: coord, verifiers: verifiers, export: export}
}

// Verify submits the proof at blockIndex covering the given sample count and
// returns the transaction hash plus the decoded verification outcome.
func (g *Gate) Verify(ctx context.Context, addr, taskID string, weightSize int, proof, pubSignals []byte, blockIndex, samples int) (string, bool, error) {
    if addr != g.node {
        metrics.Inc("verify_ops_total", map[string]string{"result": "unauthorized"})
        return "", false, fmt.Errorf("%w: %s", coordinator.ErrUnauthorized, addr)
    }
    verifier, ok := g.verifiers[weightSize]
    if !ok {
        metrics.Inc("verify_ops_total", map[string]string{"result": "no_verifier"})
        return "", false, fmt.Errorf("%w: %d", ErrNoVerifierForSize, weightSize)
    }
    formattedProof, formattedSignals, err := g.export.ExportCallData(proof, pubSignals)
    if err != nil {
        metrics.Inc("verify_ops_total", map[string]string{"result": "export_error"})
        return "", false, fmt.Errorf("export call data: %w", err)
    }
    begin := time.Now()
    h, err := g.led.Submit(ctx, "verify", addr, taskID, verifier, formattedProof, formattedSignals, blockIndex, samples)
    if err != nil {
        metrics.Inc("verify_ops_total", map[string]string{"result": "submit_error"})
        return "", false, err
    }
    r, err := g.led.Confirm(ctx, h)
    dur := time.Since(begin).Milliseconds()
    if err != nil {
        metrics.Inc("verify_ops_total", map[string]string{"result": "confirm_error"})
        return "", false, err
    }
    vals := ledger.DecodeLogs(r)
    if vals == nil {
        metrics.Inc("verify_ops_total", map[string]string{"result": "no_result"})
        return "", false, fmt.Errorf("%w: verify: verified log missing", coordinator.ErrNoResult)
    }
    verified := asBool(vals["verified"])
    result := "rejected"
    if verified { result = "ok" }
    metrics.Inc("verify_ops_total", map[string]string{"result": result})
    logger.InfoJ("verify_op", map[string]any{"op": "verify", "result": result, "task": taskID, "size": weightSize, "tx": r.TxHash, "latency_ms": dur})
    return r.TxHash, verified, nil
}

// VerifierState returns the task's verification aggregate.
func (g *Gate) VerifierState(ctx context.Context, taskID string) (coordinator.VerifierState, error) {
    return g.coord.GetVerifierState(ctx, taskID)
}

// ConfirmVerification performs the terminal confirmation transition.
func (g *Gate) ConfirmVerification(ctx context.Context, addr, taskID string) (string, error) {
    return g.coord.ConfirmVerification(ctx, addr, taskID)
}

func asBool(v any) bool {
    switch x := v.(type) {
    case bool:
        return x
    case int:
        return x != 0
    case float64:
        return x != 0
    case string:
        return x == "1" || x == "true"
    }
    return false
}
