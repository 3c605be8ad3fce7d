package verify

import (
    "context"
    "errors"
    "testing"

    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/ledger"
)

const node = "0xN0DE"

// stubExporter implements ProofExporter for tests.
type stubExporter struct {
    calls int
    err   error
}

func (s *stubExporter) ExportCallData(proof, pubSignals []byte) (string, string, error) {
    s.calls++
    if s.err != nil {
        return "", "", s.err
    }
    return "p:" + string(proof), "s:" + string(pubSignals), nil
}

func newTestGate(verifiers map[int]string) (*Gate, *ledger.Memory, *stubExporter) {
    led := ledger.NewMemory()
    coord := coordinator.New(node, led)
    exp := &stubExporter{}
    return New(node, led, coord, verifiers, exp), led, exp
}

func TestVerify_DecodesVerifiedFlag(t *testing.T) {
    g, led, exp := newTestGate(map[int]string{1024: "verifier-1k"})
    led.SetReceiptLogs("verify", ledger.Log{Name: "Verified", Values: map[string]any{"verified": 1}})

    tx, ok, err := g.Verify(context.Background(), node, "T1", 1024, []byte("proof"), []byte("sig"), 7, 100)
    if err != nil {
        t.Fatalf("verify: %v", err)
    }
    if tx == "" || !ok {
        t.Fatalf("got tx=%q verified=%v", tx, ok)
    }
    if exp.calls != 1 {
        t.Fatalf("exporter calls %d", exp.calls)
    }
    args := led.Calls()[0].Args
    if args[2] != "verifier-1k" || args[3] != "p:proof" || args[4] != "s:sig" || args[5] != 7 || args[6] != 100 {
        t.Fatalf("args %+v", args)
    }
}

func TestVerify_UnknownSize_FailsBeforeExport(t *testing.T) {
    g, led, exp := newTestGate(map[int]string{1024: "verifier-1k"})
    _, _, err := g.Verify(context.Background(), node, "T1", 2048, []byte("p"), []byte("s"), 0, 0)
    if !errors.Is(err, ErrNoVerifierForSize) {
        t.Fatalf("want ErrNoVerifierForSize, got %v", err)
    }
    if exp.calls != 0 {
        t.Fatalf("export attempted for unknown size")
    }
    if len(led.Calls()) != 0 {
        t.Fatalf("ledger call attempted for unknown size")
    }
}

func TestVerify_Unauthorized_NoExportNoLedger(t *testing.T) {
    g, led, exp := newTestGate(map[int]string{1024: "verifier-1k"})
    _, _, err := g.Verify(context.Background(), "0xEVE", "T1", 1024, []byte("p"), []byte("s"), 0, 0)
    if !errors.Is(err, coordinator.ErrUnauthorized) {
        t.Fatalf("want ErrUnauthorized, got %v", err)
    }
    if exp.calls != 0 || len(led.Calls()) != 0 {
        t.Fatalf("unauthorized verify reached exporter or ledger")
    }
}

func TestVerify_MissingVerifiedLog_NoResult(t *testing.T) {
    g, _, _ := newTestGate(map[int]string{1024: "verifier-1k"})
    _, _, err := g.Verify(context.Background(), node, "T1", 1024, []byte("p"), []byte("s"), 0, 0)
    if !errors.Is(err, coordinator.ErrNoResult) {
        t.Fatalf("want ErrNoResult, got %v", err)
    }
}

func TestVerify_ExportFailure_NoSubmission(t *testing.T) {
    g, led, exp := newTestGate(map[int]string{512: "verifier-small"})
    exp.err = errors.New("bad proof encoding")
    _, _, err := g.Verify(context.Background(), node, "T1", 512, []byte("p"), []byte("s"), 0, 0)
    if err == nil {
        t.Fatalf("want export error")
    }
    if len(led.Calls()) != 0 {
        t.Fatalf("submission attempted after export failure")
    }
}

func TestConfirmVerification_TerminalTransition(t *testing.T) {
    g, led, _ := newTestGate(nil)
    if _, err := g.ConfirmVerification(context.Background(), node, "T1"); err != nil {
        t.Fatalf("confirm: %v", err)
    }
    if calls := led.Calls(); len(calls) != 1 || calls[0].Method != "confirmVerification" {
        t.Fatalf("calls %+v", calls)
    }
    led.SetResult("getVerifierState", map[string]any{
        "unfinishedClients": []any{}, "invalidClients": []any{}, "valid": true, "confirmed": true,
    })
    vs, err := g.VerifierState(context.Background(), "T1")
    if err != nil || !vs.Confirmed {
        t.Fatalf("state %+v err %v", vs, err)
    }
}
