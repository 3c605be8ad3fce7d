package ledger

import (
    "context"
    "errors"
    "fmt"
)

// Package ledger is the boundary to the external distributed ledger. The
// coordination layer never interprets connection parameters; it only needs
// the capability set below: submit a state-mutating call, await its
// confirmation, run a read-only query, and tap the raw event stream.

var (
    // ErrLedger wraps any failure inside the ledger client itself
    // (submission, confirmation wait, query). Never retried by callers.
    ErrLedger = errors.New("ledger failure")
    // ErrConfirmTimeout is returned when a confirmation wait exceeds the
    // configured bound. Distinct from ErrLedger so callers can tell a slow
    // ledger from a broken one.
    ErrConfirmTimeout = errors.New("confirmation timeout")
)

// Handle identifies one submitted, not-yet-confirmed call.
type Handle string

// Log is one named result log attached to a confirmation.
type Log struct {
    Name   string         `json:"name"`
    Values map[string]any `json:"values"`
}

// Receipt is the confirmation of a submitted call: the durable transaction
// hash plus any result logs emitted by the ledger program.
type Receipt struct {
    TxHash string `json:"tx_hash"`
    Logs   []Log  `json:"logs"`
}

// RawEvent is one named ledger event with its opaque return values.
type RawEvent struct {
    Name   string         `json:"name"`
    Values map[string]any `json:"values"`
}

// Client is the consumed ledger capability set.
type Client interface {
    // Submit issues a state-mutating call and returns a handle for it.
    Submit(ctx context.Context, method string, args ...any) (Handle, error)
    // Confirm blocks until the call behind h is final and returns its receipt.
    Confirm(ctx context.Context, h Handle) (Receipt, error)
    // Query issues a read-only call and returns the raw, untyped result.
    Query(ctx context.Context, method string, args ...any) (any, error)
    // SubscribeRaw opens a new independent raw event source.
    SubscribeRaw() *RawSource
    // UnsubscribeRaw releases a source; unknown sources are a no-op.
    UnsubscribeRaw(*RawSource)
}

// DecodeLogs returns the values of the first log carrying any values, or nil
// when the receipt has no decodable log.
func DecodeLogs(r Receipt) map[string]any {
    for _, l := range r.Logs {
        if len(l.Values) > 0 {
            return l.Values
        }
    }
    return nil
}

// Failure wraps err into the ErrLedger kind, keeping the failing method name.
func Failure(method string, err error) error {
    return fmt.Errorf("%w: %s: %v", ErrLedger, method, err)
}
