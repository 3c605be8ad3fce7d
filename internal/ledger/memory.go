package ledger

import (
    "context"
    "fmt"
    "sync"
)

// Memory is an in-process ledger used by tests and local development. Calls
// confirm synchronously; results, receipts, and failures are scriptable per
// method; every emitted raw event fans out to all open sources.
type Memory struct {
    mu       sync.Mutex
    seq      int
    results  map[string]any
    receipts map[string][]Log
    fail     map[string]error
    pending  map[Handle]Receipt
    calls    []Call
    queries  []Call
    sources  map[*RawSource]struct{}
}

// Call records one submitted or queried method with its arguments.
type Call struct {
    Method string
    Args   []any
}

func NewMemory() *Memory {
    return &Memory{
        results:  make(map[string]any),
        receipts: make(map[string][]Log),
        fail:     make(map[string]error),
        pending:  make(map[Handle]Receipt),
        sources:  make(map[*RawSource]struct{}),
    }
}

// SetResult scripts the raw result of a query method.
func (m *Memory) SetResult(method string, v any) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.results[method] = v
}

// SetReceiptLogs scripts the result logs attached to confirmations of method.
func (m *Memory) SetReceiptLogs(method string, logs ...Log) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.receipts[method] = logs
}

// FailWith scripts a failure for method (submit and query alike).
func (m *Memory) FailWith(method string, err error) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.fail[method] = err
}

// Calls returns the recorded mutating calls in submission order.
func (m *Memory) Calls() []Call {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]Call, len(m.calls))
    copy(out, m.calls)
    return out
}

// Queries returns the recorded read-only calls in order.
func (m *Memory) Queries() []Call {
    m.mu.Lock(); defer m.mu.Unlock()
    out := make([]Call, len(m.queries))
    copy(out, m.queries)
    return out
}

func (m *Memory) Submit(_ context.Context, method string, args ...any) (Handle, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if err := m.fail[method]; err != nil {
        return "", Failure(method, err)
    }
    m.seq++
    m.calls = append(m.calls, Call{Method: method, Args: args})
    h := Handle(fmt.Sprintf("%s#%d", method, m.seq))
    m.pending[h] = Receipt{TxHash: fmt.Sprintf("0xmem%04d", m.seq), Logs: m.receipts[method]}
    return h, nil
}

func (m *Memory) Confirm(_ context.Context, h Handle) (Receipt, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.pending[h]
    if !ok {
        return Receipt{}, Failure("confirm", fmt.Errorf("unknown handle %q", h))
    }
    delete(m.pending, h)
    return r, nil
}

func (m *Memory) Query(_ context.Context, method string, args ...any) (any, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if err := m.fail[method]; err != nil {
        return nil, Failure(method, err)
    }
    m.queries = append(m.queries, Call{Method: method, Args: args})
    return m.results[method], nil
}

func (m *Memory) SubscribeRaw() *RawSource {
    m.mu.Lock(); defer m.mu.Unlock()
    s := newRawSource()
    m.sources[s] = struct{}{}
    return s
}

func (m *Memory) UnsubscribeRaw(s *RawSource) {
    if s == nil { return }
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.sources[s]; !ok { return }
    delete(m.sources, s)
    s.close()
}

// Emit fans one raw event out to every open source.
func (m *Memory) Emit(ev RawEvent) {
    m.mu.Lock(); defer m.mu.Unlock()
    for s := range m.sources {
        s.push(ev)
    }
}

var _ Client = (*Memory)(nil)
