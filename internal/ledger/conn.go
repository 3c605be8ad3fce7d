package ledger

import (
    "context"
    "encoding/hex"
    "encoding/json"
    "fmt"
    "sync"
    "sync/atomic"
    "time"

    "github.com/benbjohnson/clock"
    "github.com/gorilla/websocket"
    lru "github.com/hashicorp/golang-lru/v2"

    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// Config carries the opaque connection parameters for the ledger node. The
// coordination layer never interprets Key or Chain; they travel as-is in the
// open frame.
type Config struct {
    Endpoint       string
    Key            []byte
    Chain          map[string]any
    ConfirmTimeout time.Duration
    Clock          clock.Clock
}

const (
    defaultConfirmTimeout = 30 * time.Second
    receiptCacheSize      = 256
)

// frame is the wire unit: client sends open/call/confirm/query, the node
// answers result/error by id and pushes event frames unsolicited.
type frame struct {
    ID     uint64          `json:"id,omitempty"`
    Type   string          `json:"type"`
    Method string          `json:"method,omitempty"`
    Args   []any           `json:"args,omitempty"`
    Auth   string          `json:"auth,omitempty"`
    Params map[string]any  `json:"params,omitempty"`
    Result json.RawMessage `json:"result,omitempty"`
    Error  string          `json:"error,omitempty"`
    Event  *RawEvent       `json:"event,omitempty"`
}

// Conn is the websocket ledger client: request/response correlation by id,
// confirmation waits bounded by a clock, confirmed receipts cached in an LRU
// so repeated confirms stay local.
type Conn struct {
    ws             *websocket.Conn
    clk            clock.Clock
    confirmTimeout time.Duration

    writeMu sync.Mutex
    mu      sync.Mutex
    pending map[uint64]chan frame
    sources map[*RawSource]struct{}
    closed  bool

    receipts *lru.Cache[Handle, Receipt]
    nextID   atomic.Uint64
    stopOnce sync.Once
}

// Dial connects to the ledger node and performs the open handshake.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
    ws, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.Endpoint, nil)
    if err != nil {
        return nil, Failure("dial", err)
    }
    cache, err := lru.New[Handle, Receipt](receiptCacheSize)
    if err != nil {
        _ = ws.Close()
        return nil, Failure("dial", err)
    }
    c := &Conn{
        ws:             ws,
        clk:            cfg.Clock,
        confirmTimeout: cfg.ConfirmTimeout,
        pending:        make(map[uint64]chan frame),
        sources:        make(map[*RawSource]struct{}),
        receipts:       cache,
    }
    if c.clk == nil {
        c.clk = clock.New()
    }
    if c.confirmTimeout <= 0 {
        c.confirmTimeout = defaultConfirmTimeout
    }
    open := frame{Type: "open", Auth: hex.EncodeToString(cfg.Key), Params: cfg.Chain}
    if err := c.write(&open); err != nil {
        _ = ws.Close()
        return nil, err
    }
    go c.readLoop()
    logger.InfoJ("ledger_conn", map[string]any{"op": "dial", "result": "ok", "endpoint": cfg.Endpoint})
    return c, nil
}

func (c *Conn) write(f *frame) error {
    c.writeMu.Lock(); defer c.writeMu.Unlock()
    if err := c.ws.WriteJSON(f); err != nil {
        return Failure("write", err)
    }
    return nil
}

// send registers a reply slot and writes the frame.
func (c *Conn) send(f *frame) (chan frame, error) {
    id := c.nextID.Add(1)
    f.ID = id
    ch := make(chan frame, 1)
    c.mu.Lock()
    if c.closed {
        c.mu.Unlock()
        return nil, Failure(f.Method, fmt.Errorf("connection closed"))
    }
    c.pending[id] = ch
    c.mu.Unlock()
    if err := c.write(f); err != nil {
        c.mu.Lock(); delete(c.pending, id); c.mu.Unlock()
        return nil, err
    }
    return ch, nil
}

func (c *Conn) readLoop() {
    for {
        var f frame
        if err := c.ws.ReadJSON(&f); err != nil {
            c.shutdown(err)
            return
        }
        switch f.Type {
        case "event":
            if f.Event == nil {
                continue
            }
            metrics.Inc("ledger_events_total", map[string]string{"name": f.Event.Name})
            c.mu.Lock()
            for s := range c.sources {
                s.push(*f.Event)
            }
            c.mu.Unlock()
        default:
            c.mu.Lock()
            ch := c.pending[f.ID]
            delete(c.pending, f.ID)
            c.mu.Unlock()
            if ch != nil {
                ch <- f
            }
        }
    }
}

// shutdown fails every pending wait and closes every source.
func (c *Conn) shutdown(err error) {
    c.stopOnce.Do(func() {
        c.mu.Lock()
        c.closed = true
        for id, ch := range c.pending {
            close(ch)
            delete(c.pending, id)
        }
        for s := range c.sources {
            s.close()
            delete(c.sources, s)
        }
        c.mu.Unlock()
        if err != nil {
            logger.ErrorJ("ledger_conn", map[string]any{"op": "read", "result": "closed", "err": err.Error()})
        }
    })
}

// Close tears the connection down; pending waits fail, sources close.
func (c *Conn) Close() error {
    c.shutdown(nil)
    return c.ws.Close()
}

func (c *Conn) roundTrip(ctx context.Context, f *frame, timeout time.Duration) (frame, error) {
    begin := time.Now()
    ch, err := c.send(f)
    if err != nil {
        metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "error"})
        return frame{}, err
    }
    var timer *clock.Timer
    var expire <-chan time.Time
    if timeout > 0 {
        timer = c.clk.Timer(timeout)
        defer timer.Stop()
        expire = timer.C
    }
    select {
    case resp, ok := <-ch:
        if !ok {
            metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "error"})
            return frame{}, Failure(f.Method, fmt.Errorf("connection closed"))
        }
        if resp.Error != "" {
            metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "rejected"})
            return frame{}, Failure(f.Method, fmt.Errorf("%s", resp.Error))
        }
        metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "ok"})
        metrics.ObserveSummary("ledger_call_ms", map[string]string{"method": f.Method}, float64(time.Since(begin).Milliseconds()))
        return resp, nil
    case <-expire:
        c.drop(f.ID)
        metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "timeout"})
        return frame{}, fmt.Errorf("%w: %s", ErrConfirmTimeout, f.Method)
    case <-ctx.Done():
        c.drop(f.ID)
        metrics.Inc("ledger_calls_total", map[string]string{"method": f.Method, "result": "canceled"})
        return frame{}, Failure(f.Method, ctx.Err())
    }
}

func (c *Conn) drop(id uint64) {
    c.mu.Lock(); delete(c.pending, id); c.mu.Unlock()
}

func (c *Conn) Submit(ctx context.Context, method string, args ...any) (Handle, error) {
    resp, err := c.roundTrip(ctx, &frame{Type: "call", Method: method, Args: args}, 0)
    if err != nil {
        return "", err
    }
    var h string
    if err := json.Unmarshal(resp.Result, &h); err != nil {
        return "", Failure(method, err)
    }
    return Handle(h), nil
}

func (c *Conn) Confirm(ctx context.Context, h Handle) (Receipt, error) {
    if r, ok := c.receipts.Get(h); ok {
        return r, nil
    }
    resp, err := c.roundTrip(ctx, &frame{Type: "confirm", Method: "confirm", Args: []any{string(h)}}, c.confirmTimeout)
    if err != nil {
        return Receipt{}, err
    }
    var r Receipt
    if err := json.Unmarshal(resp.Result, &r); err != nil {
        return Receipt{}, Failure("confirm", err)
    }
    c.receipts.Add(h, r)
    return r, nil
}

func (c *Conn) Query(ctx context.Context, method string, args ...any) (any, error) {
    resp, err := c.roundTrip(ctx, &frame{Type: "query", Method: method, Args: args}, 0)
    if err != nil {
        return nil, err
    }
    var v any
    if err := json.Unmarshal(resp.Result, &v); err != nil {
        return nil, Failure(method, err)
    }
    return v, nil
}

func (c *Conn) SubscribeRaw() *RawSource {
    c.mu.Lock(); defer c.mu.Unlock()
    s := newRawSource()
    if c.closed {
        s.close()
        return s
    }
    c.sources[s] = struct{}{}
    return s
}

func (c *Conn) UnsubscribeRaw(s *RawSource) {
    if s == nil { return }
    c.mu.Lock(); defer c.mu.Unlock()
    if _, ok := c.sources[s]; !ok { return }
    delete(c.sources, s)
    s.close()
}

var _ Client = (*Conn)(nil)
