package hub

import (
    "sync"

    "github.com/fedmask/chaincoord/internal/event"
    "github.com/fedmask/chaincoord/internal/ledger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

const subBuffer = 128

// Subscription is one caller's typed event stream. Events arrives in the
// order the subscriber's own upstream source observed them and is closed
// after Unsubscribe.
type Subscription struct {
    addr string
    out  chan event.Event
    done chan struct{}
}

// Events is the receive side of the stream.
func (s *Subscription) Events() <-chan event.Event { return s.out }

// Hub fans the ledger's raw event stream out to independent subscribers.
// Each Subscribe opens its own upstream raw source: duplicated upstream
// work, but full subscriber isolation and trivial cancellation. The
// subscription registry is the hub's only mutable state and is guarded by
// one lock.
type Hub struct {
    ledger ledger.Client

    mu   sync.Mutex
    subs map[*Subscription]*ledger.RawSource
}

func New(lc ledger.Client) *Hub {
    return &Hub{ledger: lc, subs: make(map[*Subscription]*ledger.RawSource)}
}

// Subscribe opens a typed stream filtered for addr. Events whose scope is
// empty are delivered to everyone; scoped events only when addr is listed.
func (h *Hub) Subscribe(addr string) *Subscription {
    src := h.ledger.SubscribeRaw()
    sub := &Subscription{addr: addr, out: make(chan event.Event, subBuffer), done: make(chan struct{})}
    h.mu.Lock()
    h.subs[sub] = src
    n := len(h.subs)
    h.mu.Unlock()
    metrics.SetGauge("hub_subscribers", nil, float64(n))
    go h.pump(sub, src)
    return sub
}

// Unsubscribe releases the stream and its upstream source. Idempotent:
// unknown or already-released subscriptions are a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
    if sub == nil {
        return
    }
    h.mu.Lock()
    src, ok := h.subs[sub]
    if ok {
        delete(h.subs, sub)
    }
    n := len(h.subs)
    h.mu.Unlock()
    if !ok {
        return
    }
    close(sub.done)
    h.ledger.UnsubscribeRaw(src)
    metrics.SetGauge("hub_subscribers", nil, float64(n))
}

// pump translates and filters one subscriber's upstream. It is the only
// writer of sub.out, so an event is either delivered or dropped, never sent
// after the stream closes.
func (h *Hub) pump(sub *Subscription, src *ledger.RawSource) {
    defer close(sub.out)
    for {
        select {
        case <-sub.done:
            return
        case raw, ok := <-src.Events():
            if !ok {
                return
            }
            ev, recognized := event.Translate(raw)
            if !recognized {
                metrics.Inc("hub_events_total", map[string]string{"name": "unrecognized"})
                continue
            }
            metrics.Inc("hub_events_total", map[string]string{"name": ev.Name()})
            if !relevant(ev, sub.addr) {
                continue
            }
            select {
            case sub.out <- ev:
            case <-sub.done:
                return
            default:
                metrics.Inc("hub_event_drops_total", nil)
            }
        }
    }
}

func relevant(ev event.Event, addr string) bool {
    scope := ev.Scope()
    if len(scope) == 0 {
        return true
    }
    for _, a := range scope {
        if a == addr {
            return true
        }
    }
    return false
}
