package ledger

import (
    "sync"

    "github.com/fedmask/chaincoord/pkg/metrics"
)

const sourceBuffer = 128

// RawSource is one independent tap on the ledger's event stream. Each
// subscriber gets its own source; a slow consumer only drops its own events.
type RawSource struct {
    ch   chan RawEvent
    once sync.Once
}

func newRawSource() *RawSource { return &RawSource{ch: make(chan RawEvent, sourceBuffer)} }

// Events is the receive side; closed when the source is released.
func (s *RawSource) Events() <-chan RawEvent { return s.ch }

// push delivers non-blocking; events beyond the buffer are dropped.
func (s *RawSource) push(ev RawEvent) {
    select {
    case s.ch <- ev:
    default:
        metrics.Inc("ledger_event_drops_total", nil)
    }
}

func (s *RawSource) close() { s.once.Do(func() { close(s.ch) }) }
