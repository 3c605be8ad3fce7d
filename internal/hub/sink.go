package hub

// RoundRecord captures a round lifecycle transition for downstream sinks.
type RoundRecord struct {
    TaskID string `json:"task_id"`
    Round  int    `json:"round"`
    Phase  string `json:"phase"`
}

// Sink defines a non-blocking hook to export round lifecycle records.
// Implementations must return quickly; errors should be internalized.
type Sink interface {
    Publish(RoundRecord)
}

// noopSink is the default sink: no-op.
type noopSink struct{}

func (noopSink) Publish(RoundRecord) {}
