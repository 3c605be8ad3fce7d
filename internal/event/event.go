package event

// Package event defines the closed set of typed domain events derived from
// raw ledger events. Every event names itself and exposes its address scope:
// an empty scope means the event is relevant to every subscriber.

// Event is one typed domain event.
type Event interface {
    // Name is the stable domain event name.
    Name() string
    // Scope lists the addresses the event targets; empty means broadcast.
    Scope() []string
}

// RoundStarted signals a new round on a task.
type RoundStarted struct {
    TaskID string
    Round  int
}

func (RoundStarted) Name() string { return "RoundStarted" }
func (RoundStarted) Scope() []string { return nil }

// RoundEnded signals a round reaching its terminal state.
type RoundEnded struct {
    TaskID string
    Round  int
}

func (RoundEnded) Name() string { return "RoundEnded" }
func (RoundEnded) Scope() []string { return nil }

// PartnerSelected carries the candidate set chosen for a round.
type PartnerSelected struct {
    TaskID string
    Round  int
    Addrs  []string
}

func (PartnerSelected) Name() string { return "PartnerSelected" }
func (e PartnerSelected) Scope() []string { return e.Addrs }

// CalculationStarted signals the calculation phase for the listed clients.
type CalculationStarted struct {
    TaskID string
    Round  int
    Addrs  []string
}

func (CalculationStarted) Name() string { return "CalculationStarted" }
func (e CalculationStarted) Scope() []string { return e.Addrs }

// AggregationStarted signals the aggregation phase for the listed clients.
type AggregationStarted struct {
    TaskID string
    Round  int
    Addrs  []string
}

func (AggregationStarted) Name() string { return "AggregationStarted" }
func (e AggregationStarted) Scope() []string { return e.Addrs }

// TaskCreated announces a new aggregation task (raw name "TaskCreated",
// domain name "HLRTaskCreated").
type TaskCreated struct {
    TaskID       string
    Address      string
    Dataset      string
    URL          string
    Commitment   string
    TaskType     string
    EnableVerify bool
    Tolerance    int
}

func (TaskCreated) Name() string { return "HLRTaskCreated" }
func (TaskCreated) Scope() []string { return nil }

// TaskFinished signals a task reaching its finished state.
type TaskFinished struct {
    TaskID string
}

func (TaskFinished) Name() string { return "TaskFinished" }
func (TaskFinished) Scope() []string { return nil }

// TaskMemberVerified reports one member's proof verification outcome.
type TaskMemberVerified struct {
    TaskID   string
    Address  string
    Verified bool
}

func (TaskMemberVerified) Name() string { return "TaskMemberVerified" }
func (e TaskMemberVerified) Scope() []string { return []string{e.Address} }

// TaskVerificationConfirmed signals the terminal verification confirmation.
type TaskVerificationConfirmed struct {
    TaskID string
}

func (TaskVerificationConfirmed) Name() string { return "TaskVerificationConfirmed" }
func (TaskVerificationConfirmed) Scope() []string { return nil }
