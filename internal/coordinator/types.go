package coordinator

// RoundStatus is the ledger-defined round lifecycle stage.
type RoundStatus int

const (
    RoundStarted RoundStatus = iota
    RoundRunning
    RoundCalculating
    RoundAggregating
    RoundFinished
)

func (s RoundStatus) String() string {
    switch s {
    case RoundStarted:
        return "started"
    case RoundRunning:
        return "running"
    case RoundCalculating:
        return "calculating"
    case RoundAggregating:
        return "aggregating"
    case RoundFinished:
        return "finished"
    }
    return "unknown"
}

// TaskInfo is the typed view of one aggregation task.
type TaskInfo struct {
    Address      string
    TaskID       string
    Dataset      string
    URL          string
    Commitment   string
    TaskType     string
    Finished     bool
    EnableVerify bool
    Tolerance    int
}

// TaskRound is the typed view of one round within a task.
type TaskRound struct {
    TaskID          string
    Round           int
    Status          RoundStatus
    JoinedClients   []string
    FinishedClients []string
}

// PublicKeys is a client's registered key pair for a round.
type PublicKeys struct {
    PK1 string
    PK2 string
}

// SecretShareData is one sender's share bundle for a receiver: the revealed
// pieces plus the commitments published before the reveal.
type SecretShareData struct {
    Seed                string
    SeedCommitment      string
    SecretKey           string
    SecretKeyCommitment string
}

// VerifierState is the per-task verification aggregate. Confirmed only ever
// flips from false to true.
type VerifierState struct {
    UnfinishedClients []string
    InvalidClients    []string
    Valid             bool
    Confirmed         bool
}
