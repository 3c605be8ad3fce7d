package coordinator

import (
    "bufio"
    "encoding/json"
    "errors"
    "os"
    "path/filepath"
    "sync"

    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// Journal is a minimal append-only log of submitted mutation intents. Each
// entry is one JSON line written before the confirmation wait. This is a
// best-effort guard to see after a restart which call was last in flight;
// the ledger remains the system of record.
type Journal struct {
    mu   sync.Mutex
    path string
}

// Intent is one journaled mutation: the operation, its (task, round) target
// and the ledger call handle.
type Intent struct {
    Op     string `json:"op"`
    TaskID string `json:"task_id"`
    Round  int    `json:"round"`
    Handle string `json:"handle"`
}

func NewJournal(path string) *Journal { return &Journal{path: path} }

// Append writes one intent as a single JSON line.
func (j *Journal) Append(in Intent) error {
    if j == nil { return nil }
    j.mu.Lock(); defer j.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil { return err }
    f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
    if err != nil { return err }
    b, _ := json.Marshal(in)
    if _, err = f.Write(append(b, '\n')); err != nil { _ = f.Close(); return err }
    if err = f.Sync(); err != nil { _ = f.Close(); return err }
    _ = f.Close()
    metrics.Inc("coord_journal_appends_total", nil)
    logger.InfoJ("coord_journal", map[string]any{"op": "append", "result": "ok", "call": in.Op, "task": in.TaskID, "round": in.Round})
    return nil
}

// LastIntent returns the last valid entry from the journal (if any).
func (j *Journal) LastIntent() (Intent, error) {
    if j == nil { return Intent{}, errors.New("nil journal") }
    f, err := os.Open(j.path)
    if err != nil { return Intent{}, err }
    defer f.Close()
    // Scan all lines and keep the last valid one (files are expected to be small)
    var last Intent
    s := bufio.NewScanner(f)
    for s.Scan() {
        var e Intent
        if json.Unmarshal(s.Bytes(), &e) == nil && e.Op != "" {
            last = e
        }
    }
    if last.Op == "" { return Intent{}, errors.New("no entries") }
    metrics.Inc("coord_journal_recover_total", map[string]string{"result": "ok"})
    logger.InfoJ("coord_journal", map[string]any{"op": "recover", "result": "ok", "call": last.Op, "task": last.TaskID, "round": last.Round})
    return last, nil
}
