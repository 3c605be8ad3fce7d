package api

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/fedmask/chaincoord/internal/hub"
    "github.com/fedmask/chaincoord/internal/secretshare"
    "github.com/fedmask/chaincoord/internal/verify"
    "github.com/fedmask/chaincoord/pkg/logger"
)

// SetHub enables the /v1/events stream (optional).
func (s *Service) SetHub(h *hub.Hub) { s.hub = h }

// SetOrchestrator enables the /v1/round/phase lookup (optional).
func (s *Service) SetOrchestrator(o *secretshare.Orchestrator) { s.orch = o }

// SetGate enables the /v1/verify endpoints (optional).
func (s *Service) SetGate(g *verify.Gate) { s.gate = g }

// handleEvents streams the caller's filtered event feed as one JSON object
// per line until the client disconnects.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if s.hub == nil {
        http.Error(w, "events disabled", http.StatusNotFound)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        http.Error(w, "streaming unsupported", http.StatusInternalServerError)
        return
    }
    addr := r.URL.Query().Get("address")
    sub := s.hub.Subscribe(addr)
    defer s.hub.Unsubscribe(sub)

    w.Header().Set("Content-Type", "application/x-ndjson")
    w.WriteHeader(http.StatusOK)
    flusher.Flush()
    enc := json.NewEncoder(w)
    for {
        select {
        case <-r.Context().Done():
            return
        case ev, open := <-sub.Events():
            if !open {
                return
            }
            if err := enc.Encode(map[string]any{"event": ev.Name(), "data": ev}); err != nil {
                logger.ErrorJ("api", map[string]any{"route": "events", "result": "write_error", "err": err.Error()})
                return
            }
            flusher.Flush()
        }
    }
}

func (s *Service) handleRoundPhase(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if s.orch == nil {
        http.Error(w, "orchestrator disabled", http.StatusNotFound)
        return
    }
    task := r.URL.Query().Get("task")
    round, err := parseRound(r.URL.Query().Get("round"))
    if task == "" || err != nil {
        http.Error(w, "missing task or round", http.StatusBadRequest)
        return
    }
    st, ok := s.orch.RoundStatus(task, round)
    if !ok {
        http.Error(w, "round not tracked", http.StatusNotFound)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"phase": st.Phase, "stalled": st.Stalled})
}

type verifyReq struct {
    Address    string `json:"address"`
    TaskID     string `json:"task_id"`
    WeightSize int    `json:"weight_size"`
    Proof      []byte `json:"proof"`
    PubSignals []byte `json:"pub_signals"`
    BlockIndex int    `json:"block_index"`
    Samples    int    `json:"samples"`
}

func (s *Service) handleVerify(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if s.gate == nil {
        http.Error(w, "verification disabled", http.StatusNotFound)
        return
    }
    if !apiEnabled() {
        http.Error(w, "api disabled", http.StatusForbidden)
        return
    }
    var req verifyReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "bad request", http.StatusBadRequest)
        return
    }
    tx, verified, err := s.gate.Verify(r.Context(), req.Address, req.TaskID, req.WeightSize, req.Proof, req.PubSignals, req.BlockIndex, req.Samples)
    if err != nil {
        http.Error(w, err.Error(), verifyFailCode(err))
        return
    }
    writeJSON(w, http.StatusAccepted, map[string]any{"tx": tx, "verified": verified})
}

func (s *Service) handleVerifierState(w http.ResponseWriter, r *http.Request) {
    if s.gate == nil {
        http.Error(w, "verification disabled", http.StatusNotFound)
        return
    }
    switch r.Method {
    case http.MethodGet:
        task := r.URL.Query().Get("task")
        if task == "" {
            http.Error(w, "missing task", http.StatusBadRequest)
            return
        }
        vs, err := s.gate.VerifierState(r.Context(), task)
        if err != nil {
            http.Error(w, err.Error(), failCode(err))
            return
        }
        writeJSON(w, http.StatusOK, vs)
    case http.MethodPost:
        if !apiEnabled() {
            http.Error(w, "api disabled", http.StatusForbidden)
            return
        }
        var req finishTaskReq
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            http.Error(w, "bad request", http.StatusBadRequest)
            return
        }
        tx, err := s.gate.ConfirmVerification(r.Context(), req.Address, req.TaskID)
        if err != nil {
            http.Error(w, err.Error(), failCode(err))
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"tx": tx})
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

func verifyFailCode(err error) int {
    if errors.Is(err, verify.ErrNoVerifierForSize) {
        return http.StatusBadRequest
    }
    return failCode(err)
}
