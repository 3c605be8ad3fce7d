package api

import (
    "context"
    "encoding/json"
    "errors"
    "net"
    "net/http"
    "os"
    "strconv"
    "time"

    "github.com/fedmask/chaincoord/internal/coordinator"
    "github.com/fedmask/chaincoord/internal/hub"
    "github.com/fedmask/chaincoord/internal/secretshare"
    "github.com/fedmask/chaincoord/internal/verify"
    "github.com/fedmask/chaincoord/pkg/lifecycle"
    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// Service is the operator-facing HTTP front for task/round operations. The
// mutating endpoints are behind CHAINCOORD_ENABLE_API=1; authorization is
// the coordinator's, not the transport's.
type Service struct {
    addr  string
    coord *coordinator.Coordinator
    hub   *hub.Hub
    orch  *secretshare.Orchestrator
    gate  *verify.Gate
    srv   *http.Server
}

func New(addr string, coord *coordinator.Coordinator) *Service {
    return &Service{addr: addr, coord: coord}
}

func (s *Service) Name() string { return "api" }

func (s *Service) Start(ctx context.Context) error {
    mux := http.NewServeMux()
    mux.HandleFunc("/v1/task", s.handleTask)
    mux.HandleFunc("/v1/task/finish", s.handleFinishTask)
    mux.HandleFunc("/v1/round/start", s.handleStartRound)
    mux.HandleFunc("/v1/round", s.handleRound)
    mux.HandleFunc("/v1/round/phase", s.handleRoundPhase)
    mux.HandleFunc("/v1/verify", s.handleVerify)
    mux.HandleFunc("/v1/verify/state", s.handleVerifierState)
    mux.HandleFunc("/v1/events", s.handleEvents)
    s.srv = &http.Server{Addr: s.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    ln, err := net.Listen("tcp", s.addr)
    if err != nil {
        return err
    }
    go func() {
        if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.ErrorJ("api", map[string]any{"result": "serve_error", "err": err.Error()})
        }
    }()
    logger.InfoJ("api", map[string]any{"op": "start", "result": "ok", "addr": ln.Addr().String()})
    return nil
}

func (s *Service) Stop(ctx context.Context) error {
    if s.srv == nil {
        return nil
    }
    return s.srv.Shutdown(ctx)
}

func apiEnabled() bool { return os.Getenv("CHAINCOORD_ENABLE_API") == "1" }

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func failCode(err error) int {
    switch {
    case errors.Is(err, coordinator.ErrUnauthorized):
        return http.StatusForbidden
    case errors.Is(err, coordinator.ErrMalformedResult), errors.Is(err, coordinator.ErrNoResult):
        return http.StatusBadGateway
    case errors.Is(err, coordinator.ErrMismatchedLists):
        return http.StatusBadRequest
    }
    return http.StatusBadGateway
}

type createTaskReq struct {
    Address      string `json:"address"`
    Dataset      string `json:"dataset"`
    Commitment   string `json:"commitment"`
    TaskType     string `json:"task_type"`
    EnableVerify bool   `json:"enable_verify"`
    Tolerance    int    `json:"tolerance"`
}

// handleTask serves POST (create) and GET (?id= lookup).
func (s *Service) handleTask(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        if !apiEnabled() {
            http.Error(w, "api disabled", http.StatusForbidden)
            return
        }
        var req createTaskReq
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            http.Error(w, "bad request", http.StatusBadRequest)
            return
        }
        tx, taskID, err := s.coord.CreateTask(r.Context(), req.Address, req.Dataset, req.Commitment, req.TaskType, req.EnableVerify, req.Tolerance)
        if err != nil {
            http.Error(w, err.Error(), failCode(err))
            return
        }
        metrics.Inc("api_requests_total", map[string]string{"route": "task_create", "result": "ok"})
        writeJSON(w, http.StatusAccepted, map[string]any{"tx": tx, "task_id": taskID})
    case http.MethodGet:
        id := r.URL.Query().Get("id")
        if id == "" {
            http.Error(w, "missing id", http.StatusBadRequest)
            return
        }
        ti, err := s.coord.GetTask(r.Context(), id)
        if err != nil {
            http.Error(w, err.Error(), failCode(err))
            return
        }
        writeJSON(w, http.StatusOK, ti)
    default:
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
    }
}

type finishTaskReq struct {
    Address string `json:"address"`
    TaskID  string `json:"task_id"`
}

func (s *Service) handleFinishTask(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if !apiEnabled() {
        http.Error(w, "api disabled", http.StatusForbidden)
        return
    }
    var req finishTaskReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "bad request", http.StatusBadRequest)
        return
    }
    tx, err := s.coord.FinishTask(r.Context(), req.Address, req.TaskID)
    if err != nil {
        http.Error(w, err.Error(), failCode(err))
        return
    }
    writeJSON(w, http.StatusAccepted, map[string]any{"tx": tx})
}

type startRoundReq struct {
    Address          string `json:"address"`
    TaskID           string `json:"task_id"`
    Round            int    `json:"round"`
    WeightCommitment string `json:"weight_commitment"`
}

func (s *Service) handleStartRound(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if !apiEnabled() {
        http.Error(w, "api disabled", http.StatusForbidden)
        return
    }
    var req startRoundReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "bad request", http.StatusBadRequest)
        return
    }
    tx, err := s.coord.StartRound(r.Context(), req.Address, req.TaskID, req.Round, req.WeightCommitment)
    if err != nil {
        http.Error(w, err.Error(), failCode(err))
        return
    }
    metrics.Inc("api_requests_total", map[string]string{"route": "round_start", "result": "ok"})
    writeJSON(w, http.StatusAccepted, map[string]any{"tx": tx})
}

// handleRound serves GET ?task=&round= round state lookups.
func (s *Service) handleRound(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    task := r.URL.Query().Get("task")
    round := r.URL.Query().Get("round")
    if task == "" || round == "" {
        http.Error(w, "missing task or round", http.StatusBadRequest)
        return
    }
    n, err := parseRound(round)
    if err != nil {
        http.Error(w, "bad round", http.StatusBadRequest)
        return
    }
    tr, err := s.coord.GetTaskRound(r.Context(), task, n)
    if err != nil {
        http.Error(w, err.Error(), failCode(err))
        return
    }
    writeJSON(w, http.StatusOK, tr)
}

func parseRound(s string) (int, error) { return strconv.Atoi(s) }

var _ lifecycle.Service = (*Service)(nil)
