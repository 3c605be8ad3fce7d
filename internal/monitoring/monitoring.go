package monitoring

import (
    "context"
    "errors"
    "net"
    "net/http"
    "time"

    "github.com/fedmask/chaincoord/pkg/lifecycle"
    "github.com/fedmask/chaincoord/pkg/logger"
    "github.com/fedmask/chaincoord/pkg/metrics"
)

// Service exposes /metrics and /healthz.
type Service struct {
    addr string
    srv  *http.Server
}

func New(addr string) *Service { return &Service{addr: addr} }

func (s *Service) Name() string { return "monitoring" }

func (s *Service) Start(ctx context.Context) error {
    mux := http.NewServeMux()
    mux.Handle("/metrics", metrics.Handler())
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    s.srv = &http.Server{Addr: s.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    ln, err := net.Listen("tcp", s.addr)
    if err != nil {
        return err
    }
    go func() {
        if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.ErrorJ("monitoring", map[string]any{"result": "serve_error", "err": err.Error()})
        }
    }()
    logger.InfoJ("monitoring", map[string]any{"op": "start", "result": "ok", "addr": ln.Addr().String()})
    return nil
}

func (s *Service) Stop(ctx context.Context) error {
    if s.srv == nil {
        return nil
    }
    return s.srv.Shutdown(ctx)
}

var _ lifecycle.Service = (*Service)(nil)
