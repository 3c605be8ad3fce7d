package hub

import (
    "context"

    "github.com/fedmask/chaincoord/internal/event"
    "github.com/fedmask/chaincoord/pkg/lifecycle"
    "github.com/fedmask/chaincoord/pkg/logger"
)

// Service is the lifecycle wrapper around a Hub. When a sink is configured
// it holds one broadcast subscription and exports round lifecycle records.
type Service struct {
    h    *Hub
    sink Sink
    sub  *Subscription
}

func NewService(h *Hub) *Service { return &Service{h: h, sink: noopSink{}} }

// SetSink installs a lifecycle record sink (optional).
func (s *Service) SetSink(k Sink) {
    if k != nil {
        s.sink = k
    }
}

func (s *Service) Name() string { return "event-hub" }

func (s *Service) Start(ctx context.Context) error {
    if _, ok := s.sink.(noopSink); ok {
        logger.Info("event hub start")
        return nil
    }
    s.sub = s.h.Subscribe("")
    go func() {
        for ev := range s.sub.Events() {
            switch e := ev.(type) {
            case event.RoundStarted:
                s.sink.Publish(RoundRecord{TaskID: e.TaskID, Round: e.Round, Phase: "started"})
            case event.RoundEnded:
                s.sink.Publish(RoundRecord{TaskID: e.TaskID, Round: e.Round, Phase: "ended"})
            }
        }
    }()
    logger.Info("event hub start (sink attached)")
    return nil
}

func (s *Service) Stop(ctx context.Context) error {
    if s.sub != nil {
        s.h.Unsubscribe(s.sub)
        s.sub = nil
    }
    logger.Info("event hub stop")
    return nil
}

var _ lifecycle.Service = (*Service)(nil)
