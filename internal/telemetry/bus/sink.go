package bus

import (
	"context"
	"sync"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// Sink is the bounded hand-off between the integrator and the bus. It
// satisfies the integrator's EventSink interface.
type Sink struct {
	log   *logger.Logger
	bus   Bus
	queue chan engine.IntegrationResult

	stopOnce sync.Once
	done     chan struct{}
}

// NewSink creates a sink with the given queue depth. depth <= 0 falls back
// to 256.
func NewSink(log *logger.Logger, b Bus, depth int) *Sink {
	if depth <= 0 {
		depth = 256
	}
	return &Sink{
		log:   log.With("component", "tick_sink"),
		bus:   b,
		queue: make(chan engine.IntegrationResult, depth),
		done:  make(chan struct{}),
	}
}

// Offer enqueues a result without blocking. It reports false when the queue
// is full and the event was dropped.
func (s *Sink) Offer(res engine.IntegrationResult) bool {
	select {
	case s.queue <- res:
		return true
	default:
		return false
	}
}

// Start drains the queue until ctx is cancelled or Close is called.
func (s *Sink) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case res := <-s.queue:
				if err := s.bus.Publish(ctx, eventFor(res)); err != nil {
					s.log.Warn("tick event publish failed", "error", err)
				}
			}
		}
	}()
}

func (s *Sink) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	return s.bus.Close()
}
