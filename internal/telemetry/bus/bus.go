// Package bus fans finished tick results out to observers over redis pub/sub.
// Publishing is always off the tick's synchronous path: the integrator offers
// events into a bounded queue and a forwarder goroutine drains it; under
// backpressure events are dropped, never queued unbounded.
package bus

import (
	"context"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
)

// TickEvent is the wire shape published per tick.
type TickEvent struct {
	TickID     string  `json:"tick_id"`
	LearnerID  string  `json:"learner_id"`
	Stage      string  `json:"stage"`
	State      float64 `json:"transition_state"`
	Degraded   bool    `json:"degraded"`
	Reason     string  `json:"reason,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	At         string  `json:"at"`
}

func eventFor(res engine.IntegrationResult) TickEvent {
	return TickEvent{
		TickID:     res.TickID,
		LearnerID:  res.LearnerID,
		Stage:      string(res.State.Stage),
		State:      res.State.Value,
		Degraded:   res.Degraded,
		Reason:     res.DegradedReason,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
		At:         res.State.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Bus is the transport behind the queue.
type Bus interface {
	Publish(ctx context.Context, ev TickEvent) error
	Close() error
}

// NopBus discards everything; used when no REDIS_ADDR is configured.
type NopBus struct{}

func (NopBus) Publish(context.Context, TickEvent) error { return nil }
func (NopBus) Close() error                             { return nil }
