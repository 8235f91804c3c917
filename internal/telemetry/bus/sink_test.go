package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// captureBus records published events for assertions.
type captureBus struct {
	mu     sync.Mutex
	events []TickEvent
	closed bool
}

func (b *captureBus) Publish(_ context.Context, ev TickEvent) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	return nil
}

func (b *captureBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *captureBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func testResult(id string) engine.IntegrationResult {
	return engine.IntegrationResult{
		TickID:    id,
		LearnerID: "learner-1",
		State: engine.TransitionState{
			Value:     0.62,
			Stage:     engine.StagePractice,
			UpdatedAt: time.Unix(1700000000, 0),
		},
		Duration: 2 * time.Millisecond,
	}
}

func TestSinkForwardsToBus(t *testing.T) {
	cb := &captureBus{}
	s := NewSink(logger.NewNop(), cb, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	if !s.Offer(testResult("t1")) {
		t.Fatal("offer rejected with empty queue")
	}
	deadline := time.Now().Add(time.Second)
	for cb.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event never published")
		}
		time.Sleep(time.Millisecond)
	}

	cb.mu.Lock()
	ev := cb.events[0]
	cb.mu.Unlock()
	if ev.TickID != "t1" || ev.LearnerID != "learner-1" || ev.Stage != "practice" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.State != 0.62 || ev.DurationMS != 2 {
		t.Fatalf("event payload = %+v", ev)
	}
}

func TestOfferDropsWhenFull(t *testing.T) {
	// No drain goroutine: the queue fills and further offers are refused.
	s := NewSink(logger.NewNop(), &captureBus{}, 2)
	if !s.Offer(testResult("a")) || !s.Offer(testResult("b")) {
		t.Fatal("queue rejected offers below capacity")
	}
	if s.Offer(testResult("c")) {
		t.Fatal("full queue accepted an offer")
	}
}

func TestCloseIsIdempotentAndClosesBus(t *testing.T) {
	cb := &captureBus{}
	s := NewSink(logger.NewNop(), cb, 2)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !cb.closed {
		t.Fatal("bus not closed")
	}
}
