// Package monitor watches tick latency and drives the load-shedding ladder.
// It is advisory: the integrator reads a snapshot at the start of each tick and
// the monitor never sits on the synchronous tick path.
package monitor

import (
	"sync"
	"time"

	"github.com/yungbote/transition-engine/internal/engine"
	"github.com/yungbote/transition-engine/internal/platform/logger"
)

// Level is the load-shedding state.
type Level int

const (
	// Nominal: full scorer mode, default TTLs.
	Nominal Level = iota
	// DegradedL1: scorers switch to simplified mode.
	DegradedL1
	// DegradedL2: extended cache TTLs and a reduced tick frequency hint on
	// top of simplified scorers.
	DegradedL2
	// Critical: fallback-only; ticks return the last-known transition state
	// with time decay until conditions improve. Recoverable, never fatal.
	Critical
)

func (l Level) String() string {
	switch l {
	case Nominal:
		return "nominal"
	case DegradedL1:
		return "degraded_l1"
	case DegradedL2:
		return "degraded_l2"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Snapshot is the per-tick advisory configuration derived from the current
// level.
type Snapshot struct {
	Level        Level
	ScorerMode   engine.ComputeMode
	TTLScale     float64
	TickInterval time.Duration
	FallbackOnly bool
}

// Config bounds the state machine. Zero values take defaults.
type Config struct {
	Budget        time.Duration // outer per-tick budget
	WindowSize    int           // rolling window length in ticks
	EscalateRatio float64       // mean/budget above this escalates
	RecoverRatio  float64       // mean/budget below this allows de-escalation
	Cooldown      time.Duration // sustained recovery required before de-escalating
	BaseInterval  time.Duration // nominal tick interval hint
}

func (c Config) withDefaults() Config {
	if c.Budget <= 0 {
		c.Budget = 11 * time.Millisecond
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 32
	}
	if c.EscalateRatio <= 0 {
		c.EscalateRatio = 0.8
	}
	if c.RecoverRatio <= 0 {
		c.RecoverRatio = 0.5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 2 * time.Second
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = time.Second / 90
	}
	return c
}

// rolling is a fixed ring of the most recent tick durations.
type rolling struct {
	values []float64
	idx    int
	count  int
	total  float64
}

func newRolling(size int) *rolling {
	return &rolling{values: make([]float64, size)}
}

func (r *rolling) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx++
	if r.idx >= len(r.values) {
		r.idx = 0
	}
	if r.count < len(r.values) {
		r.count++
	}
}

func (r *rolling) mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.total / float64(r.count)
}

// Monitor accumulates PerformanceSamples and exposes the current load-shedding
// snapshot.
type Monitor struct {
	cfg Config
	log *logger.Logger

	mu           sync.Mutex
	level        Level
	window       *rolling
	recoverSince time.Time
	onChange     func(from, to Level)
}

// New creates a monitor at Nominal. onChange may be nil; when set it is called
// outside the monitor lock on every level transition.
func New(cfg Config, log *logger.Logger, onChange func(from, to Level)) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:      cfg,
		log:      log,
		window:   newRolling(cfg.WindowSize),
		onChange: onChange,
	}
}

// Observe feeds one tick's telemetry and advances the state machine.
func (m *Monitor) Observe(s engine.PerformanceSample) {
	m.mu.Lock()
	m.window.add(float64(s.TickDuration))
	from := m.level

	ratio := m.window.mean() / float64(m.cfg.Budget)
	now := s.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	switch {
	case m.window.count >= m.cfg.WindowSize && ratio > m.cfg.EscalateRatio:
		if m.level < Critical {
			m.level++
		}
		m.recoverSince = time.Time{}
		// A fresh window after each transition keeps one slow burst from
		// walking the ladder several levels at once.
		m.window = newRolling(m.cfg.WindowSize)
	case ratio < m.cfg.RecoverRatio && m.level > Nominal:
		if m.recoverSince.IsZero() {
			m.recoverSince = now
		} else if now.Sub(m.recoverSince) >= m.cfg.Cooldown {
			m.level--
			m.recoverSince = time.Time{}
			m.window = newRolling(m.cfg.WindowSize)
		}
	default:
		m.recoverSince = time.Time{}
	}

	to := m.level
	m.mu.Unlock()

	if from != to {
		if m.log != nil {
			m.log.Warn("load-shedding level changed", "from", from.String(), "to", to.String(), "mean_ratio", ratio)
		}
		if m.onChange != nil {
			m.onChange(from, to)
		}
	}
}

// Snapshot returns the advisory configuration for the next tick.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	level := m.level
	m.mu.Unlock()

	snap := Snapshot{
		Level:        level,
		ScorerMode:   engine.ModeFull,
		TTLScale:     1.0,
		TickInterval: m.cfg.BaseInterval,
	}
	switch level {
	case DegradedL1:
		snap.ScorerMode = engine.ModeSimplified
		snap.TTLScale = 0.5
	case DegradedL2:
		snap.ScorerMode = engine.ModeSimplified
		snap.TTLScale = 4.0
		snap.TickInterval = 2 * m.cfg.BaseInterval
	case Critical:
		snap.ScorerMode = engine.ModeSimplified
		snap.TTLScale = 4.0
		snap.TickInterval = 2 * m.cfg.BaseInterval
		snap.FallbackOnly = true
	}
	return snap
}

// Level reports the current state.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}
