package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`
	AllowOrigins      []string `json:"allow_origins,omitempty"`
}

type EngineConfig struct {
	// ScorerDeadline is each scorer's soft deadline inside a tick.
	ScorerDeadline Duration `json:"scorer_deadline"`

	// TickDeadline bounds the whole weighted-combination step. It sits inside
	// FrameBudget so the caller's 90 Hz loop keeps headroom for everything
	// else in the frame.
	TickDeadline Duration `json:"tick_deadline"`
	FrameBudget  Duration `json:"frame_budget"`

	// Beta scales the bounded Gaussian stochastic term. Valid range [0, 0.3].
	Beta float64 `json:"beta"`

	// InteractionGain scales the pairwise interaction term before it is
	// clamped to MaxInteraction.
	InteractionGain float64 `json:"interaction_gain"`
	MaxInteraction  float64 `json:"max_interaction"`

	// StateMin/StateMax bound the transition state. InitialState seeds a new
	// session.
	StateMin     float64 `json:"state_min"`
	StateMax     float64 `json:"state_max"`
	InitialState float64 `json:"initial_state"`

	// SmoothingTau is the time constant for blending the integrated target
	// into the previous state.
	SmoothingTau Duration `json:"smoothing_tau"`

	// FallbackDecayPerSecond pulls a reused stale result toward the range
	// midpoint, applied once per elapsed second.
	FallbackDecayPerSecond float64 `json:"fallback_decay_per_second"`
}

type CacheConfig struct {
	ScorerTTL      Duration `json:"scorer_ttl"`
	IntegrationTTL Duration `json:"integration_ttl"`
	BucketSize     Duration `json:"bucket_size"`
	SweepInterval  Duration `json:"sweep_interval"`
}

type MonitorConfig struct {
	WindowSize    int      `json:"window_size"`
	EscalateRatio float64  `json:"escalate_ratio"`
	RecoverRatio  float64  `json:"recover_ratio"`
	Cooldown      Duration `json:"cooldown"`
}

type Config struct {
	Env     string        `json:"env"`
	HTTP    HTTPConfig    `json:"http"`
	Engine  EngineConfig  `json:"engine"`
	Cache   CacheConfig   `json:"cache"`
	Monitor MonitorConfig `json:"monitor"`
}
