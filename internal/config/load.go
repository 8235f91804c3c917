package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/transition-engine/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(u)
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5ms\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		Engine: EngineConfig{
			ScorerDeadline:         Duration{Duration: 3 * time.Millisecond},
			TickDeadline:           Duration{Duration: 5 * time.Millisecond},
			FrameBudget:            Duration{Duration: 11 * time.Millisecond},
			Beta:                   0.15,
			InteractionGain:        0.2,
			MaxInteraction:         0.05,
			StateMin:               0,
			StateMax:               1,
			InitialState:           0.5,
			SmoothingTau:           Duration{Duration: 250 * time.Millisecond},
			FallbackDecayPerSecond: 0.95,
		},
		Cache: CacheConfig{
			ScorerTTL:      Duration{Duration: 5 * time.Second},
			IntegrationTTL: Duration{Duration: 30 * time.Second},
			BucketSize:     Duration{Duration: 10 * time.Second},
			SweepInterval:  Duration{Duration: 30 * time.Second},
		},
		Monitor: MonitorConfig{
			WindowSize:    32,
			EscalateRatio: 0.8,
			RecoverRatio:  0.5,
			Cooldown:      Duration{Duration: 2 * time.Second},
		},
	}
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("TE_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.json")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		loaded := defaultConfig()
		if err := json.Unmarshal(b, loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	cfg.HTTP.Addr = envutil.String("TE_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Engine.Beta = envutil.Float("TE_BETA", cfg.Engine.Beta)
	cfg.Engine.ScorerDeadline.Duration = envutil.Duration("TE_SCORER_DEADLINE", cfg.Engine.ScorerDeadline.Duration)
	cfg.Engine.TickDeadline.Duration = envutil.Duration("TE_TICK_DEADLINE", cfg.Engine.TickDeadline.Duration)
	cfg.Cache.ScorerTTL.Duration = envutil.Duration("TE_SCORER_TTL", cfg.Cache.ScorerTTL.Duration)

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}
	if c.Engine.Beta < 0 || c.Engine.Beta > 0.3 {
		return fmt.Errorf("engine.beta %v outside [0, 0.3]", c.Engine.Beta)
	}
	if c.Engine.StateMax <= c.Engine.StateMin {
		return fmt.Errorf("engine state range [%v, %v] is empty", c.Engine.StateMin, c.Engine.StateMax)
	}
	if c.Engine.InitialState < c.Engine.StateMin || c.Engine.InitialState > c.Engine.StateMax {
		return fmt.Errorf("engine.initial_state %v outside state range", c.Engine.InitialState)
	}
	if c.Engine.ScorerDeadline.Duration <= 0 || c.Engine.TickDeadline.Duration <= 0 {
		return fmt.Errorf("engine deadlines must be positive")
	}
	if c.Engine.MaxInteraction < 0 || c.Engine.MaxInteraction > 0.05 {
		return fmt.Errorf("engine.max_interaction %v outside [0, 0.05]", c.Engine.MaxInteraction)
	}
	if c.Engine.FallbackDecayPerSecond <= 0 || c.Engine.FallbackDecayPerSecond > 1 {
		return fmt.Errorf("engine.fallback_decay_per_second %v outside (0, 1]", c.Engine.FallbackDecayPerSecond)
	}
	if c.Cache.ScorerTTL.Duration <= 0 || c.Cache.IntegrationTTL.Duration <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}
