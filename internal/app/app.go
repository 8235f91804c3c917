// Package app wires configuration, logging, observability, the computation
// cache, the performance monitor, the telemetry bus and the integration
// engine into one runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/transition-engine/internal/config"
	"github.com/yungbote/transition-engine/internal/engine/cache"
	"github.com/yungbote/transition-engine/internal/engine/integrator"
	"github.com/yungbote/transition-engine/internal/engine/monitor"
	"github.com/yungbote/transition-engine/internal/httpapi"
	"github.com/yungbote/transition-engine/internal/observability"
	"github.com/yungbote/transition-engine/internal/platform/envutil"
	"github.com/yungbote/transition-engine/internal/platform/logger"
	"github.com/yungbote/transition-engine/internal/telemetry/bus"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config
	Engine *integrator.Engine

	metrics   *observability.Metrics
	cache     *cache.Cache
	sink      *bus.Sink
	server    *http.Server
	stopSweep func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics := observability.NewMetrics()

	c := cache.New(cfg.Cache.BucketSize.Duration)
	stopSweep := c.StartSweeper(cfg.Cache.SweepInterval.Duration)

	mon := monitor.New(monitor.Config{
		Budget:        cfg.Engine.FrameBudget.Duration,
		WindowSize:    cfg.Monitor.WindowSize,
		EscalateRatio: cfg.Monitor.EscalateRatio,
		RecoverRatio:  cfg.Monitor.RecoverRatio,
		Cooldown:      cfg.Monitor.Cooldown.Duration,
	}, log, nil)

	var b bus.Bus = bus.NopBus{}
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		rb, err := bus.NewRedisBus(log)
		if err != nil {
			return nil, fmt.Errorf("init tick bus: %w", err)
		}
		b = rb
	}
	sink := bus.NewSink(log, b, envutil.Int("TE_EVENT_QUEUE_DEPTH", 256))

	eng := integrator.New(integrator.Config{
		ScorerDeadline:         cfg.Engine.ScorerDeadline.Duration,
		TickDeadline:           cfg.Engine.TickDeadline.Duration,
		FrameBudget:            cfg.Engine.FrameBudget.Duration,
		Beta:                   cfg.Engine.Beta,
		InteractionGain:        cfg.Engine.InteractionGain,
		MaxInteraction:         cfg.Engine.MaxInteraction,
		StateMin:               cfg.Engine.StateMin,
		StateMax:               cfg.Engine.StateMax,
		InitialState:           cfg.Engine.InitialState,
		SmoothingTau:           cfg.Engine.SmoothingTau.Duration,
		FallbackDecayPerSecond: cfg.Engine.FallbackDecayPerSecond,
		ScorerTTL:              cfg.Cache.ScorerTTL.Duration,
		IntegrationTTL:         cfg.Cache.IntegrationTTL.Duration,
		Seed:                   int64(envutil.Int("TE_SEED", 0)),
	}, integrator.Deps{
		Log:     log,
		Cache:   c,
		Monitor: mon,
		Metrics: metrics,
		Sink:    sink,
	})

	handler := httpapi.NewTickHandler(eng, log)
	router := httpapi.NewRouter(cfg, log, metrics, handler)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           http.MaxBytesHandler(router, cfg.HTTP.MaxRequestBytes),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}

	return &App{
		Log:       log,
		Config:    cfg,
		Engine:    eng,
		metrics:   metrics,
		cache:     c,
		sink:      sink,
		server:    srv,
		stopSweep: stopSweep,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	shutdownOtel := observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "transition-engine",
		Environment: a.Config.Env,
	})

	a.sink.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("listening", "addr", a.Config.HTTP.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
		a.stopSweep()
		_ = a.sink.Close()
		if shutdownOtel != nil {
			_ = shutdownOtel(shutdownCtx)
		}
		return nil
	})
	return g.Wait()
}
