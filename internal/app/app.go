// Package app wires the slidereel components together with fx.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/ivlev/slidereel/internal/clock"
	"github.com/ivlev/slidereel/internal/config"
	"github.com/ivlev/slidereel/internal/export"
	"github.com/ivlev/slidereel/internal/library"
	"github.com/ivlev/slidereel/internal/logger"
	"github.com/ivlev/slidereel/internal/notify"
	"github.com/ivlev/slidereel/internal/render"
	"github.com/ivlev/slidereel/internal/store"
	"github.com/ivlev/slidereel/internal/system"
	"github.com/ivlev/slidereel/internal/thumbnail"
)

// Components provides every service without running anything. It expects a
// *config.Config in the graph.
var Components = fx.Options(
	fx.Provide(
		newLogger,
		newStore,
		newLibrary,
		newRenderer,
		newPipeline,
		newSession,
		clockwork.NewRealClock,
	),
	fx.Provide(
		fx.Annotate(
			notify.NewLogNotifier,
			fx.As(new(notify.Notifier)),
		),
		fx.Annotate(
			newThumbnails,
			fx.As(new(thumbnail.Provider)),
		),
		fx.Annotate(
			newEncoder,
			fx.As(new(export.Encoder)),
		),
		fx.Annotate(
			newTicker,
			fx.As(new(clock.Clock)),
		),
	),
)

// Module runs one CLI session and shuts the app down when it ends.
var Module = fx.Options(
	Components,
	fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: log.With("component", "fx")}
	}),
	fx.Invoke(run),
)

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*slog.Logger, error) {
	log, closer, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   cfg.LogPath,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(closer))
	return log, nil
}

func newStore(cfg *config.Config, log *slog.Logger) *store.Store {
	return store.New(cfg.MaxImages, log)
}

func newLibrary(log *slog.Logger) *library.Library {
	return library.New(log)
}

func newRenderer(cfg *config.Config) *render.Renderer {
	return render.New(cfg.Width, cfg.Height)
}

func newThumbnails(cfg *config.Config, log *slog.Logger) *thumbnail.Generator {
	return thumbnail.NewGenerator(cfg.ThumbWidth, cfg.ThumbHeight, log)
}

func newTicker(cfg *config.Config, c clockwork.Clock) *clock.Ticker {
	return clock.NewTicker(c, cfg.TickPeriod)
}

func newEncoder(lc fx.Lifecycle, cfg *config.Config, r *render.Renderer, log *slog.Logger) (*export.FrameEncoder, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = system.RenderWorkers(r.FrameBytes())
	}

	var sink export.FrameSink
	if cfg.FramesOutput != "" {
		f, err := os.Create(cfg.FramesOutput)
		if err != nil {
			return nil, fmt.Errorf("create frames output: %w", err)
		}
		lc.Append(fx.StopHook(f.Close))
		sink = export.NewRawSink(f)
	}

	log.Debug("encoder ready", "workers", workers, "width", cfg.Width, "height", cfg.Height)
	return export.NewFrameEncoder(r, workers, sink, log), nil
}

func newPipeline(
	cfg *config.Config,
	enc export.Encoder,
	thumbs thumbnail.Provider,
	lib *library.Library,
	n notify.Notifier,
	c clockwork.Clock,
	log *slog.Logger,
) *export.Pipeline {
	retry := export.DefaultRetryConfig()
	retry.MaxRetries = uint64(cfg.ExportRetries)

	return export.New(enc, thumbs, lib, export.Options{
		Step:      cfg.ExportStep,
		StepDelay: cfg.ExportStepDelay,
		Retry:     retry,
		Clock:     c,
		Notifier:  n,
		Logger:    log,
		OnProgress: func(job *export.Job, pct int) {
			log.Info("exporting", "job", job.ID, "progress", pct)
		},
	})
}

func run(lc fx.Lifecycle, sd fx.Shutdowner, s *Session, log *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				code := 0
				if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("session failed", "error", err)
					code = 1
				}
				if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
					log.Error("shutdown failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
