package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ivlev/slidereel/internal/clock"
	"github.com/ivlev/slidereel/internal/config"
	"github.com/ivlev/slidereel/internal/export"
	"github.com/ivlev/slidereel/internal/library"
	"github.com/ivlev/slidereel/internal/notify"
	"github.com/ivlev/slidereel/internal/playback"
	"github.com/ivlev/slidereel/internal/slide"
	"github.com/ivlev/slidereel/internal/source"
	"github.com/ivlev/slidereel/internal/store"
)

// Session is one run of the command line tool: build the sequence, preview
// it, export it, then optionally replay the result.
type Session struct {
	cfg      *config.Config
	store    *store.Store
	lib      *library.Library
	pipeline *export.Pipeline
	clock    clock.Clock
	notifier notify.Notifier
	logger   *slog.Logger
}

func newSession(
	cfg *config.Config,
	st *store.Store,
	lib *library.Library,
	p *export.Pipeline,
	c clock.Clock,
	n notify.Notifier,
	log *slog.Logger,
) *Session {
	return &Session{
		cfg:      cfg,
		store:    st,
		lib:      lib,
		pipeline: p,
		clock:    c,
		notifier: n,
		logger:   log.With("component", "session"),
	}
}

func (s *Session) Run(ctx context.Context) error {
	if err := s.load(); err != nil {
		return err
	}
	if s.store.Len() == 0 {
		return fmt.Errorf("nothing to play: %w (use --project or --input)", slide.ErrEmptySequence)
	}
	s.logger.Info("sequence ready",
		"slides", s.store.Len(),
		"images", s.store.ImageCount(),
		"duration", s.store.Snapshot().TotalDuration().String(),
	)

	if s.cfg.SavePath != "" {
		p := &slide.Project{Title: s.cfg.Title, Slides: s.store.Snapshot()}
		if err := slide.WriteSequence(s.cfg.SavePath, p); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		s.logger.Info("project saved", "path", s.cfg.SavePath)
	}

	if s.cfg.Preview {
		err := s.play(ctx, "preview", func(opts playback.Options) (*playback.Controller, error) {
			return playback.New(s.store, s.clock, opts), nil
		})
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
	}

	job, err := s.pipeline.Export(ctx, s.cfg.Title, s.store)
	if err != nil {
		return err
	}
	if err := job.Wait(ctx); err != nil {
		return err
	}

	for _, v := range s.lib.List() {
		s.logger.Info("library",
			"id", v.ID,
			"title", v.Title,
			"created_at", v.CreatedAt.Format("2006-01-02 15:04:05"),
			"slides", len(v.Slides),
		)
	}

	if s.cfg.Replay {
		v, ok := job.Video()
		if !ok {
			return errors.New("export produced no video")
		}
		err := s.play(ctx, "replay", func(opts playback.Options) (*playback.Controller, error) {
			return s.lib.Replay(v.ID, s.clock, opts)
		})
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}
	return nil
}

// load fills the store from the project file and the input source.
func (s *Session) load() error {
	if s.cfg.ProjectPath != "" {
		p, err := slide.ReadSequence(s.cfg.ProjectPath)
		if err != nil {
			return fmt.Errorf("read project: %w", err)
		}
		n, err := s.store.Import(p.Slides)
		if err != nil {
			return err
		}
		if s.cfg.Title == "" {
			s.cfg.Title = p.Title
		}
		s.logger.Info("project imported", "path", s.cfg.ProjectPath, "slides", n)
	}

	if s.cfg.InputPath != "" {
		src, err := source.Open(s.cfg.InputPath, s.cfg.DPI)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer src.Close()

		// Pages past the free slots would be dropped, so they are never read.
		n := min(src.PageCount(), s.store.FreeImageSlots())
		if dropped := src.PageCount() - n; dropped > 0 {
			s.logger.Warn("image slots exhausted", "pages", src.PageCount(), "dropped", dropped)
		}
		if n == 0 {
			return nil
		}

		images := make([]store.ImageInput, 0, n)
		for i := 0; i < n; i++ {
			data, err := src.Page(i)
			if err != nil {
				return fmt.Errorf("read %s: %w", src.Name(i), err)
			}
			images = append(images, store.ImageInput{Data: data, URI: src.Name(i)})
		}
		added, err := s.store.AddNamedImages(images...)
		if err != nil {
			return fmt.Errorf("import %s: %w", s.cfg.InputPath, err)
		}
		s.logger.Info("images imported", "path", s.cfg.InputPath, "slides", len(added))
	}
	return nil
}

// play opens a session, starts it and blocks until it stops or ctx is done.
func (s *Session) play(ctx context.Context, name string, open func(playback.Options) (*playback.Controller, error)) error {
	log := s.logger.With("session", name)
	stopped := make(chan struct{})

	var (
		mu   sync.Mutex
		last = -1
		once sync.Once
	)
	opts := playback.Options{
		FadeWindow: s.cfg.FadeWindow,
		Notifier:   s.notifier,
		Logger:     log,
		OnChange: func(st playback.State) {
			if st.Phase == playback.PhaseStopped {
				once.Do(func() { close(stopped) })
				return
			}

			mu.Lock()
			changed := st.Index != last
			last = st.Index
			mu.Unlock()

			if changed && st.Visible() {
				log.Info("showing slide",
					"index", st.Index+1,
					"of", st.Len,
					"progress", fmt.Sprintf("%.0f%%", st.Progress*100),
				)
			}
		},
	}

	c, err := open(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Start(); err != nil {
		return err
	}

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
