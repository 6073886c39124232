// Package export turns the working slide sequence into library videos.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidereel/internal/library"
	"github.com/ivlev/slidereel/internal/notify"
	"github.com/ivlev/slidereel/internal/slide"
	"github.com/ivlev/slidereel/internal/thumbnail"
)

var ErrExportInProgress = errors.New("an export is already running")

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	DefaultStep      = 10
	DefaultStepDelay = 500 * time.Millisecond
)

// ExportError is the terminal error of a failed job.
type ExportError struct {
	Reason string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export failed: %s: %v", e.Reason, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Snapshotter hands out a frozen copy of the sequence to export.
type Snapshotter interface {
	Snapshot() slide.Sequence
}

type Options struct {
	// Step is the progress increment in percent; StepDelay paces it.
	// A zero StepDelay reports progress without waiting.
	Step      int
	StepDelay time.Duration
	Retry     RetryConfig
	Clock     clockwork.Clock
	Notifier  notify.Notifier
	Logger    *slog.Logger

	// OnProgress sees every progress change of every job, in order.
	OnProgress func(job *Job, percent int)
}

// Pipeline runs at most one export job at a time.
type Pipeline struct {
	encoder    Encoder
	thumbs     thumbnail.Provider
	lib        *library.Library
	step       int
	stepDelay  time.Duration
	retry      retrier
	clock      clockwork.Clock
	notifier   notify.Notifier
	logger     *slog.Logger
	onProgress func(*Job, int)

	mu      sync.Mutex
	current *Job
}

func New(enc Encoder, thumbs thumbnail.Provider, lib *library.Library, opts Options) *Pipeline {
	if opts.Step <= 0 || opts.Step > 100 {
		opts.Step = DefaultStep
	}
	if opts.StepDelay < 0 {
		opts.StepDelay = 0
	}
	if opts.Retry == (RetryConfig{}) {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if thumbs == nil {
		thumbs = thumbnail.Static(thumbnail.Placeholder)
	}
	logger := opts.Logger.With("component", "export")
	return &Pipeline{
		encoder:    enc,
		thumbs:     thumbs,
		lib:        lib,
		step:       opts.Step,
		stepDelay:  opts.StepDelay,
		retry:      retrier{cfg: opts.Retry, clock: opts.Clock, logger: logger},
		clock:      opts.Clock,
		notifier:   opts.Notifier,
		logger:     logger,
		onProgress: opts.OnProgress,
	}
}

// Export snapshots src and starts a job in the background. Edits made to
// the source after Export returns do not affect the job. The job keeps
// running if ctx is cancelled; use Job.Wait to stop waiting for it.
func (p *Pipeline) Export(ctx context.Context, title string, src Snapshotter) (*Job, error) {
	seq := src.Snapshot()
	if len(seq) == 0 {
		return nil, slide.ErrEmptySequence
	}

	p.mu.Lock()
	if p.current != nil && !p.current.finished() {
		p.mu.Unlock()
		return nil, ErrExportInProgress
	}
	job := newJob(uuid.NewString(), strings.TrimSpace(title), len(seq))
	p.current = job
	p.mu.Unlock()

	p.logger.Info("export started", "job", job.ID, "title", job.Title, "slides", len(seq))
	go p.run(context.WithoutCancel(ctx), job, seq)
	return job, nil
}

// Status is the state of the latest job, or StatusNotStarted before the first.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	job := p.current
	p.mu.Unlock()

	if job == nil {
		return StatusNotStarted
	}
	return job.Status()
}

// Current returns the latest job, if any.
func (p *Pipeline) Current() (*Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != nil
}

// Wait blocks until the latest job finishes or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	job, ok := p.Current()
	if !ok {
		return nil
	}
	return job.Wait(ctx)
}

func (p *Pipeline) run(ctx context.Context, job *Job, seq slide.Sequence) {
	start := p.clock.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for pct := p.step; pct < 100; pct += p.step {
			if err := p.sleep(gctx); err != nil {
				return err
			}
			p.progress(job, pct)
		}
		return nil
	})

	g.Go(func() error {
		return p.retry.do(gctx, "encode", func() error {
			return p.encoder.Encode(gctx, seq)
		})
	})

	if err := g.Wait(); err != nil {
		p.fail(job, &ExportError{Reason: "encode slides", Err: err})
		return
	}
	p.progress(job, 100)

	thumb, err := p.thumbs.Thumbnail(seq)
	if err != nil {
		p.logger.Warn("thumbnail failed, using placeholder", "job", job.ID, "error", err)
		thumb = thumbnail.Placeholder
	}

	video := p.lib.AddNext(func(n int) library.Video {
		title := job.Title
		if title == "" {
			title = defaultTitle(n)
		}
		return library.Video{
			ID:        uuid.NewString(),
			Title:     title,
			CreatedAt: p.clock.Now(),
			Thumbnail: thumb,
			Slides:    seq,
		}
	})

	job.complete(video)
	defer job.finish()

	p.logger.Info("export finished",
		"job", job.ID,
		"video", video.ID,
		"title", video.Title,
		"elapsed", p.clock.Since(start).Round(time.Millisecond).String(),
	)
	p.notifier.ExportCompleted(video.Title)
}

func (p *Pipeline) fail(job *Job, err *ExportError) {
	job.fail(err)
	defer job.finish()

	// An untitled job is reported under the name it would have been given.
	title := job.Title
	if title == "" {
		title = defaultTitle(p.lib.Len())
	}
	p.logger.Error("export failed", "job", job.ID, "title", title, "reason", err.Reason, "error", err.Err)
	p.notifier.ExportFailed(title, err)
}

// defaultTitle names a video when n videos are already in the library.
func defaultTitle(n int) string {
	return fmt.Sprintf("Video %d", n+1)
}

func (p *Pipeline) progress(job *Job, pct int) {
	if !job.setProgress(pct) {
		return
	}
	if p.onProgress != nil {
		p.onProgress(job, pct)
	}
}

func (p *Pipeline) sleep(ctx context.Context) error {
	if p.stepDelay == 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(p.stepDelay):
		return nil
	}
}

// Job is one export run.
type Job struct {
	ID     string
	Title  string
	Slides int

	mu       sync.Mutex
	status   Status
	progress int
	err      *ExportError
	video    library.Video
	done     chan struct{}
}

func newJob(id, title string, slides int) *Job {
	return &Job{
		ID:     id,
		Title:  title,
		Slides: slides,
		status: StatusRunning,
		done:   make(chan struct{}),
	}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Progress is in percent. It only grows and reaches 100 only on success.
func (j *Job) Progress() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Reason is empty unless the job failed.
func (j *Job) Reason() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err == nil {
		return ""
	}
	return j.err.Reason
}

// Err is the *ExportError of a failed job.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err == nil {
		return nil
	}
	return j.err
}

// Video is the library record a completed job produced.
func (j *Job) Video() (library.Video, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusCompleted {
		return library.Video{}, false
	}
	return j.video.Clone(), true
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its error, or ctx's error
// if ctx is done first.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status != StatusRunning
}

func (j *Job) setProgress(pct int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pct <= j.progress || j.status != StatusRunning {
		return false
	}
	j.progress = pct
	return true
}

func (j *Job) complete(v library.Video) {
	j.mu.Lock()
	j.status = StatusCompleted
	j.video = v
	j.mu.Unlock()
}

func (j *Job) fail(err *ExportError) {
	j.mu.Lock()
	j.status = StatusFailed
	j.err = err
	j.mu.Unlock()
}

// finish releases waiters once the job's notification went out.
func (j *Job) finish() {
	close(j.done)
}
