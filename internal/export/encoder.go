package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/slidereel/internal/render"
	"github.com/ivlev/slidereel/internal/slide"
)

//go:generate go run go.uber.org/mock/mockgen -source=encoder.go -destination=mocks/mock.go -package=mocks
type Encoder interface {
	// Encode turns a frozen sequence into video output. Errors wrapped with
	// backoff.Permanent are not retried.
	Encode(ctx context.Context, seq slide.Sequence) error
}

// FrameSink receives rendered keyframes. Implementations must be safe for
// concurrent use; frames arrive in any order.
type FrameSink interface {
	WriteFrame(index int, frame *image.RGBA) error
}

// FrameEncoder renders one keyframe per slide on a bounded worker pool.
// Frames are released back to the renderer after the sink returns.
type FrameEncoder struct {
	renderer *render.Renderer
	workers  int
	sink     FrameSink
	logger   *slog.Logger
}

func NewFrameEncoder(r *render.Renderer, workers int, sink FrameSink, logger *slog.Logger) *FrameEncoder {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameEncoder{
		renderer: r,
		workers:  workers,
		sink:     sink,
		logger:   logger.With("component", "encoder"),
	}
}

func (e *FrameEncoder) Encode(ctx context.Context, seq slide.Sequence) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, s := range seq {
		i, s := i, s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := e.renderer.Render(s, 1)
			if err != nil {
				// Re-rendering the same bytes fails the same way.
				return backoff.Permanent(fmt.Errorf("render slide %d (%s): %w", i, s.ID, err))
			}
			defer e.renderer.Release(frame)

			if e.sink == nil {
				return nil
			}
			if err := e.sink.WriteFrame(i, frame); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.Debug("slides encoded", "frames", len(seq), "workers", e.workers)
	return nil
}

// RawSink writes frames to w as raw RGBA in slide order, holding back frames
// that arrive early.
type RawSink struct {
	w io.Writer

	mu      sync.Mutex
	next    int
	pending map[int][]byte
}

func NewRawSink(w io.Writer) *RawSink {
	return &RawSink{w: w, pending: make(map[int][]byte)}
}

func (s *RawSink) WriteFrame(index int, frame *image.RGBA) error {
	// The frame goes back to the pool once we return, so keep a copy.
	var buf bytes.Buffer
	if err := render.WriteRaw(&buf, frame); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[index] = buf.Bytes()
	for {
		b, ok := s.pending[s.next]
		if !ok {
			return nil
		}
		delete(s.pending, s.next)
		if _, err := s.w.Write(b); err != nil {
			return err
		}
		s.next++
	}
}

// Frames reports how many frames reached the writer.
func (s *RawSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
