// Package library keeps the videos produced by the export pipeline.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/slidereel/internal/clock"
	"github.com/ivlev/slidereel/internal/playback"
	"github.com/ivlev/slidereel/internal/slide"
)

var ErrNotFound = errors.New("video not found")

// Video is a finished export. Slides is a frozen copy of the sequence at
// export time and is never shared with the store.
type Video struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Thumbnail string
	Slides    slide.Sequence
}

func (v Video) Clone() Video {
	v.Slides = v.Slides.Clone()
	return v
}

// Library is an append-ordered, in-memory collection of videos.
type Library struct {
	mu     sync.RWMutex
	videos []Video
	logger *slog.Logger
}

func New(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{logger: logger.With("component", "library")}
}

// Add appends a video. The library keeps its own copy.
func (l *Library) Add(v Video) {
	l.mu.Lock()
	l.videos = append(l.videos, v.Clone())
	n := len(l.videos)
	l.mu.Unlock()

	l.logger.Debug("video added", "id", v.ID, "title", v.Title, "videos", n)
}

// AddNext builds and appends a video in one step. build receives the
// number of videos already stored, so titles like "Video N" stay unique
// under concurrent exports.
func (l *Library) AddNext(build func(n int) Video) Video {
	l.mu.Lock()
	v := build(len(l.videos)).Clone()
	l.videos = append(l.videos, v)
	n := len(l.videos)
	l.mu.Unlock()

	l.logger.Debug("video added", "id", v.ID, "title", v.Title, "videos", n)
	return v.Clone()
}

// Remove deletes the video with the given id. Unknown ids are ignored.
func (l *Library) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, v := range l.videos {
		if v.ID == id {
			l.videos = append(l.videos[:i], l.videos[i+1:]...)
			return
		}
	}
}

// List returns copies of all videos in creation order.
func (l *Library) List() []Video {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Video, len(l.videos))
	for i, v := range l.videos {
		out[i] = v.Clone()
	}
	return out
}

func (l *Library) Get(id string) (Video, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, v := range l.videos {
		if v.ID == id {
			return v.Clone(), nil
		}
	}
	return Video{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.videos)
}

// Replay opens a playback session over the video's frozen slides. The
// session is not started.
func (l *Library) Replay(id string, clk clock.Clock, opts playback.Options) (*playback.Controller, error) {
	v, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	return playback.New(v.Slides, clk, opts), nil
}
