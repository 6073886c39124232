package slide

import (
	"bytes"
	"errors"
	"math"
	"time"
)

var (
	// ErrEmptySequence is returned by operations that need at least one slide.
	ErrEmptySequence   = errors.New("sequence is empty")
	ErrIndexOutOfRange = errors.New("index out of range")
)

const (
	MinDuration     = 1.0
	MaxDuration     = 10.0
	DurationStep    = 0.5
	DefaultDuration = 3.0
)

// Kind distinguishes image slides from text slides
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Slide is one content unit of a timeline
type Slide struct {
	ID       string  `yaml:"id"`
	Kind     Kind    `yaml:"kind"`
	Content  string  `yaml:"content,omitempty"` // Text: literal string, Image: optional URI
	Image    []byte  `yaml:"image,omitempty"`   // Image: raw bytes, never decoded here
	Duration float64 `yaml:"duration"`          // Seconds on screen
	Style    *Style  `yaml:"style,omitempty"`   // Text only
}

// Clone returns a copy that shares no memory with s.
func (s Slide) Clone() Slide {
	c := s
	if s.Image != nil {
		c.Image = bytes.Clone(s.Image)
	}
	if s.Style != nil {
		st := *s.Style
		c.Style = &st
	}
	return c
}

// Length converts the slide duration to a time.Duration.
func (s Slide) Length() time.Duration {
	return time.Duration(s.Duration * float64(time.Second))
}

// ClampDuration rounds seconds to the nearest half second inside
// [MinDuration, MaxDuration].
func ClampDuration(seconds float64) float64 {
	if math.IsNaN(seconds) {
		return MinDuration
	}
	d := math.Round(seconds/DurationStep) * DurationStep
	if d < MinDuration {
		d = MinDuration
	}
	if d > MaxDuration {
		d = MaxDuration
	}
	return d
}

// Sequence is an ordered list of slides; order is playback and export order.
type Sequence []Slide

// Clone deep-copies the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, sl := range s {
		out[i] = sl.Clone()
	}
	return out
}

// Snapshot lets a plain sequence be exported like a live store.
func (s Sequence) Snapshot() Sequence {
	return s.Clone()
}

func (s Sequence) Len() int {
	return len(s)
}

func (s Sequence) At(i int) (Slide, bool) {
	if i < 0 || i >= len(s) {
		return Slide{}, false
	}
	return s[i], true
}

// ImageCount counts image slides.
func (s Sequence) ImageCount() int {
	n := 0
	for _, sl := range s {
		if sl.Kind == KindImage {
			n++
		}
	}
	return n
}

// IndexOf returns the position of id or -1.
func (s Sequence) IndexOf(id string) int {
	for i, sl := range s {
		if sl.ID == id {
			return i
		}
	}
	return -1
}

// IDs lists slide ids in order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s))
	for i, sl := range s {
		ids[i] = sl.ID
	}
	return ids
}

// TotalDuration sums slide durations.
func (s Sequence) TotalDuration() time.Duration {
	var total time.Duration
	for _, sl := range s {
		total += sl.Length()
	}
	return total
}
