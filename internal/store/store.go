package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ivlev/slidereel/internal/slide"
)

var (
	ErrTooManyImages   = errors.New("too many image slides")
	ErrEmptyContent    = errors.New("slide content is empty")
	ErrInvalidStyle    = errors.New("invalid text style")
	ErrIndexOutOfRange = slide.ErrIndexOutOfRange
)

// DefaultMaxImages is how many image slides a working sequence may hold.
const DefaultMaxImages = 5

// Store owns the working slide sequence being edited. Every mutation is
// atomic: it either applies fully or returns an error and changes nothing.
type Store struct {
	mu        sync.RWMutex
	slides    slide.Sequence
	maxImages int
	newID     func() string
	logger    *slog.Logger
}

func New(maxImages int, logger *slog.Logger) *Store {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		maxImages: maxImages,
		newID:     uuid.NewString,
		logger:    logger,
	}
}

// ImageInput is an image blob and the URI or file name it came from.
type ImageInput struct {
	Data []byte
	URI  string
}

// AddImage appends an image slide holding data as an opaque blob.
func (s *Store) AddImage(data []byte) (slide.Slide, error) {
	return s.AddImageNamed(data, "")
}

// AddImageNamed is AddImage with a URI or file name kept in Content.
func (s *Store) AddImageNamed(data []byte, uri string) (slide.Slide, error) {
	sl, err := newImage(ImageInput{Data: data, URI: uri})
	if err != nil {
		return slide.Slide{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slides.ImageCount() >= s.maxImages {
		return slide.Slide{}, fmt.Errorf("%w: limit is %d", ErrTooManyImages, s.maxImages)
	}
	added := s.appendLocked(sl)
	s.logger.Debug("image slide added", "id", added[0].ID, "bytes", len(data))
	return added[0], nil
}

// AddImages adds blobs without names. See AddNamedImages.
func (s *Store) AddImages(blobs ...[]byte) ([]slide.Slide, error) {
	in := make([]ImageInput, len(blobs))
	for i, b := range blobs {
		in[i] = ImageInput{Data: b}
	}
	return s.AddNamedImages(in...)
}

// AddNamedImages adds as many images as there are free image slots and drops
// the rest. It fails, adding nothing, when no slot is free or any blob is
// empty.
func (s *Store) AddNamedImages(images ...ImageInput) ([]slide.Slide, error) {
	batch := make([]slide.Slide, 0, len(images))
	for i, in := range images {
		sl, err := newImage(in)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		batch = append(batch, sl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	free := s.maxImages - s.slides.ImageCount()
	if free <= 0 {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyImages, s.maxImages)
	}
	if len(batch) > free {
		s.logger.Warn("image slots exhausted", "added", free, "dropped", len(batch)-free)
		batch = batch[:free]
	}
	return s.appendLocked(batch...), nil
}

// AddText appends a text slide. Zero style fields take the form defaults.
func (s *Store) AddText(content string, style slide.Style) (slide.Slide, error) {
	sl, err := newText(content, style)
	if err != nil {
		return slide.Slide{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.appendLocked(sl)
	s.logger.Debug("text slide added", "id", added[0].ID)
	return added[0], nil
}

func newImage(in ImageInput) (slide.Slide, error) {
	if len(in.Data) == 0 {
		return slide.Slide{}, ErrEmptyContent
	}
	return slide.Slide{
		Kind:     slide.KindImage,
		Content:  in.URI,
		Image:    bytes.Clone(in.Data),
		Duration: slide.DefaultDuration,
	}, nil
}

func newText(content string, style slide.Style) (slide.Slide, error) {
	if strings.TrimSpace(content) == "" {
		return slide.Slide{}, ErrEmptyContent
	}
	style = style.WithDefaults()
	if err := slide.ValidateStyle(style); err != nil {
		return slide.Slide{}, fmt.Errorf("%w: %w", ErrInvalidStyle, err)
	}
	return slide.Slide{
		Kind:     slide.KindText,
		Content:  content,
		Duration: slide.DefaultDuration,
		Style:    &style,
	}, nil
}

// appendLocked assigns ids and appends batch. The caller holds s.mu and has
// checked the image limit.
func (s *Store) appendLocked(batch ...slide.Slide) []slide.Slide {
	out := make([]slide.Slide, len(batch))
	for i := range batch {
		batch[i].ID = s.newID()
		out[i] = batch[i].Clone()
	}
	s.slides = append(s.slides, batch...)
	return out
}

// Remove drops the slide with id; unknown ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.slides.IndexOf(id)
	if i < 0 {
		return
	}
	s.slides = append(s.slides[:i:i], s.slides[i+1:]...)
}

// Reorder moves the slide at from to position to, keeping the relative order
// of every other slide.
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.slides)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d with %d slides", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}

	moved := s.slides[from]
	if from < to {
		copy(s.slides[from:to], s.slides[from+1:to+1])
	} else {
		copy(s.slides[to+1:from+1], s.slides[to:from])
	}
	s.slides[to] = moved
	return nil
}

// SetDuration stores the clamped duration for id; unknown ids are ignored.
func (s *Store) SetDuration(id string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.slides.IndexOf(id); i >= 0 {
		s.slides[i].Duration = slide.ClampDuration(seconds)
	}
}

// Get returns a copy of the slide with id.
func (s *Store) Get(id string) (slide.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.slides.IndexOf(id)
	if i < 0 {
		return slide.Slide{}, false
	}
	return s.slides[i].Clone(), true
}

// Snapshot is a point-in-time deep copy of the whole sequence.
func (s *Store) Snapshot() slide.Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slides.Clone()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slides)
}

// At gives preview sessions read access to the live sequence. The returned
// slide shares its image bytes with the store and must not be modified.
func (s *Store) At(i int) (slide.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slides.At(i)
}

func (s *Store) ImageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slides.ImageCount()
}

// FreeImageSlots is how many more image slides the store accepts right now.
func (s *Store) FreeImageSlots() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return max(0, s.maxImages-s.slides.ImageCount())
}

// Import appends every slide of seq under the same rules as the add methods,
// with durations clamped. Slides get fresh ids. Either the whole sequence is
// appended or, on the first invalid slide, nothing is.
func (s *Store) Import(seq slide.Sequence) (int, error) {
	batch := make([]slide.Slide, 0, len(seq))
	images := 0
	for i, in := range seq {
		var (
			sl  slide.Slide
			err error
		)
		switch in.Kind {
		case slide.KindImage:
			sl, err = newImage(ImageInput{Data: in.Image, URI: in.Content})
			images++
		case slide.KindText:
			var st slide.Style
			if in.Style != nil {
				st = *in.Style
			}
			sl, err = newText(in.Content, st)
		default:
			err = fmt.Errorf("unknown slide kind %q", in.Kind)
		}
		if err != nil {
			return 0, fmt.Errorf("import slide %d: %w", i+1, err)
		}
		if in.Duration != 0 {
			sl.Duration = slide.ClampDuration(in.Duration)
		}
		batch = append(batch, sl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if have := s.slides.ImageCount(); have+images > s.maxImages {
		return 0, fmt.Errorf("import: %w: %d images with %d already present, limit is %d",
			ErrTooManyImages, images, have, s.maxImages)
	}
	s.appendLocked(batch...)
	return len(batch), nil
}
