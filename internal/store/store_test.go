package store

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/slidereel/internal/slide"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(DefaultMaxImages, nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	return s
}

func TestAddImageLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < DefaultMaxImages; i++ {
		sl, err := s.AddImage([]byte{byte(i)})
		require.NoError(t, err)
		assert.Equal(t, slide.KindImage, sl.Kind)
		assert.Equal(t, slide.DefaultDuration, sl.Duration)
	}

	_, err := s.AddImage([]byte{0xff})
	assert.ErrorIs(t, err, ErrTooManyImages)
	assert.Equal(t, DefaultMaxImages, s.ImageCount())
	assert.Equal(t, DefaultMaxImages, s.Len())

	// text slides are unbounded
	for i := 0; i < 20; i++ {
		_, err := s.AddText(fmt.Sprintf("line %d", i), slide.Style{})
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultMaxImages+20, s.Len())
}

func TestAddImageCopiesData(t *testing.T) {
	s := newTestStore(t)
	data := []byte{1, 2, 3}
	sl, err := s.AddImage(data)
	require.NoError(t, err)

	data[0] = 42
	got, ok := s.Get(sl.ID)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got.Image)
}

func TestAddImagesFillsFreeSlots(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddImage([]byte{1})
	require.NoError(t, err)

	added, err := s.AddImages([]byte{2}, []byte{3}, []byte{4}, []byte{5}, []byte{6}, []byte{7})
	require.NoError(t, err)
	assert.Len(t, added, 4)
	assert.Equal(t, 5, s.ImageCount())

	_, err = s.AddImages([]byte{8})
	assert.ErrorIs(t, err, ErrTooManyImages)
}

func TestAddNamedImages(t *testing.T) {
	s := New(2, nil)

	added, err := s.AddNamedImages(
		ImageInput{Data: []byte{1}, URI: "a.png"},
		ImageInput{Data: []byte{2}, URI: "b.png"},
		ImageInput{Data: []byte{3}, URI: "c.png"},
	)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "a.png", added[0].Content)
	assert.Equal(t, "b.png", added[1].Content)
	assert.Zero(t, s.FreeImageSlots())
}

func TestAddNamedImagesRejectsWholeBatch(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddNamedImages(
		ImageInput{Data: []byte{1}, URI: "a.png"},
		ImageInput{URI: "empty.png"},
	)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, s.Len())
	assert.Equal(t, DefaultMaxImages, s.FreeImageSlots())
}

func TestAddTextRejectsBlank(t *testing.T) {
	s := newTestStore(t)
	for _, in := range []string{"", "   ", "\n\t "} {
		_, err := s.AddText(in, slide.DefaultStyle())
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
	_, err := s.AddImage(nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, s.Len())
}

func TestAddTextStyle(t *testing.T) {
	s := newTestStore(t)

	sl, err := s.AddText("Hi", slide.Style{FontSize: 40})
	require.NoError(t, err)
	require.NotNil(t, sl.Style)
	assert.Equal(t, 40, sl.Style.FontSize)
	assert.Equal(t, slide.DefaultColor, sl.Style.Color)
	assert.Equal(t, slide.FontArial, sl.Style.FontFamily)

	_, err = s.AddText("Hi", slide.Style{FontSize: 100})
	assert.ErrorIs(t, err, ErrInvalidStyle)
	var serr *slide.StyleError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, s.Len())
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.AddText("a", slide.Style{})
	b, _ := s.AddText("b", slide.Style{})

	s.Remove("missing")
	assert.Equal(t, 2, s.Len())

	s.Remove(a.ID)
	assert.Equal(t, []string{b.ID}, s.Snapshot().IDs())

	// removed ids are not handed out again
	c, _ := s.AddText("c", slide.Style{})
	assert.NotEqual(t, a.ID, c.ID)
}

func TestReorder(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 0, []string{"s1", "s2", "s3", "s4"}},
		{0, 2, []string{"s2", "s3", "s1", "s4"}},
		{3, 1, []string{"s1", "s4", "s2", "s3"}},
		{0, 3, []string{"s2", "s3", "s4", "s1"}},
		{3, 0, []string{"s4", "s1", "s2", "s3"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d", tt.from, tt.to), func(t *testing.T) {
			s := newTestStore(t)
			for i := 0; i < 4; i++ {
				_, err := s.AddText(fmt.Sprintf("t%d", i), slide.Style{})
				require.NoError(t, err)
			}
			require.NoError(t, s.Reorder(tt.from, tt.to))
			assert.Equal(t, tt.want, s.Snapshot().IDs())
		})
	}
}

func TestReorderOutOfRange(t *testing.T) {
	s := newTestStore(t)
	_, _ = s.AddText("a", slide.Style{})
	_, _ = s.AddText("b", slide.Style{})
	before := s.Snapshot().IDs()

	for _, p := range [][2]int{{-1, 0}, {0, 2}, {2, 0}, {0, -1}} {
		err := s.Reorder(p[0], p[1])
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}
	assert.Equal(t, before, s.Snapshot().IDs())

	empty := newTestStore(t)
	assert.ErrorIs(t, empty.Reorder(0, 0), ErrIndexOutOfRange)
}

func TestReorderIsPermutation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := newTestStore(t)
	for i := 0; i < 9; i++ {
		_, _ = s.AddText(fmt.Sprintf("t%d", i), slide.Style{})
	}

	for round := 0; round < 200; round++ {
		before := s.Snapshot().IDs()
		from, to := r.Intn(len(before)), r.Intn(len(before))
		require.NoError(t, s.Reorder(from, to))
		after := s.Snapshot().IDs()

		assert.ElementsMatch(t, before, after)
		assert.Equal(t, before[from], after[to])

		// removing the moved id from both leaves identical orderings
		rest := func(ids []string, drop string) []string {
			return slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == drop })
		}
		assert.Equal(t, rest(before, before[from]), rest(after, before[from]))
	}
}

func TestSetDuration(t *testing.T) {
	s := newTestStore(t)
	sl, _ := s.AddText("a", slide.Style{})

	for _, in := range []float64{0.2, 1.3, 4.76, 11, -3} {
		s.SetDuration(sl.ID, in)
		got, _ := s.Get(sl.ID)
		assert.Equal(t, slide.ClampDuration(in), got.Duration)

		s.SetDuration(sl.ID, got.Duration)
		again, _ := s.Get(sl.ID)
		assert.Equal(t, got.Duration, again.Duration)
	}

	s.SetDuration("missing", 5)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestStore(t)
	img, _ := s.AddImage([]byte{1, 2})
	txt, _ := s.AddText("Hi", slide.Style{})

	snap := s.Snapshot()
	s.SetDuration(img.ID, 9)
	s.Remove(txt.ID)
	_ = s.Reorder(0, 0)

	assert.Len(t, snap, 2)
	assert.Equal(t, slide.DefaultDuration, snap[0].Duration)

	snap[0].Image[0] = 7
	got, _ := s.Get(img.ID)
	assert.Equal(t, byte(1), got.Image[0])
}

func TestImport(t *testing.T) {
	s := newTestStore(t)
	st := slide.Style{FontSize: 30, Color: "#00FF00", FontFamily: slide.FontCourier}
	n, err := s.Import(slide.Sequence{
		{Kind: slide.KindImage, Image: []byte{1}, Content: "a.png", Duration: 2.2},
		{Kind: slide.KindText, Content: "Hi", Style: &st},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := s.Snapshot()
	assert.Equal(t, 2.0, snap[0].Duration)
	assert.Equal(t, "a.png", snap[0].Content)
	assert.Equal(t, slide.DefaultDuration, snap[1].Duration)
	assert.Equal(t, st, *snap[1].Style)

	_, err = s.Import(slide.Sequence{{Kind: "video"}})
	assert.Error(t, err)
}

func TestImportFailureChangesNothing(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 4; i++ {
		_, err := s.AddImage([]byte{byte(i)})
		require.NoError(t, err)
	}
	before := s.Snapshot()

	tests := []struct {
		name string
		seq  slide.Sequence
		want error
	}{
		{"blank text", slide.Sequence{
			{Kind: slide.KindText, Content: "ok"},
			{Kind: slide.KindText, Content: "   "},
		}, ErrEmptyContent},
		{"bad style", slide.Sequence{
			{Kind: slide.KindText, Content: "ok"},
			{Kind: slide.KindText, Content: "big", Style: &slide.Style{FontSize: 200}},
		}, ErrInvalidStyle},
		{"empty image", slide.Sequence{
			{Kind: slide.KindImage, Image: []byte{9}},
			{Kind: slide.KindImage},
		}, ErrEmptyContent},
		{"image limit across batch", slide.Sequence{
			{Kind: slide.KindText, Content: "ok"},
			{Kind: slide.KindImage, Image: []byte{9}},
			{Kind: slide.KindImage, Image: []byte{10}},
		}, ErrTooManyImages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := s.Import(tt.seq)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, n)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestImportIsNeverSeenHalfDone(t *testing.T) {
	s := New(DefaultMaxImages, nil)
	const batch = 20
	seq := make(slide.Sequence, batch)
	for i := range seq {
		seq[i] = slide.Slide{Kind: slide.KindText, Content: fmt.Sprintf("line %d", i)}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := s.Import(seq)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 200; i++ {
		n := len(s.Snapshot())
		require.Zero(t, n%batch, "snapshot saw %d slides", n)
	}
	wg.Wait()
	assert.Equal(t, 50*batch, s.Len())
}
