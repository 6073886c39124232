package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/slidereel/internal/slide"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	dst := image.Rect(0, 0, 160, 90)
	tests := []struct {
		name string
		src  image.Rectangle
		want image.Rectangle
	}{
		{"same aspect", image.Rect(0, 0, 320, 180), image.Rect(0, 0, 160, 90)},
		{"portrait", image.Rect(0, 0, 90, 180), image.Rect(57, 0, 102, 90)},
		{"wide", image.Rect(0, 0, 320, 90), image.Rect(0, 22, 160, 67)},
		{"empty", image.Rectangle{}, image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fit(tt.src, dst))
		})
	}
}

func TestRenderImageLetterboxed(t *testing.T) {
	r := New(160, 90)
	s := slide.Slide{Kind: slide.KindImage, Image: pngBytes(t, 90, 180, color.RGBA{R: 255, A: 255}), Duration: 3}

	frame, err := r.Render(s, 1)
	require.NoError(t, err)
	defer r.Release(frame)

	assert.Equal(t, image.Rect(0, 0, 160, 90), frame.Bounds())
	assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(5, 45), "left bar stays black")
	got := frame.RGBAAt(80, 45)
	assert.Greater(t, got.R, uint8(200))
	assert.Less(t, got.G, uint8(20))
}

func TestRenderOpacity(t *testing.T) {
	r := New(32, 18)
	s := slide.Slide{Kind: slide.KindImage, Image: pngBytes(t, 32, 18, color.RGBA{R: 200, G: 100, A: 255}), Duration: 3}

	frame, err := r.Render(s, 0.5)
	require.NoError(t, err)
	px := frame.RGBAAt(16, 9)
	assert.InDelta(t, 100, int(px.R), 2)
	assert.InDelta(t, 50, int(px.G), 2)
	assert.Equal(t, uint8(255), px.A)
	r.Release(frame)

	// Pooled frames are cleared before reuse.
	frame, err = r.Render(s, 0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(16, 9))
}

func TestRenderUndecodable(t *testing.T) {
	r := New(32, 18)
	_, err := r.Render(slide.Slide{Kind: slide.KindImage, Image: []byte("not an image")}, 1)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = r.Render(slide.Slide{Kind: "video"}, 1)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRenderText(t *testing.T) {
	r := New(320, 180)
	for _, family := range slide.FontFamilies {
		t.Run(string(family), func(t *testing.T) {
			s := slide.Slide{
				Kind:     slide.KindText,
				Content:  "Hello there",
				Duration: 3,
				Style:    &slide.Style{FontSize: 48, Color: "#00FF00", FontFamily: family},
			}
			frame, err := r.Render(s, 1)
			require.NoError(t, err)
			defer r.Release(frame)

			green := 0
			b := frame.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					px := frame.RGBAAt(x, y)
					if px.G > 128 && px.R < 64 {
						green++
					}
				}
			}
			assert.Positive(t, green)
			assert.Equal(t, color.RGBA{A: 255}, frame.RGBAAt(0, 0))
		})
	}
}

func TestWrap(t *testing.T) {
	face, err := newFace(slide.FontCourier, 10)
	require.NoError(t, err)
	defer face.Close()

	width := face.Metrics().Height * 100
	assert.Equal(t, []string{"one two"}, wrap(face, "one   two", width))
	assert.Equal(t, []string{"one", "", "two"}, wrap(face, "one\n\ntwo", width))

	narrow := wrap(face, "aaaa bbbb cccc", width/50)
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, narrow)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#FFFFFF", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#ff8000", color.NRGBA{R: 255, G: 128, B: 0, A: 255}},
		{"#0f0", color.NRGBA{G: 255, A: 255}},
		{"#00000080", color.NRGBA{A: 128}},
		{"red", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#zzzzzz", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseColor(tt.in), tt.in)
	}
}

func TestWriteRaw(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(1, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	var buf bytes.Buffer
	require.NoError(t, WriteRaw(&buf, img))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 255}, buf.Bytes())

	sub := img.SubImage(image.Rect(1, 0, 2, 1))
	buf.Reset()
	require.NoError(t, WriteRaw(&buf, sub))
	assert.Equal(t, []byte{1, 2, 3, 255}, buf.Bytes())
}

func TestFramePool(t *testing.T) {
	p := NewFramePool(4, 3)
	a := p.Get()
	assert.Equal(t, image.Rect(0, 0, 4, 3), a.Bounds())
	assert.Equal(t, p.Bounds(), a.Bounds())
	assert.Equal(t, int64(1), p.Allocated())

	p.Put(a)
	p.Put(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	p.Put(nil)
	for i := 0; i < 3; i++ {
		assert.Equal(t, p.Bounds(), p.Get().Bounds())
	}
	assert.LessOrEqual(t, p.Allocated(), int64(4))
}
