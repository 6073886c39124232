// Package render rasterises slides into RGBA frames: images are scaled to
// fit on a black canvas, text is wrapped and centred in its style.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/slidereel/internal/slide"
)

var (
	ErrDecode      = errors.New("cannot decode slide image")
	ErrUnknownKind = errors.New("unknown slide kind")
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720

	// Font sizes are given in pixels of a 720 px tall preview.
	referenceHeight = 720
	textPadding     = 16
)

// Renderer draws slides into frames of a fixed size. It is safe for
// concurrent use.
type Renderer struct {
	width, height int
	pool          *FramePool
}

func New(width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{width: width, height: height, pool: NewFramePool(width, height)}
}

func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// FrameBytes is the size of one raw RGBA frame.
func (r *Renderer) FrameBytes() uint64 {
	return uint64(r.width) * uint64(r.height) * 4
}

// Render draws s at the given opacity over black. The frame comes from the
// renderer's pool; hand it back with Release when done.
func (r *Renderer) Render(s slide.Slide, opacity float64) (*image.RGBA, error) {
	frame := r.pool.Get()
	draw.Draw(frame, frame.Bounds(), image.Black, image.Point{}, draw.Src)

	var err error
	switch s.Kind {
	case slide.KindImage:
		err = r.drawImage(frame, s.Image)
	case slide.KindText:
		err = r.drawText(frame, s.Content, s.Style)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	if err != nil {
		r.pool.Put(frame)
		return nil, err
	}

	applyOpacity(frame, opacity)
	return frame, nil
}

func (r *Renderer) Release(frame *image.RGBA) {
	r.pool.Put(frame)
}

func (r *Renderer) drawImage(dst *image.RGBA, data []byte) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	xdraw.CatmullRom.Scale(dst, Fit(src.Bounds(), dst.Bounds()), src, src.Bounds(), xdraw.Over, nil)
	return nil
}

// Fit returns the largest rectangle with src's aspect ratio that fits in
// dst, centred. Odd leftovers go to the bottom and right.
func Fit(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 {
		return image.Rectangle{}
	}

	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func (r *Renderer) drawText(dst *image.RGBA, content string, style *slide.Style) error {
	st := slide.DefaultStyle()
	if style != nil {
		st = style.WithDefaults()
	}

	face, err := newFace(st.FontFamily, float64(st.FontSize)*float64(r.height)/referenceHeight)
	if err != nil {
		return err
	}
	defer face.Close()

	maxWidth := fixed.I(r.width - 2*textPadding)
	lines := wrap(face, content, maxWidth)

	m := face.Metrics()
	lineHeight := m.Height
	if lineHeight <= 0 {
		lineHeight = m.Ascent + m.Descent
	}
	block := lineHeight * fixed.Int26_6(len(lines))
	top := (fixed.I(r.height) - block) / 2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ParseColor(st.Color)),
		Face: face,
	}
	for i, line := range lines {
		w := d.MeasureString(line)
		d.Dot = fixed.Point26_6{
			X: (fixed.I(r.width) - w) / 2,
			Y: top + lineHeight*fixed.Int26_6(i) + m.Ascent,
		}
		d.DrawString(line)
	}
	return nil
}

// wrap breaks text into lines no wider than maxWidth. Explicit newlines are
// kept; a single word wider than maxWidth gets a line of its own.
func wrap(face font.Face, text string, maxWidth fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate) > maxWidth {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

var (
	fontsOnce sync.Once
	fonts     map[slide.FontFamily]*opentype.Font
	fontsErr  error
)

// Go fonts stand in for the families a text slide can name.
func loadFonts() {
	ttf := map[slide.FontFamily][]byte{
		slide.FontArial:         goregular.TTF,
		slide.FontVerdana:       gomedium.TTF,
		slide.FontTimesNewRoman: goitalic.TTF,
		slide.FontCourier:       gomono.TTF,
	}
	fonts = make(map[slide.FontFamily]*opentype.Font, len(ttf))
	for family, data := range ttf {
		f, err := opentype.Parse(data)
		if err != nil {
			fontsErr = fmt.Errorf("parse font %s: %w", family, err)
			return
		}
		fonts[family] = f
	}
}

func newFace(family slide.FontFamily, size float64) (font.Face, error) {
	fontsOnce.Do(loadFonts)
	if fontsErr != nil {
		return nil, fontsErr
	}
	f, ok := fonts[family]
	if !ok {
		f = fonts[slide.FontArial]
	}
	if size < 1 {
		size = 1
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// ParseColor reads #RGB, #RGBA, #RRGGBB or #RRGGBBAA. Anything else is white.
func ParseColor(s string) color.NRGBA {
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, c := range hex {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return white
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return white
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// applyOpacity fades the frame towards black.
func applyOpacity(img *image.RGBA, opacity float64) {
	if opacity >= 1 {
		return
	}
	if opacity < 0 {
		opacity = 0
	}
	k := uint32(opacity*255 + 0.5)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(uint32(img.Pix[i]) * k / 255)
		img.Pix[i+1] = uint8(uint32(img.Pix[i+1]) * k / 255)
		img.Pix[i+2] = uint8(uint32(img.Pix[i+2]) * k / 255)
	}
}

// WriteRaw writes the frame as tightly packed RGBA bytes, the layout raw
// video encoders read from a pipe.
func WriteRaw(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
