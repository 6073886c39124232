// Package thumbnail produces the preview image stored with each video.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/slidereel/internal/analyzer"
	"github.com/ivlev/slidereel/internal/render"
	"github.com/ivlev/slidereel/internal/slide"
)

const (
	Width  = 180
	Height = 100

	// Placeholder is the reference stored when no thumbnail can be made.
	Placeholder = "/placeholder.svg?height=100&width=180"
)

// Provider turns a sequence into a thumbnail reference.
type Provider interface {
	Thumbnail(seq slide.Sequence) (string, error)
}

// Generator renders the most detailed image slide (or the first slide when
// there is none) into a PNG data URI. When no candidate can be rendered the
// thumbnail is a QR code of the first candidate's id.
type Generator struct {
	renderer *render.Renderer
	logger   *slog.Logger
}

func NewGenerator(width, height int, logger *slog.Logger) *Generator {
	if width <= 0 {
		width = Width
	}
	if height <= 0 {
		height = Height
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		renderer: render.New(width, height),
		logger:   logger.With("component", "thumbnail"),
	}
}

func (g *Generator) Thumbnail(seq slide.Sequence) (string, error) {
	if len(seq) == 0 {
		return "", slide.ErrEmptySequence
	}
	candidates := covers(seq)

	var best *image.RGBA
	score := -1.0
	for _, s := range candidates {
		frame, err := g.renderer.Render(s, 1)
		if err != nil {
			g.logger.Warn("cannot render thumbnail candidate", "slide", s.ID, "error", err)
			continue
		}
		d := analyzer.Detail(frame)
		if d <= score {
			g.renderer.Release(frame)
			continue
		}
		if best != nil {
			g.renderer.Release(best)
		}
		best, score = frame, d
	}
	if best == nil {
		g.logger.Warn("no renderable cover, using qr code", "slide", candidates[0].ID)
		return g.qr(candidates[0].ID)
	}
	defer g.renderer.Release(best)

	return pngDataURI(best)
}

func (g *Generator) qr(content string) (string, error) {
	w, h := g.renderer.Size()
	size := min(w, h)
	data, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return dataURI(data), nil
}

func covers(seq slide.Sequence) slide.Sequence {
	var images slide.Sequence
	for _, s := range seq {
		if s.Kind == slide.KindImage {
			images = append(images, s)
		}
	}
	if len(images) == 0 {
		return seq[:1]
	}
	return images
}

func pngDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return dataURI(buf.Bytes()), nil
}

func dataURI(pngData []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

// Static always returns the same reference. It stands in for thumbnail
// generation when previews are not wanted.
type Static string

func (s Static) Thumbnail(slide.Sequence) (string, error) {
	return string(s), nil
}

var (
	_ Provider = (*Generator)(nil)
	_ Provider = Static("")
)
