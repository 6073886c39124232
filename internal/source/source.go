// Package source reads slide images from disk: a directory of pictures or
// the pages of a PDF.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ivlev/slidereel/internal/slide"
)

// Source yields encoded images, one per page.
type Source interface {
	PageCount() int
	// Page returns the encoded image of page index. The bytes are owned by
	// the caller.
	Page(index int) ([]byte, error)
	// Name is a human readable reference for page index.
	Name(index int) string
	Close() error
}

// DefaultDPI is the resolution PDF pages are rendered at.
const DefaultDPI = 150

// Open picks the source type by path: PDF files are rendered page by page,
// anything else is read as an image file or a directory of images.
func Open(path string, dpi int) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		src, err := NewPDFSource(path, dpi)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := NewImageSource(path)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w: page %d of %d", slide.ErrIndexOutOfRange, index, count)
	}
	return nil
}
