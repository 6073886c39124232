package source

import (
	"bytes"
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// PDFSource renders PDF pages to PNG.
type PDFSource struct {
	doc  *fitz.Document
	path string
	dpi  int
}

func NewPDFSource(path string, dpi int) (*PDFSource, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *PDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *PDFSource) Page(index int) ([]byte, error) {
	if err := checkIndex(index, f.PageCount()); err != nil {
		return nil, err
	}

	// A document handle is not safe for concurrent rendering.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, float64(f.dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", index, err)
	}
	return buf.Bytes(), nil
}

func (f *PDFSource) Name(index int) string {
	return fmt.Sprintf("%s#page=%d", filepath.Base(f.path), index+1)
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}
