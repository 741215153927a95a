// Package raster renders scanned PDF pages to images using MuPDF.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"peermark/internal/ports"
)

// DefaultDPI matches the resolution the sheet layout geometry was measured
// at. Lower values shrink uploads but cost transcription accuracy on small
// handwriting.
const DefaultDPI = 300

// Renderer implements ports.Rasterizer on top of go-fitz. A fresh document
// handle is opened per call; MuPDF contexts are not safe to share across
// goroutines.
type Renderer struct{}

// NewRenderer returns a stateless MuPDF-backed renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// RenderPage rasterizes the zero-based page of the PDF at the given DPI.
func (Renderer) RenderPage(ctx context.Context, pdfPath string, page, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, fmt.Errorf("%s: page %d out of range (document has %d)", pdfPath, page, doc.NumPage())
	}

	img, err := doc.ImageDPI(page, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rendering %s page %d: %w", pdfPath, page, err)
	}
	return img, nil
}

// PageCount returns the number of pages in the PDF.
func (Renderer) PageCount(pdfPath string) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// EncodePNG serializes an image for upload or for writing preview files.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

var _ ports.Rasterizer = (*Renderer)(nil)
