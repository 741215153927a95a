// Package ports defines the interfaces that form the contract between the
// core grading logic and the infrastructure layer (vision transcription, PDF
// rasterization, caching, metrics). These interfaces enable dependency
// inversion so the aggregation and scoring logic is testable fully offline
// with synthetic transcriptions.
package ports

import (
	"context"
	"image"
	"time"

	"peermark/internal/domain"
)

// Transcriber is the narrow capability the core consumes at the external
// transcription boundary: one PNG-encoded page image in, one row/score
// mapping out. Implementations own authentication, request formatting,
// retries, and timeouts; a returned error means the whole sheet is treated
// as unreadable and the batch continues without it.
type Transcriber interface {
	// Transcribe sends a page image to the vision transcription service and
	// returns the per-row scores it read. The sheetID is echoed into the
	// result for correlation and never influences transcription.
	Transcribe(ctx context.Context, sheetID string, imagePNG []byte) (domain.Transcription, error)

	// Model returns the vision model identifier in use, for logging and
	// cache keying.
	Model() string
}

// Rasterizer converts a scanned PDF into page images. The score sheet form
// is single-page; callers render page one and ignore the rest.
type Rasterizer interface {
	// RenderPage rasterizes the given zero-based page at the requested DPI.
	RenderPage(ctx context.Context, pdfPath string, page, dpi int) (image.Image, error)

	// PageCount returns the number of pages in the document.
	PageCount(pdfPath string) (int, error)
}

// CacheKey identifies one cached transcription. The digest covers the
// rendered page bytes, so edits to a source PDF invalidate its entry, and
// the model and masking mode are part of the key because either changes the
// service response.
type CacheKey struct {
	SheetDigest string
	Model       string
	Masked      bool
}

// TranscriptionCache stores transcription results between runs so an
// idempotent re-run does not re-pay the external service for sheets it has
// already read.
type TranscriptionCache interface {
	// Get returns the cached transcription and true if present.
	Get(ctx context.Context, key CacheKey) (domain.Transcription, bool, error)

	// Put stores a transcription, replacing any existing entry for the key.
	Put(ctx context.Context, key CacheKey, tr domain.Transcription) error

	// Close releases the underlying store.
	Close() error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// Useful for tracking events like cache hits, skipped sheets, errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, for distributions
	// like scores per student or response sizes.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
