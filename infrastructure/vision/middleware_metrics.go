package vision

import (
	"context"
	"errors"
	"time"

	"peermark/internal/ports"
)

// metricsVision records request latency, outcomes and token usage for
// operational monitoring of transcription runs.
type metricsVision struct {
	next      CoreVision
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports request metrics to the
// given collector.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreVision) CoreVision {
		return &metricsVision{next: next, provider: provider, collector: collector}
	}
}

func (m *metricsVision) DoRequest(ctx context.Context, req Request, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, req, opts)

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   "success",
	}
	if err != nil {
		labels["status"] = "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			labels["status"] = "timeout"
		}
	}

	if m.collector != nil {
		m.collector.RecordHistogram("transcription_latency_seconds", time.Since(start).Seconds(), labels)
		m.collector.RecordCounter("transcription_requests_total", 1, labels)
		m.collector.RecordHistogram("transcription_image_bytes", float64(len(req.ImagePNG)), labels)

		if err == nil {
			labels["token_type"] = "input"
			m.collector.RecordCounter("transcription_tokens_total", float64(tokensIn), labels)

			labels["token_type"] = "output"
			m.collector.RecordCounter("transcription_tokens_total", float64(tokensOut), labels)
		}
	}
	return response, tokensIn, tokensOut, err
}

func (m *metricsVision) GetModel() string  { return m.next.GetModel() }
func (m *metricsVision) SetModel(s string) { m.next.SetModel(s) }
