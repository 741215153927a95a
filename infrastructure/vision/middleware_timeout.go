package vision

import (
	"context"
	"time"
)

// timeoutVision bounds each request with a deadline so a slow provider
// cannot stall the whole run.
type timeoutVision struct {
	next    CoreVision
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-request timeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreVision) CoreVision {
		return &timeoutVision{next: next, timeout: timeout}
	}
}

func (t *timeoutVision) DoRequest(ctx context.Context, req Request, opts map[string]any) (string, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, req, opts)
}

func (t *timeoutVision) GetModel() string  { return t.next.GetModel() }
func (t *timeoutVision) SetModel(m string) { t.next.SetModel(m) }
