package vision

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedVision paces requests with a token bucket so a parallel run
// stays under the provider's request-per-second quota.
type rateLimitedVision struct {
	next    CoreVision
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a sustained request
// rate with a burst allowance. The limiter is shared by every client the
// middleware wraps, so one bucket governs the whole run.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreVision) CoreVision {
		return &rateLimitedVision{next: next, limiter: limiter}
	}
}

func (r *rateLimitedVision) DoRequest(ctx context.Context, req Request, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, req, opts)
}

func (r *rateLimitedVision) GetModel() string  { return r.next.GetModel() }
func (r *rateLimitedVision) SetModel(m string) { r.next.SetModel(m) }
