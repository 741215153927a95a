// Package vision provides a unified interface for sending score sheet images
// to vision-capable model providers for transcription, with built-in support
// for retries, rate limiting, timeouts, metrics, and tracing.
//
// Provider implementations (OpenAI, Anthropic, Google) sit behind the
// CoreVision interface, and cross-cutting concerns are layered on through a
// middleware chain, so the pipeline can switch providers or add operational
// features without changing its own code.
//
// Basic usage:
//
//	core, err := vision.NewCoreVision("google", vision.ClientConfig{
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Model:  "gemini-2.0-flash-exp",
//	    Middleware: []vision.Middleware{
//	        vision.RetryMiddleware(3, time.Second, 30*time.Second),
//	        vision.RateLimitMiddleware(2, 4),
//	    },
//	})
package vision

import (
	"context"
	"fmt"
	"time"
)

// Request is one transcription call: the instruction prompt plus the
// rendered (and usually masked) page image.
type Request struct {
	// Prompt tells the model what to read off the sheet and the JSON shape
	// to answer with.
	Prompt string

	// ImagePNG is the PNG-encoded page. May be nil for plain text requests
	// such as provider health checks.
	ImagePNG []byte
}

// CoreVision is the minimal interface a provider must implement. The
// middleware system wraps any conforming implementation.
type CoreVision interface {
	// DoRequest sends the prompt and image to the provider and returns the
	// response text along with input and output token counts.
	DoRequest(ctx context.Context, req Request, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreVision to add cross-cutting functionality such as
// retries, rate limiting, or metrics without touching provider logic.
type Middleware func(CoreVision) CoreVision

// ClientConfig holds the settings for building a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the vision model. Empty picks the provider default.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds individual requests when no TimeoutMiddleware is used.
	Timeout time.Duration

	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// ProviderFactory creates a CoreVision from configuration. The signature
// lets the registry construct providers without knowing their types.
type ProviderFactory func(ClientConfig) (CoreVision, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name. Providers in
// this package register themselves in init; external implementations may
// add their own.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// Providers returns the names of all registered provider factories.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	return names
}

// NewCoreVision builds the named provider and wraps it with the configured
// middleware chain.
func NewCoreVision(providerType string, config ClientConfig) (CoreVision, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}
	return core, nil
}
