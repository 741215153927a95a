package application

import (
	"time"

	"golang.org/x/time/rate"

	"peermark/infrastructure/sheetcache"
	"peermark/infrastructure/vision"
	"peermark/internal/ports"
)

// BuildTranscriber assembles the configured provider with its middleware
// chain: tracing outermost, then metrics, retry, rate limiting, and the
// per-request timeout innermost so every retry attempt gets its own
// deadline.
func BuildTranscriber(cfg *Config, collector ports.MetricsCollector) (ports.Transcriber, error) {
	apiKey, err := cfg.APIKey()
	if err != nil {
		return nil, err
	}

	middleware := []vision.Middleware{
		vision.TracingMiddleware("peermark"),
	}
	if collector != nil {
		middleware = append(middleware, vision.MetricsMiddleware(cfg.Provider.Name, collector))
	}
	middleware = append(middleware,
		vision.RetryMiddleware(cfg.Provider.MaxRetries, time.Second, 30*time.Second),
		vision.RateLimitMiddleware(rate.Limit(cfg.Provider.RequestsPerSecond), cfg.Provider.Burst),
		vision.TimeoutMiddleware(time.Duration(cfg.Provider.TimeoutSeconds)*time.Second),
	)

	core, err := vision.NewCoreVision(cfg.Provider.Name, vision.ClientConfig{
		APIKey:     apiKey,
		Model:      cfg.Provider.Model,
		BaseURL:    cfg.Provider.BaseURL,
		Middleware: middleware,
	})
	if err != nil {
		return nil, err
	}

	return vision.NewTranscriber(core, vision.TranscriberConfig{
		RowCount:        cfg.Sheet.RowCount,
		IncludeIdentity: !cfg.Privacy.IdentityMasked(),
	})
}

// BuildCache opens the transcription cache when enabled; a nil cache means
// every sheet is transcribed fresh.
func BuildCache(cfg *Config) (ports.TranscriptionCache, error) {
	if !cfg.Cache.On() || cfg.Cache.Path == "" {
		return nil, nil
	}
	return sheetcache.Open(cfg.Cache.Path)
}
