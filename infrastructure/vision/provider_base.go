package vision

import "sync"

// DefaultMaxTokens bounds the response size when the caller does not set
// max_tokens. Transcription responses are small JSON documents, but long
// sheets can run to a few thousand tokens.
const DefaultMaxTokens = 4096

// BaseProvider carries the thread-safe model name handling shared by all
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name. Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name. Safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized per-request configuration shared
// across providers.
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	System      string
}

// ParseRequestOptions extracts the standard request parameters from an
// options map, falling back to defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
	}
	if v, ok := opts["max_tokens"].(int); ok && v > 0 {
		options.MaxTokens = v
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		options.Model = v
	}
	if v, ok := opts["system"].(string); ok {
		options.System = v
	}
	if v, ok := opts["temperature"].(float64); ok && v >= 0 && v <= 2 {
		options.Temperature = &v
	}
	return options
}

// TokenCounter estimates token counts when the provider response carries no
// usage metadata. Roughly four characters per token for English text.
type TokenCounter struct {
	CharactersPerToken float64
}

func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens approximates the token count of text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider-reported count and falls back to
// estimation.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
