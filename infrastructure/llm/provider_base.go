package llm

import (
	"fmt"
	"net/url"
)

// Parameter bounds shared across providers.
const (
	// DefaultMaxTokens applies when a payload does not set max_tokens.
	DefaultMaxTokens = 1024
	// MinTemperature and MaxTemperature bound the sampling temperature;
	// 2.0 accommodates Gemini.
	MinTemperature = 0.0
	MaxTemperature = 2.0
	// MinTopP and MaxTopP bound nucleus sampling.
	MinTopP = 0.0
	MaxTopP = 1.0
)

// RequestOptions is the standardized parameter set extracted from a
// payload's option map. Providers translate it into their SDK's shape.
type RequestOptions struct {
	MaxTokens int
	// Temperature and TopP are nil when the provider default should apply.
	Temperature *float64
	TopP        *float64
	// Extra holds provider-specific options passed through untouched.
	Extra map[string]any
}

// ParseRequestOptions extracts the standardized parameters from a payload
// option map, applying defaults for missing or invalid entries and
// collecting unrecognized keys into Extra.
func ParseRequestOptions(opts map[string]any) RequestOptions {
	options := RequestOptions{
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens, func(v int) bool { return v > 0 }),
		Extra:     make(map[string]any),
	}

	if temp, ok := extractFloat(opts, "temperature"); ok && temp >= MinTemperature && temp <= MaxTemperature {
		options.Temperature = &temp
	}
	if topP, ok := extractFloat(opts, "top_p"); ok && topP >= MinTopP && topP <= MaxTopP {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "temperature", "top_p":
			// Standard options, already processed.
		default:
			options.Extra[k] = v
		}
	}

	return options
}

func extractInt(opts map[string]any, key string, def int, valid func(int) bool) int {
	if opts == nil {
		return def
	}
	v, ok := opts[key].(int)
	if !ok || (valid != nil && !valid(v)) {
		return def
	}
	return v
}

func extractFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// TokenCounter estimates token counts when a provider omits usage data.
type TokenCounter struct {
	// CharactersPerToken approximates tokenization for English text.
	CharactersPerToken float64
}

// NewTokenCounter creates a counter with the common 4-characters-per-token
// approximation.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens returns an approximate token count for text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider's actual count, estimating otherwise.
func (tc *TokenCounter) GetTokenCount(actual int, text string) int {
	if actual > 0 {
		return actual
	}
	return tc.EstimateTokens(text)
}

// ValidateBaseURL validates and normalizes a base URL override. An empty
// string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

func clampFloat(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
