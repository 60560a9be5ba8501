// Package converter renders parsed query segments as message content for the
// supported chat backends.
package converter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mixaill76/auto_ai_vision/internal/segment"
	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
)

// Provider identifies a backend content format.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// ParseProvider parses a provider name (case-insensitive).
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("converter: unknown provider %q (expected openai, anthropic or gemini)", s)
	}
}

// RenderJSON converts segments for provider and returns the content array as JSON.
func RenderJSON(provider Provider, segments []segment.Segment, detail tokencost.Detail) ([]byte, error) {
	var (
		content any
		err     error
	)
	switch provider {
	case ProviderOpenAI:
		content, err = ToOpenAI(segments, detail)
	case ProviderAnthropic:
		content, err = ToAnthropic(segments)
	case ProviderGemini:
		content, err = ToGemini(segments)
	default:
		return nil, fmt.Errorf("converter: unknown provider %q", provider)
	}
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("converter: failed to marshal %s content: %w", provider, err)
	}
	return body, nil
}
