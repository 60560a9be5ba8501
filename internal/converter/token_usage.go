package converter

import (
	"fmt"
	"strings"

	"github.com/mixaill76/auto_ai_vision/internal/segment"
	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
)

const (
	// MessageOverhead is the fixed per-message token cost of a chat message.
	MessageOverhead = 7
	// visualSystemPrompt is the hidden system prompt of "*visual" models.
	visualSystemPrompt = 54
)

// TextCounter counts the tokens of a text fragment.
type TextCounter func(text string) int

// TokenReserve returns the tokens a model reserves out of its context window.
func TokenReserve(model string) int {
	if strings.HasSuffix(strings.ToLower(model), "visual") {
		return visualSystemPrompt
	}
	return 0
}

// MessageTokens returns the token length of a message made of segments: the
// message overhead, the cost of each image, and countText for each text
// segment (text is not counted when countText is nil).
func MessageTokens(segments []segment.Segment, detail tokencost.Detail, version tokencost.Version, countText TextCounter) (int, error) {
	total := MessageOverhead
	for i, s := range segments {
		if !s.IsImage() {
			if countText != nil {
				total += countText(s.Text)
			}
			continue
		}
		tokens, err := tokencost.ImageTokens(s.Image, detail, version)
		if err != nil {
			return 0, fmt.Errorf("converter: segment %d: %w", i, err)
		}
		total += tokens
	}
	return total, nil
}
