package converter

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
	"github.com/mixaill76/auto_ai_vision/internal/segment"
)

// ToAnthropic converts segments into message content blocks: base64 image
// sources for local images, URL sources for remote references.
func ToAnthropic(segments []segment.Segment) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(segments))
	for i, s := range segments {
		if !s.IsImage() {
			blocks = append(blocks, anthropic.NewTextBlock(s.Text))
			continue
		}

		if s.Image.Kind() == imagecontent.KindRemote {
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: s.Image.URL()}))
			continue
		}

		data, err := s.Image.Base64()
		if err != nil {
			return nil, fmt.Errorf("converter: segment %d: %w", i, err)
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(imagecontent.CanonicalMIME, data))
	}
	return blocks, nil
}
