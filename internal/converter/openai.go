package converter

import (
	"fmt"

	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
	"github.com/mixaill76/auto_ai_vision/internal/segment"
	"github.com/mixaill76/auto_ai_vision/internal/tokencost"
	"github.com/openai/openai-go/v3"
)

// ToOpenAI converts segments into chat completion content parts. Local images
// are inlined as data URIs; remote references are passed by URL.
func ToOpenAI(segments []segment.Segment, detail tokencost.Detail) ([]openai.ChatCompletionContentPartUnionParam, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(segments))
	for i, s := range segments {
		if !s.IsImage() {
			parts = append(parts, openai.TextContentPart(s.Text))
			continue
		}

		imageURL, err := openAIImageURL(s.Image)
		if err != nil {
			return nil, fmt.Errorf("converter: segment %d: %w", i, err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    imageURL,
			Detail: detail.String(),
		}))
	}
	return parts, nil
}

func openAIImageURL(img *imagecontent.Image) (string, error) {
	if img.Kind() == imagecontent.KindRemote {
		return img.URL(), nil
	}
	return img.Base64URI()
}
