package converter

import (
	"fmt"

	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
	"github.com/mixaill76/auto_ai_vision/internal/segment"
	"google.golang.org/genai"
)

// ToGemini converts segments into content parts: inline blobs for local images,
// file URIs for remote references.
func ToGemini(segments []segment.Segment) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(segments))
	for i, s := range segments {
		if !s.IsImage() {
			parts = append(parts, genai.NewPartFromText(s.Text))
			continue
		}

		if s.Image.Kind() == imagecontent.KindRemote {
			mimeType, _ := s.Image.MIME()
			parts = append(parts, &genai.Part{FileData: &genai.FileData{MIMEType: mimeType, FileURI: s.Image.URL()}})
			continue
		}

		data, err := s.Image.Bytes()
		if err != nil {
			return nil, fmt.Errorf("converter: segment %d: %w", i, err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: imagecontent.CanonicalMIME, Data: data}})
	}
	return parts, nil
}
