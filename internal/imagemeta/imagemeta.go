// Package imagemeta resolves an image container's format and pixel dimensions
// from a byte prefix, without decoding pixel data.
package imagemeta

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// minSniffLen covers the longest registered magic string (webp: "RIFF????WEBPVP8").
	minSniffLen = 16

	// eagerLimit is the buffered size up to which every fed chunk triggers a header parse.
	// Past it a parse is attempted only once the buffer has grown by half since the last attempt.
	eagerLimit = 64 * 1024

	// DefaultMaxHeaderBytes bounds how much of a stream is buffered while looking for a header.
	DefaultMaxHeaderBytes = 1024 * 1024
)

// MIMEType maps a format name reported by the image package to its MIME type.
func MIMEType(format string) string {
	format = strings.ToLower(format)
	switch format {
	case "":
		return ""
	case "jpg":
		return "image/jpeg"
	default:
		return "image/" + format
	}
}

// DecodeConfig returns width, height and format name of an encoded image.
func DecodeConfig(data []byte) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

// Parser accumulates a stream prefix and reports the image dimensions as soon as
// the container header is complete. A Parser is not safe for concurrent use.
type Parser struct {
	buf         bytes.Buffer
	maxBytes    int
	lastAttempt int

	width, height int
	format        string
	resolved      bool
	failed        bool
}

// NewParser creates a Parser that gives up after maxBytes of buffered input.
// A non-positive maxBytes selects DefaultMaxHeaderBytes.
func NewParser(maxBytes int) *Parser {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHeaderBytes
	}
	return &Parser{maxBytes: maxBytes}
}

// Feed appends chunk to the buffered prefix and reports whether the dimensions are known.
// Feeding a resolved or failed Parser is a no-op.
func (p *Parser) Feed(chunk []byte) bool {
	if p.resolved || p.failed {
		return p.resolved
	}
	p.buf.Write(chunk)

	n := p.buf.Len()
	if n > eagerLimit && n < p.lastAttempt+p.lastAttempt/2 && n < p.maxBytes {
		return false
	}
	p.lastAttempt = n

	w, h, format, err := DecodeConfig(p.buf.Bytes())
	switch {
	case err == nil && w > 0 && h > 0:
		p.width, p.height, p.format = w, h, format
		p.resolved = true
		p.buf.Reset()
	case err == nil:
		// A zero-sized header will not become valid with more data.
		p.failed = true
	case errors.Is(err, image.ErrFormat):
		if n >= minSniffLen {
			p.failed = true
		}
	}
	// Any other error means the header is still truncated.
	if !p.resolved && n >= p.maxBytes {
		p.failed = true
	}
	return p.resolved
}

// Resolved reports whether the dimensions have been determined.
func (p *Parser) Resolved() bool { return p.resolved }

// Failed reports whether the prefix can never resolve: the container is not
// recognized, the header is invalid, or the buffer limit was reached.
func (p *Parser) Failed() bool { return p.failed }

// Size returns the resolved width and height, or zeros.
func (p *Parser) Size() (int, int) { return p.width, p.height }

// Format returns the resolved format name ("png", "jpeg", ...), or "".
func (p *Parser) Format() string { return p.format }

// MIME returns the MIME type of the resolved format, or "".
func (p *Parser) MIME() string { return MIMEType(p.format) }
