package imagemeta

import (
	"testing"

	"github.com/mixaill76/auto_ai_vision/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedChunks(p *Parser, data []byte, size int) int {
	fed := 0
	for fed < len(data) {
		end := fed + size
		if end > len(data) {
			end = len(data)
		}
		done := p.Feed(data[fed:end])
		fed = end
		if done || p.Failed() {
			break
		}
	}
	return fed
}

func TestMIMEType(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"png", "image/png"},
		{"jpeg", "image/jpeg"},
		{"JPG", "image/jpeg"},
		{"gif", "image/gif"},
		{"webp", "image/webp"},
		{"bmp", "image/bmp"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.want, MIMEType(tt.format))
		})
	}
}

func TestParser_ResolvesFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", testhelpers.PNGBytes(t, 64, 48), "png"},
		{"jpeg", testhelpers.JPEGBytes(t, 64, 48), "jpeg"},
		{"gif", testhelpers.GIFBytes(t, 64, 48), "gif"},
		{"bmp", testhelpers.BMPBytes(t, 64, 48), "bmp"},
		{"webp", testhelpers.WEBPHeader(64, 48), "webp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(0)
			feedChunks(p, tt.data, 256)

			require.True(t, p.Resolved())
			w, h := p.Size()
			assert.Equal(t, 64, w)
			assert.Equal(t, 48, h)
			assert.Equal(t, tt.format, p.Format())
			assert.Equal(t, "image/"+tt.format, p.MIME())
		})
	}
}

func TestParser_PNGResolvesFromIHDR(t *testing.T) {
	data := testhelpers.PNGBytes(t, 300, 200)
	require.Greater(t, len(data), 33)

	p := NewParser(0)
	assert.False(t, p.Feed(data[:20]))
	assert.False(t, p.Failed())
	assert.True(t, p.Feed(data[20:33]))

	w, h := p.Size()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestParser_ByteAtATime(t *testing.T) {
	data := testhelpers.JPEGBytes(t, 17, 9)
	p := NewParser(0)
	fed := feedChunks(p, data, 1)

	require.True(t, p.Resolved())
	assert.Less(t, fed, len(data))
	w, h := p.Size()
	assert.Equal(t, 17, w)
	assert.Equal(t, 9, h)
}

func TestParser_UnknownContainerFails(t *testing.T) {
	p := NewParser(0)
	assert.False(t, p.Feed([]byte("<html><body>definitely not an image</body></html>")))
	assert.True(t, p.Failed())
	assert.False(t, p.Resolved())

	// Further input is ignored once failed.
	assert.False(t, p.Feed(testhelpers.PNGBytes(t, 2, 2)))
}

func TestParser_ShortPrefixIsNotAFailure(t *testing.T) {
	p := NewParser(0)
	assert.False(t, p.Feed([]byte{0x89, 'P', 'N'}))
	assert.False(t, p.Failed())
}

func TestParser_MaxBytes(t *testing.T) {
	data := testhelpers.PNGBytes(t, 8, 8)
	p := NewParser(12)
	assert.False(t, p.Feed(data[:12]))
	assert.True(t, p.Failed())
}

func TestDecodeConfig(t *testing.T) {
	w, h, format, err := DecodeConfig(testhelpers.GIFBytes(t, 5, 7))
	require.NoError(t, err)
	assert.Equal(t, 5, w)
	assert.Equal(t, 7, h)
	assert.Equal(t, "gif", format)

	_, _, _, err = DecodeConfig([]byte("nope"))
	assert.Error(t, err)
}
