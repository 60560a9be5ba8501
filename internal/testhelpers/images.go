package testhelpers

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// NewTestImage creates an opaque RGBA image with a simple gradient.
func NewTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

// PNGBytes encodes a width x height test image as PNG.
func PNGBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, NewTestImage(width, height)))
	return buf.Bytes()
}

// JPEGBytes encodes a width x height test image as JPEG.
func JPEGBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, NewTestImage(width, height), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

// GIFBytes encodes a width x height test image as GIF.
func GIFBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, NewTestImage(width, height), nil))
	return buf.Bytes()
}

// BMPBytes encodes a width x height test image as BMP.
func BMPBytes(t testing.TB, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, NewTestImage(width, height)))
	return buf.Bytes()
}

// WEBPHeader builds the smallest lossless WEBP prefix whose header declares width x height.
// Go has no WEBP encoder, so only the container and VP8L header are produced.
func WEBPHeader(width, height int) []byte {
	chunk := make([]byte, 6)
	chunk[0] = 0x2f
	bits := uint32(width-1) | uint32(height-1)<<14
	binary.LittleEndian.PutUint32(chunk[1:5], bits)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4+8+len(chunk)))
	buf.WriteString("WEBP")
	buf.WriteString("VP8L")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(chunk)))
	buf.Write(chunk)
	return buf.Bytes()
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
