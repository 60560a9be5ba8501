// Package imagecontent models an image attached to a query: a local file, encoded
// bytes already in memory, a decoded pixel buffer, or a metadata-only reference to a
// remote image.
package imagecontent

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mixaill76/auto_ai_vision/internal/imagemeta"
	"github.com/mixaill76/auto_ai_vision/internal/remote"
)

// CanonicalMIME is the media type of Bytes, Base64 and Base64URI.
const CanonicalMIME = "image/png"

var (
	// ErrFileAccess is returned when a local image path is missing or not a regular file.
	ErrFileAccess = errors.New("imagecontent: file access error")
	// ErrDecode is returned when bytes are not a supported image container.
	ErrDecode = errors.New("imagecontent: decode error")
	// ErrRemoteImageUnsupported is returned when pixel data is requested from a remote reference.
	ErrRemoteImageUnsupported = errors.New("imagecontent: remote image holds no pixel data")
)

// Kind identifies which representation an Image wraps.
type Kind int

const (
	KindLocalFile Kind = iota
	KindInMemory
	KindDecoded
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocalFile:
		return "LocalFile"
	case KindInMemory:
		return "InMemory"
	case KindDecoded:
		return "Decoded"
	case KindRemote:
		return "RemoteReference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Image is an immutable image value. Derived properties are computed on first
// use and cached; all methods are safe for concurrent use.
type Image struct {
	kind Kind

	path   string      // KindLocalFile
	data   []byte      // KindInMemory
	pixels image.Image // KindDecoded

	// KindRemote fields are populated at construction.
	url    string
	width  int
	height int
	mime   string

	sourceOnce sync.Once
	source     []byte
	sourceErr  error

	headerOnce sync.Once
	hdrWidth   int
	hdrHeight  int
	hdrFormat  string
	headerErr  error

	decodeOnce sync.Once
	decoded    image.Image
	decodeErr  error

	encodeOnce sync.Once
	encoded    []byte
	encodeErr  error
}

// FromPath wraps a filesystem path. The file is not touched until a property is requested.
func FromPath(path string) *Image {
	return &Image{kind: KindLocalFile, path: path}
}

// FromBytes wraps encoded image bytes. Decoding is deferred to first access.
func FromBytes(data []byte) *Image {
	return &Image{kind: KindInMemory, data: data}
}

// FromDecoded wraps an already decoded image.
func FromDecoded(pixels image.Image) *Image {
	return &Image{kind: KindDecoded, pixels: pixels}
}

// FromURL resolves a remote image. With remoteOnly false the whole body is
// downloaded and an in-memory image is returned. With remoteOnly true only the
// header is sniffed and a remote reference carrying width, height and MIME type
// is returned.
func FromURL(ctx context.Context, f *remote.Fetcher, url string, remoteOnly bool) (*Image, error) {
	if !remoteOnly {
		data, _, err := f.Download(ctx, url)
		if err != nil {
			return nil, err
		}
		return FromBytes(data), nil
	}

	meta, err := f.Sniff(ctx, url)
	if err != nil {
		return nil, err
	}
	if !meta.Resolved {
		return nil, fmt.Errorf("%w: could not determine dimensions of %s after %d bytes", ErrDecode, url, meta.BytesRead)
	}
	return &Image{
		kind:   KindRemote,
		url:    url,
		width:  meta.Width,
		height: meta.Height,
		mime:   meta.MIME,
	}, nil
}

func (img *Image) Kind() Kind { return img.kind }

// Path returns the filesystem path of a local file image.
func (img *Image) Path() string { return img.path }

// URL returns the address of a remote reference.
func (img *Image) URL() string { return img.url }

// Size returns the pixel dimensions.
func (img *Image) Size() (int, int, error) {
	switch img.kind {
	case KindRemote:
		return img.width, img.height, nil
	case KindDecoded:
		b := img.pixels.Bounds()
		return b.Dx(), b.Dy(), nil
	default:
		if err := img.readHeader(); err != nil {
			return 0, 0, err
		}
		return img.hdrWidth, img.hdrHeight, nil
	}
}

// MIME returns the lower-cased media type of the source image.
func (img *Image) MIME() (string, error) {
	switch img.kind {
	case KindRemote:
		return img.mime, nil
	case KindDecoded:
		return CanonicalMIME, nil
	default:
		if err := img.readHeader(); err != nil {
			return "", err
		}
		return imagemeta.MIMEType(img.hdrFormat), nil
	}
}

// Decoded returns the pixel buffer, decoding the source on first use.
func (img *Image) Decoded() (image.Image, error) {
	switch img.kind {
	case KindRemote:
		return nil, img.remoteErr()
	case KindDecoded:
		return img.pixels, nil
	}

	img.decodeOnce.Do(func() {
		data, err := img.sourceBytes()
		if err != nil {
			img.decodeErr = err
			return
		}
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			img.decodeErr = decodeError(img.describe(), data, err)
			return
		}
		img.decoded = decoded
	})
	return img.decoded, img.decodeErr
}

// Bytes returns the image re-encoded as PNG.
func (img *Image) Bytes() ([]byte, error) {
	if img.kind == KindRemote {
		return nil, img.remoteErr()
	}

	img.encodeOnce.Do(func() {
		pixels, err := img.Decoded()
		if err != nil {
			img.encodeErr = err
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, pixels); err != nil {
			img.encodeErr = fmt.Errorf("imagecontent: failed to encode %s as PNG: %w", img.describe(), err)
			return
		}
		img.encoded = buf.Bytes()
	})
	return img.encoded, img.encodeErr
}

// Base64 returns the standard base64 encoding of Bytes.
func (img *Image) Base64() (string, error) {
	data, err := img.Bytes()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Base64URI returns Bytes as a data URI.
func (img *Image) Base64URI() (string, error) {
	encoded, err := img.Base64()
	if err != nil {
		return "", err
	}
	return "data:" + CanonicalMIME + ";base64," + encoded, nil
}

func (img *Image) String() string {
	switch img.kind {
	case KindLocalFile:
		return fmt.Sprintf("LocalFile(%s)", img.path)
	case KindInMemory:
		return fmt.Sprintf("InMemory(%d bytes)", len(img.data))
	case KindDecoded:
		b := img.pixels.Bounds()
		return fmt.Sprintf("Decoded(%dx%d)", b.Dx(), b.Dy())
	case KindRemote:
		return fmt.Sprintf("RemoteReference(%s, %dx%d)", img.url, img.width, img.height)
	default:
		return img.kind.String()
	}
}

// sourceBytes returns the encoded bytes of a local file or in-memory image.
func (img *Image) sourceBytes() ([]byte, error) {
	if img.kind == KindInMemory {
		return img.data, nil
	}

	img.sourceOnce.Do(func() {
		info, err := os.Stat(img.path)
		if err != nil {
			img.sourceErr = fmt.Errorf("%w: %w", ErrFileAccess, err)
			return
		}
		if !info.Mode().IsRegular() {
			img.sourceErr = fmt.Errorf("%w: %s is not a regular file", ErrFileAccess, img.path)
			return
		}
		data, err := os.ReadFile(img.path)
		if err != nil {
			img.sourceErr = fmt.Errorf("%w: %w", ErrFileAccess, err)
			return
		}
		img.source = data
	})
	return img.source, img.sourceErr
}

// readHeader reads dimensions and format without decoding pixel data.
func (img *Image) readHeader() error {
	img.headerOnce.Do(func() {
		data, err := img.sourceBytes()
		if err != nil {
			img.headerErr = err
			return
		}
		w, h, format, err := imagemeta.DecodeConfig(data)
		if err != nil {
			img.headerErr = decodeError(img.describe(), data, err)
			return
		}
		if w <= 0 || h <= 0 {
			img.headerErr = fmt.Errorf("%w: %s declares an empty %dx%d image", ErrDecode, img.describe(), w, h)
			return
		}
		img.hdrWidth, img.hdrHeight, img.hdrFormat = w, h, format
	})
	return img.headerErr
}

func (img *Image) remoteErr() error {
	return fmt.Errorf("%w: %s only carries metadata; load it with FromURL(ctx, fetcher, %q, false) to access pixel data",
		ErrRemoteImageUnsupported, img.url, img.url)
}

func (img *Image) describe() string {
	if img.kind == KindLocalFile {
		return img.path
	}
	return img.String()
}

func decodeError(what string, data []byte, err error) error {
	detected := mimetype.Detect(data)
	return fmt.Errorf("%w: %s (detected %s): %w", ErrDecode, what, detected.String(), err)
}
