// Package remote fetches images over HTTP, either downloading the whole body or
// sniffing just enough of it to learn the pixel dimensions.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mixaill76/auto_ai_vision/internal/httputil"
	"github.com/mixaill76/auto_ai_vision/internal/imagemeta"
	"github.com/mixaill76/auto_ai_vision/internal/monitoring"
	"github.com/mixaill76/auto_ai_vision/internal/security"
)

const (
	DefaultDownloadChunkSize = 4096
	DefaultSniffChunkSize    = 256
	DefaultMaxDownloadBytes  = 20 * 1024 * 1024
)

var (
	// ErrImageFormat is returned when the response does not declare an image/* content type.
	ErrImageFormat = errors.New("remote: not an image")
	// ErrNetwork wraps transport failures and unsuccessful HTTP statuses.
	ErrNetwork = errors.New("remote: network error")
	// ErrTooLarge is returned, together with ErrNetwork, when a download exceeds the size limit.
	ErrTooLarge = errors.New("remote: image too large")
)

// Metadata describes a remote image without its pixel data.
type Metadata struct {
	URL    string
	Width  int
	Height int
	MIME   string
	// Resolved is false when the whole body was read without finding a usable header.
	Resolved bool
	// BytesRead counts body bytes consumed to produce this result.
	BytesRead int64
}

// Fetcher performs image GETs. It holds no per-call state and is safe for concurrent use.
type Fetcher struct {
	httpClient    *http.Client
	client        *resty.Client
	userAgent     string
	downloadChunk int
	sniffChunk    int
	maxDownload   int64
	maxHeader     int
	cache         *MetadataCache
	metrics       *monitoring.Metrics
	logger        *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client built from httputil defaults.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithChunkSizes overrides the read sizes of full downloads and sniffs.
func WithChunkSizes(download, sniff int) Option {
	return func(f *Fetcher) {
		if download > 0 {
			f.downloadChunk = download
		}
		if sniff > 0 {
			f.sniffChunk = sniff
		}
	}
}

// WithMaxDownloadBytes limits the size of full downloads.
func WithMaxDownloadBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxDownload = n
		}
	}
}

// WithMaxHeaderBytes limits how much of a body a sniff buffers while looking for a header.
func WithMaxHeaderBytes(n int) Option {
	return func(f *Fetcher) { f.maxHeader = n }
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithCache enables caching of resolved sniff results.
func WithCache(c *MetadataCache) Option {
	return func(f *Fetcher) { f.cache = c }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with the reference chunk sizes (4096 bytes for
// downloads, 256 bytes for sniffs).
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		downloadChunk: DefaultDownloadChunkSize,
		sniffChunk:    DefaultSniffChunkSize,
		maxDownload:   DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = httputil.NewHTTPClient(httputil.DefaultHTTPClientConfig())
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	f.client = resty.NewWithClient(f.httpClient).SetDebug(false)
	if f.userAgent != "" {
		f.client.SetHeader("User-Agent", f.userAgent)
	}
	return f
}

// open issues the GET and validates the declared content type before any body byte is read.
// On success the caller owns the returned body and must close it.
func (f *Fetcher) open(ctx context.Context, url string) (io.ReadCloser, string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if resp != nil {
			closeBody(resp.RawBody(), f.logger)
		}
		return nil, "", fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, err)
	}

	body := resp.RawBody()
	declared := resp.Header().Get("Content-Type")
	mimeType := mediaType(declared)
	if !strings.HasPrefix(mimeType, "image/") {
		closeBody(body, f.logger)
		return nil, "", fmt.Errorf("%w: expected an image/* MIME type from %s, got %q", ErrImageFormat, url, declared)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		closeBody(body, f.logger)
		return nil, "", fmt.Errorf("%w: GET %s returned status %d", ErrNetwork, url, resp.StatusCode())
	}

	return body, mimeType, nil
}

// Download reads the whole body of url in fixed-size chunks and returns it with
// the declared MIME type.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, string, error) {
	start := time.Now()
	f.logger.Debug("Downloading image", "url", security.MaskURL(url))

	body, mimeType, err := f.open(ctx, url)
	if err != nil {
		f.metrics.RecordFetch(monitoring.ModeDownload, outcomeOf(err), 0, time.Since(start))
		return nil, "", err
	}
	defer closeBody(body, f.logger)

	var buf bytes.Buffer
	chunk := make([]byte, f.downloadChunk)
	for {
		n, readErr := body.Read(chunk)
		buf.Write(chunk[:n])
		if int64(buf.Len()) > f.maxDownload {
			err = fmt.Errorf("%w: %w: %s exceeds %d bytes", ErrNetwork, ErrTooLarge, url, f.maxDownload)
			break
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err = fmt.Errorf("%w: reading %s: %w", ErrNetwork, url, readErr)
			break
		}
	}

	read := int64(buf.Len())
	if err != nil {
		f.metrics.RecordFetch(monitoring.ModeDownload, outcomeOf(err), read, time.Since(start))
		return nil, "", err
	}

	f.metrics.RecordFetch(monitoring.ModeDownload, "ok", read, time.Since(start))
	f.logger.Debug("Image downloaded", "url", security.MaskURL(url), "bytes", read, "mime", mimeType)
	return buf.Bytes(), mimeType, nil
}

// Sniff reads url in small chunks until the image header reveals the pixel
// dimensions, then closes the connection without reading the rest of the body.
// If the body ends (or the container is not recognized) first, the returned
// Metadata has Resolved set to false and no error.
func (f *Fetcher) Sniff(ctx context.Context, url string) (*Metadata, error) {
	if meta, ok := f.cache.Get(url); ok {
		f.metrics.RecordCacheLookup(true)
		return &meta, nil
	} else if f.cache != nil {
		f.metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	body, mimeType, err := f.open(ctx, url)
	if err != nil {
		f.metrics.RecordFetch(monitoring.ModeSniff, outcomeOf(err), 0, time.Since(start))
		return nil, err
	}
	defer closeBody(body, f.logger)

	meta := &Metadata{URL: url, MIME: mimeType}
	parser := imagemeta.NewParser(f.maxHeader)
	chunk := make([]byte, f.sniffChunk)
	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			meta.BytesRead += int64(n)
			if parser.Feed(chunk[:n]) {
				meta.Width, meta.Height = parser.Size()
				meta.Resolved = true
				break
			}
			if parser.Failed() {
				break
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err = fmt.Errorf("%w: reading %s: %w", ErrNetwork, url, readErr)
			f.metrics.RecordFetch(monitoring.ModeSniff, outcomeOf(err), meta.BytesRead, time.Since(start))
			return nil, err
		}
	}

	outcome := "resolved"
	if !meta.Resolved {
		outcome = "unresolved"
		f.logger.Debug("Image dimensions not resolved", "url", security.MaskURL(url), "bytes_read", meta.BytesRead)
	} else {
		f.logger.Debug("Image sniffed",
			"url", security.MaskURL(url),
			"width", meta.Width,
			"height", meta.Height,
			"mime", meta.MIME,
			"bytes_read", meta.BytesRead,
		)
	}
	f.metrics.RecordFetch(monitoring.ModeSniff, outcome, meta.BytesRead, time.Since(start))
	f.cache.Set(url, *meta)
	return meta, nil
}

// mediaType lower-cases a Content-Type header value and strips its parameters.
func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt, _, _ = strings.Cut(header, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrImageFormat):
		return "image_format_error"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	default:
		return "network_error"
	}
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil {
		logger.Debug("Failed to close response body", "error", err)
	}
}
