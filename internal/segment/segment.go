// Package segment splits a user query into text and image segments.
//
// Image references are written inline with a leading "!":
//
//	!https://example.com/cat.jpg   remote image
//	!photos/cat.png                local file
//	!"my photos/cat.png"           local file with spaces
//
// Local paths that do not point at a regular file stay in the text and produce
// a warning diagnostic instead of an error.
package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mixaill76/auto_ai_vision/internal/imagecontent"
	"github.com/mixaill76/auto_ai_vision/internal/monitoring"
	"github.com/mixaill76/auto_ai_vision/internal/remote"
	"github.com/mixaill76/auto_ai_vision/internal/security"
	"golang.org/x/sync/errgroup"
)

// Segment is either text or an image.
type Segment struct {
	Text  string
	Image *imagecontent.Image
}

func (s Segment) IsImage() bool { return s.Image != nil }

// String renders text as-is and images as a bracketed placeholder.
func (s Segment) String() string {
	if s.Image == nil {
		return s.Text
	}
	return "[image: " + s.Image.String() + "]"
}

// Diagnostic reports an image reference that was kept as text.
type Diagnostic struct {
	// Text is the original matched text, marker and quotes included.
	Text string
	// Path is the filesystem path that was checked.
	Path string
	// Offset is the byte offset of Text in the query.
	Offset int
	Err    error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("image path %q at offset %d ignored: %v", d.Path, d.Offset, d.Err)
}

// Result is the outcome of parsing one query.
type Result struct {
	// ID correlates log records of one Parse call.
	ID          string
	Segments    []Segment
	Diagnostics []Diagnostic
}

// Images returns the image segments in order.
func (r *Result) Images() []*imagecontent.Image {
	var images []*imagecontent.Image
	for _, s := range r.Segments {
		if s.Image != nil {
			images = append(images, s.Image)
		}
	}
	return images
}

// URLResolver turns an image URL into image content.
type URLResolver interface {
	Resolve(ctx context.Context, url string, remoteOnly bool) (*imagecontent.Image, error)
}

type fetcherResolver struct {
	fetcher *remote.Fetcher
}

func (r fetcherResolver) Resolve(ctx context.Context, url string, remoteOnly bool) (*imagecontent.Image, error) {
	return imagecontent.FromURL(ctx, r.fetcher, url, remoteOnly)
}

// Segmenter parses queries. It holds no per-query state, so one Segmenter can
// parse many queries concurrently.
type Segmenter struct {
	remoteOnly bool
	baseDir    string
	resolver   URLResolver
	fetcher    *remote.Fetcher
	logger     *slog.Logger
	metrics    *monitoring.Metrics
}

type Option func(*Segmenter)

// WithRemote selects whether URLs become metadata-only references (true, the
// default) or are downloaded in full (false).
func WithRemote(remoteOnly bool) Option {
	return func(s *Segmenter) { s.remoteOnly = remoteOnly }
}

// WithBaseDir resolves relative image paths against dir.
func WithBaseDir(dir string) Option {
	return func(s *Segmenter) { s.baseDir = dir }
}

// WithFetcher sets the fetcher used for URLs when no custom resolver is configured.
func WithFetcher(f *remote.Fetcher) Option {
	return func(s *Segmenter) { s.fetcher = f }
}

// WithResolver replaces URL resolution entirely.
func WithResolver(r URLResolver) Option {
	return func(s *Segmenter) { s.resolver = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Segmenter) { s.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Segmenter) { s.metrics = m }
}

func New(opts ...Option) *Segmenter {
	s := &Segmenter{remoteOnly: true}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.resolver == nil {
		if s.fetcher == nil {
			s.fetcher = remote.NewFetcher(remote.WithLogger(s.logger), remote.WithMetrics(s.metrics))
		}
		s.resolver = fetcherResolver{fetcher: s.fetcher}
	}
	return s
}

// Parse splits query into segments in source order. URLs are resolved one at a
// time, left to right; a resolution failure aborts the parse. Local paths that
// are missing or not regular files are kept as text and reported in
// Result.Diagnostics.
func (s *Segmenter) Parse(ctx context.Context, query string) (*Result, error) {
	res := &Result{ID: uuid.NewString()}
	var text strings.Builder

	flushText := func() {
		if text.Len() == 0 {
			return
		}
		res.Segments = append(res.Segments, Segment{Text: text.String()})
		s.metrics.RecordSegment("text")
		text.Reset()
	}
	pushImage := func(img *imagecontent.Image) {
		flushText()
		res.Segments = append(res.Segments, Segment{Image: img})
		s.metrics.RecordSegment("image")
	}

	last := 0
	for _, m := range scan(query) {
		text.WriteString(query[last:m.start])
		last = m.end
		literal := query[m.start:m.end]

		switch m.kind {
		case matchURL:
			s.logger.Debug("Resolving image URL",
				"parse_id", res.ID,
				"url", security.MaskURL(m.value),
				"remote", s.remoteOnly,
			)
			img, err := s.resolver.Resolve(ctx, m.value, s.remoteOnly)
			if err != nil {
				return nil, fmt.Errorf("segment: resolving image %s: %w", m.value, err)
			}
			pushImage(img)

		case matchPath, matchQuotedPath:
			path := s.resolvePath(m.value)
			if err := checkRegularFile(path); err != nil {
				diag := Diagnostic{Text: literal, Path: path, Offset: m.start, Err: err}
				res.Diagnostics = append(res.Diagnostics, diag)
				s.metrics.RecordSegment("invalid_path")
				s.logger.Warn("Image path is not a readable file, keeping it as text",
					"parse_id", res.ID,
					"path", path,
					"offset", m.start,
					"error", err,
				)
				text.WriteString(literal)
				continue
			}
			pushImage(imagecontent.FromPath(path))
		}
	}
	text.WriteString(query[last:])
	flushText()

	s.logger.Debug("Query segmented",
		"parse_id", res.ID,
		"segments", len(res.Segments),
		"diagnostics", len(res.Diagnostics),
	)
	return res, nil
}

func (s *Segmenter) resolvePath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	if s.baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(s.baseDir, p)
	}
	return p
}

var errNotRegular = errors.New("not a regular file")

func checkRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errNotRegular
	}
	return nil
}

// ParseBatch parses independent queries concurrently, at most limit at a time
// (no limit when limit <= 0). Results are returned in input order. The first
// error cancels the remaining parses.
func ParseBatch(ctx context.Context, s *Segmenter, queries []string, limit int) ([]*Result, error) {
	results := make([]*Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range queries {
		g.Go(func() error {
			res, err := s.Parse(ctx, q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
