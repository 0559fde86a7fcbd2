// Package artifact persists debugging artifacts (raw HTML, screenshots)
// produced while scraping. Strategies receive a Sink so tests can observe or
// suppress the side effect.
package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

// Kind selects the artifact's file extension.
type Kind string

const (
	HTML       Kind = "html"
	Screenshot Kind = "png"
)

// Sink stores artifacts. Save returns the location written, or "" when the
// sink discards artifacts.
type Sink interface {
	Save(ctx context.Context, kind Kind, name string, data []byte) (string, error)
}

// Nop discards every artifact.
type Nop struct{}

// Save implements Sink.
func (Nop) Save(context.Context, Kind, string, []byte) (string, error) { return "", nil }

// FileSink writes artifacts into a directory on an afero filesystem.
type FileSink struct {
	fs  afero.Fs
	dir string
	now func() time.Time

	mu   sync.Mutex
	seen map[string]int
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithFs overrides the filesystem (default: the OS filesystem).
func WithFs(fs afero.Fs) Option {
	return func(s *FileSink) { s.fs = fs }
}

// WithClock overrides the time source used in file names.
func WithClock(now func() time.Time) Option {
	return func(s *FileSink) { s.now = now }
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir string, opts ...Option) *FileSink {
	s := &FileSink{
		fs:   afero.NewOsFs(),
		dir:  dir,
		now:  time.Now,
		seen: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements Sink.
func (s *FileSink) Save(_ context.Context, kind Kind, name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(s.dir, s.fileName(kind, name))
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	logger.Debug("artifact saved", "path", path, "kind", string(kind), "size", humanize.Bytes(uint64(len(data))))
	return path, nil
}

func (s *FileSink) fileName(kind Kind, name string) string {
	base := fmt.Sprintf("%s-%s", Slug(name), s.now().UTC().Format("20060102T150405Z"))

	s.mu.Lock()
	n := s.seen[base+string(kind)]
	s.seen[base+string(kind)] = n + 1
	s.mu.Unlock()

	if n > 0 {
		base = fmt.Sprintf("%s-%d", base, n)
	}
	return base + "." + string(kind)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases name and replaces runs of other characters with dashes.
func Slug(name string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "page"
	}
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	return s
}
