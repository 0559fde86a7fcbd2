package fetcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

// FileFetcher serves a saved HTML snapshot from disk in place of the network.
// The URL passed to Open is only recorded as the page's source.
type FileFetcher struct {
	fs   afero.Fs
	path string
}

// NewFile creates a fetcher reading path from fs. A nil fs uses the OS filesystem.
func NewFile(fs afero.Fs, path string) *FileFetcher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileFetcher{fs: fs, path: path}
}

// Open reads and decodes the snapshot.
func (f *FileFetcher) Open(_ context.Context, targetURL string, _ Options) (Session, error) {
	file, err := f.fs.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := bufio.NewReader(file)
	enc, name := DetermineEncoding(r)
	b, err := io.ReadAll(transform.NewReader(r, enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	html := string(b)
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPage, f.path)
	}

	logger.Debug("snapshot loaded", "path", f.path, "encoding", name, "size", len(b))
	return NewSnapshotSession(Content{
		URL:         targetURL,
		HTML:        html,
		Title:       pageTitle(html),
		ContentType: "text/html; charset=utf-8",
		FetchedAt:   time.Now(),
	}), nil
}

// Close releases resources.
func (f *FileFetcher) Close() error { return nil }

// Type returns the fetcher type.
func (f *FileFetcher) Type() string { return "file" }

// DetermineEncoding sniffs the charset from the first KiB of r without
// consuming it, defaulting to UTF-8.
func DetermineEncoding(r *bufio.Reader) (encoding.Encoding, string) {
	head, err := r.Peek(1024)
	if err != nil && !errors.Is(err, io.EOF) {
		return unicode.UTF8, "utf-8"
	}
	e, name, _ := charset.DetermineEncoding(head, "text/html")
	return e, name
}
