package logsource

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// gzipReadCloser closes both the gzip.Reader and the underlying file it
// wraps, so callers get a single Close like any other io.ReadCloser.
type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.f.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}

// OpenGzip opens path and wraps it in a gzip.Reader, ready for line-by-
// line scanning. Callers that don't know in advance whether a file is
// gzip-compressed should check the extension themselves; this always
// assumes gzip framing, matching spec.md §6's "gzip-compressed event
// stream" input contract.
func OpenGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("logsource: open %s: %w", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logsource: gzip header %s: %w", path, err)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}
