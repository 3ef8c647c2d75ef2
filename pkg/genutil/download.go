// Package genutil holds the download/cache and dedup-trie infrastructure
// cmd/cidrmap-gen needs to build a CIDR map file offline. None of this
// runs as part of the curvewatch core — the core only ever reads the
// CIDR map file cmd/cidrmap-gen produces (spec.md §6), so anything that
// talks to the network or to disk-backed storage lives here instead.
package genutil

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports a 404 from the remote server.
var ErrNotFound = errors.New("genutil: file not found on server")

type progressWriter struct {
	io.Writer
	total, last uint64
	label       string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 {
		log.Printf("%s: downloaded %d MB", pw.label, pw.total/1024/1024)
		pw.last = pw.total
	}
	return n, err
}

// DownloadFile fetches url into path via a temp file in the same
// directory plus an atomic rename, so a crash mid-download never leaves
// a corrupt file at the final path.
func DownloadFile(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("genutil: bad status fetching %s: %s", url, resp.Status)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	pw := &progressWriter{Writer: tmpFile, label: filepath.Base(path)}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// cacheDirName is the cache directory used by GetCachedReader, relative
// to the generator's working directory.
const cacheDirName = "cidrmap-gen-cache"

func cacheFileName(url, logPrefix string) string {
	parts := strings.Split(url, "/")
	fileName := parts[len(parts)-1]
	sanitized := strings.ReplaceAll(strings.Trim(logPrefix, "[]"), " ", "_")
	if sanitized != "" {
		fileName = sanitized + "_" + fileName
	}
	return fileName
}

// GetCachedReader returns a reader for url, downloading it into a local
// cache directory first if it isn't already there. RIR delegated-stats
// files change rarely, so re-running the generator against a fresh
// process doesn't need to refetch them every time.
func GetCachedReader(url, logPrefix string) (io.ReadCloser, error) {
	if err := os.MkdirAll(cacheDirName, 0o755); err != nil {
		return nil, fmt.Errorf("genutil: create cache dir: %w", err)
	}
	localPath := filepath.Join(cacheDirName, cacheFileName(url, logPrefix))

	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		log.Printf("%s downloading %s", logPrefix, url)
		if err := DownloadFile(url, localPath); err != nil {
			return nil, err
		}
	} else {
		log.Printf("%s using cached file %s", logPrefix, localPath)
	}
	return os.Open(localPath)
}
