// Package utils downloads and caches the remote data files the map needs.
package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sudorandom/netflow-map/pkg/logging"
)

var ErrNotFound = errors.New("file not found on server")

// CacheDir is where downloaded files are kept between runs.
var CacheDir = filepath.Join("data", "cache")

type progressWriter struct {
	io.Writer
	total  uint64
	last   uint64
	label  string
	logger *logging.ComponentLogger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += uint64(n)
	if pw.total-pw.last > 5*1024*1024 { // Log every 5MB
		pw.logger.Info().Str("file", pw.label).Uint64("mb", pw.total/1024/1024).Msg("Downloading")
		pw.last = pw.total
	}
	return n, err
}

// IsURL reports whether location should be fetched over HTTP instead of
// opened from the local filesystem.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// DownloadFile downloads a file from a URL to a local path safely.
func DownloadFile(url, path string) error {
	logger := logging.NewComponentLogger("download")
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing response body")
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	// Temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file", tmpName).Msg("Error removing temp file")
		}
	}()

	pw := &progressWriter{Writer: tmpFile, label: filepath.Base(path), logger: logger}
	if _, err := io.Copy(pw, resp.Body); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// GetCacheFileName returns the local file name for a URL. The label keeps
// files with the same base name from different sources apart.
func GetCacheFileName(url, label string) string {
	fileName := url
	if i := strings.LastIndex(url, "/"); i != -1 {
		fileName = url[i+1:]
	}
	if i := strings.IndexAny(fileName, "?#"); i != -1 {
		fileName = fileName[:i]
	}

	prefix := strings.Trim(label, "[]")
	prefix = strings.ReplaceAll(prefix, " ", "_")
	if prefix != "" {
		fileName = prefix + "_" + fileName
	}
	return fileName
}

// GetCachedReader returns a reader for the given URL. With useCache the file
// is downloaded into CacheDir once and read from disk afterwards.
func GetCachedReader(url string, useCache bool, label string) (io.ReadCloser, error) {
	logger := logging.NewComponentLogger("download")
	if useCache {
		if err := os.MkdirAll(CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		localPath := filepath.Join(CacheDir, GetCacheFileName(url, label))

		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			logger.Info().Str("source", label).Str("url", url).Msg("Downloading")
			if err := DownloadFile(url, localPath); err != nil {
				return nil, err
			}
		} else {
			logger.Debug().Str("source", label).Str("file", localPath).Msg("Using cached file")
		}
		f, err := os.Open(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return f, nil
	}

	logger.Info().Str("source", label).Str("url", url).Msg("Streaming")
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp.Body, nil
}

// Open returns a reader for a local path or, for URLs, the cached download.
func Open(location, label string) (io.ReadCloser, error) {
	if IsURL(location) {
		return GetCachedReader(location, true, label)
	}
	return os.Open(location)
}
