package utils

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestGetCacheFileName(t *testing.T) {
	tests := []struct {
		url, label, want string
	}{
		{"https://example.com/data/countries.geojson", "[WORLD]", "WORLD_countries.geojson"},
		{"https://example.com/GeoLite2-City.mmdb?token=x", "[GEOIP]", "GEOIP_GeoLite2-City.mmdb"},
		{"https://example.com/a.json", "", "a.json"},
		{"https://example.com/a.json", "two words", "two_words_a.json"},
	}
	for _, tt := range tests {
		if got := GetCacheFileName(tt.url, tt.label); got != tt.want {
			t.Errorf("GetCacheFileName(%q, %q) = %q; want %q", tt.url, tt.label, got, tt.want)
		}
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("https://example.com/x") || !IsURL("http://example.com/x") {
		t.Errorf("Expected http(s) locations to be URLs")
	}
	if IsURL("data/GeoLite2-City.mmdb") || IsURL("/tmp/x") {
		t.Errorf("Expected paths not to be URLs")
	}
}

func TestGetCachedReader(t *testing.T) {
	dir, err := os.MkdirTemp("", "utils-cache-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	old := CacheDir
	CacheDir = dir
	defer func() { CacheDir = old }()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		hits++
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
	}))
	defer srv.Close()

	for i := 0; i < 2; i++ {
		r, err := Open(srv.URL+"/world.json", "[WORLD]")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		data, _ := io.ReadAll(r)
		_ = r.Close()
		if len(data) == 0 {
			t.Errorf("Expected cached content")
		}
	}
	if hits != 1 {
		t.Errorf("Expected a single download, got %d", hits)
	}
	if _, err := os.Stat(filepath.Join(dir, "WORLD_world.json")); err != nil {
		t.Errorf("Expected cache file: %v", err)
	}

	if _, err := GetCachedReader(srv.URL+"/missing.json", true, "[WORLD]"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := GetCachedReader(srv.URL+"/missing.json", false, "[WORLD]"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound when streaming, got %v", err)
	}
}

func TestOpenLocalFile(t *testing.T) {
	f, err := os.CreateTemp("", "utils-open-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(f.Name()) }()
	_, _ = f.WriteString("local")
	_ = f.Close()

	r, err := Open(f.Name(), "[LOCAL]")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "local" {
		t.Errorf("Unexpected content %q", data)
	}
}
