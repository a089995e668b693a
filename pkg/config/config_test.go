package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "netflow-config-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if c.Source.Port != 9200 || c.Source.BatchSize != 1000 {
		t.Errorf("Unexpected source defaults %+v", c.Source)
	}
	if c.Poll.Interval != 250*time.Millisecond || c.Poll.MaxBackoff != time.Minute {
		t.Errorf("Unexpected poll defaults %+v", c.Poll)
	}
	if c.Display.Width != 1280 || c.Display.Height != 700 {
		t.Errorf("Unexpected display defaults %+v", c.Display)
	}
	if c.Geo.LocalAddress != DefaultLocalAddress {
		t.Errorf("Unexpected local address %s", c.Geo.LocalAddress)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
source:
  host: es.internal
  port: 9201
  index: netflow-*
  query_timeout: 3s
poll:
  interval: 1s
geo:
  database: /var/lib/GeoLite2-City.mmdb
  cache_dir: /tmp/geo
display:
  width: 1920
  height: 1080
metrics:
  addr: ":9090"
log:
  level: debug
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Loaded config is invalid: %v", err)
	}
	if c.Source.Host != "es.internal" || c.Source.Port != 9201 || c.Source.Index != "netflow-*" {
		t.Errorf("Unexpected source %+v", c.Source)
	}
	if c.Source.QueryTimeout != 3*time.Second || c.Poll.Interval != time.Second {
		t.Errorf("Durations not parsed: %v %v", c.Source.QueryTimeout, c.Poll.Interval)
	}
	if c.Source.BatchSize != DefaultBatchSize || c.Display.TPS != 60 {
		t.Errorf("Defaults not applied: %+v %+v", c.Source, c.Display)
	}
	if c.Metrics.Addr != ":9090" || c.Log.Level != "debug" || c.Geo.CacheDir != "/tmp/geo" {
		t.Errorf("Unexpected config %+v", c)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(os.TempDir(), "does-not-exist", "config.yaml")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
	path := writeConfig(t, "source: [not, a, map]\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Expected a parse error, got %v", err)
	}
	c, err := Load("")
	if err != nil || c.Source.Port != DefaultPort {
		t.Errorf("Load(\"\") = %+v, %v", c, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"scheme", func(c *Config) { c.Source.Scheme = "ftp" }, "source.scheme"},
		{"port", func(c *Config) { c.Source.Port = 70000 }, "source.port"},
		{"batch", func(c *Config) { c.Source.BatchSize = -1 }, "source.batch_size"},
		{"backoff", func(c *Config) { c.Poll.MaxBackoff = time.Millisecond }, "poll.max_backoff"},
		{"local address", func(c *Config) { c.Geo.LocalAddress = " " }, "geo.local_address"},
		{"size", func(c *Config) { c.Display.Width = -5 }, "display size"},
		{"capture", func(c *Config) { c.Display.CaptureDir = "frames"; c.Display.CaptureInterval = -1 }, "capture_interval"},
	}
	for _, tt := range tests {
		c := Default()
		tt.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: Validate() = %v; want error mentioning %q", tt.name, err, tt.want)
		}
	}
}

func TestValidateAcceptsLocalHostname(t *testing.T) {
	c := Default()
	c.Geo.LocalAddress = "gw.example.net"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() with a hostname = %v", err)
	}
}
