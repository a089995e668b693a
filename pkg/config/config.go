// Package config loads the netflow map configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the netflow map.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Poll    PollConfig    `yaml:"poll"`
	Geo     GeoConfig     `yaml:"geo"`
	Display DisplayConfig `yaml:"display"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig points at the Elasticsearch-compatible flow store.
type SourceConfig struct {
	Scheme       string        `yaml:"scheme"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Index        string        `yaml:"index"`
	BatchSize    int           `yaml:"batch_size"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

type PollConfig struct {
	Interval   time.Duration `yaml:"interval"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

type GeoConfig struct {
	// Database is a path to a GeoLite2-City .mmdb file or an http(s) URL to download it from.
	Database string `yaml:"database"`
	// LocalAddress is a public address or hostname standing in for every
	// private address.
	LocalAddress string `yaml:"local_address"`
	// CacheDir enables the on-disk resolution cache when set.
	CacheDir string `yaml:"cache_dir"`
}

type DisplayConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	TPS    int    `yaml:"tps"`
	Title  string `yaml:"title"`
	// WorldGeoJSON is a path or URL of land polygons. "none" draws no land.
	WorldGeoJSON    string        `yaml:"world_geojson"`
	CaptureDir      string        `yaml:"capture_dir"`
	CaptureInterval time.Duration `yaml:"capture_interval"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics and /health. Empty disables the server.
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	DefaultHost         = "localhost"
	DefaultPort         = 9200
	DefaultBatchSize    = 1000
	DefaultLocalAddress = "193.174.29.55"
	DefaultGeoDatabase  = "GeoLite2-City.mmdb"
	DefaultWidth        = 1280
	DefaultHeight       = 700
	DefaultWorldGeoJSON = "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads the YAML file at path and fills in defaults. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Source.Scheme == "" {
		c.Source.Scheme = "http"
	}
	if c.Source.Host == "" {
		c.Source.Host = DefaultHost
	}
	if c.Source.Port == 0 {
		c.Source.Port = DefaultPort
	}
	if c.Source.BatchSize == 0 {
		c.Source.BatchSize = DefaultBatchSize
	}
	if c.Source.QueryTimeout == 0 {
		c.Source.QueryTimeout = 10 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 250 * time.Millisecond
	}
	if c.Poll.MaxBackoff == 0 {
		c.Poll.MaxBackoff = 60 * time.Second
	}
	if c.Geo.Database == "" {
		c.Geo.Database = DefaultGeoDatabase
	}
	if c.Geo.LocalAddress == "" {
		c.Geo.LocalAddress = DefaultLocalAddress
	}
	if c.Display.Width == 0 {
		c.Display.Width = DefaultWidth
	}
	if c.Display.Height == 0 {
		c.Display.Height = DefaultHeight
	}
	if c.Display.TPS == 0 {
		c.Display.TPS = 60
	}
	if c.Display.WorldGeoJSON == "" {
		c.Display.WorldGeoJSON = DefaultWorldGeoJSON
	}
	if c.Display.Title == "" {
		c.Display.Title = "Netflow Map"
	}
	if c.Display.CaptureInterval == 0 {
		c.Display.CaptureInterval = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Source.Scheme != "http" && c.Source.Scheme != "https" {
		return fmt.Errorf("source.scheme must be http or https, got %q", c.Source.Scheme)
	}
	if c.Source.Host == "" {
		return fmt.Errorf("source.host is required")
	}
	if c.Source.Port <= 0 || c.Source.Port > 65535 {
		return fmt.Errorf("source.port %d is out of range", c.Source.Port)
	}
	if c.Source.BatchSize <= 0 {
		return fmt.Errorf("source.batch_size must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.MaxBackoff < c.Poll.Interval {
		return fmt.Errorf("poll.max_backoff must not be shorter than poll.interval")
	}
	if c.Geo.Database == "" {
		return fmt.Errorf("geo.database is required")
	}
	if strings.TrimSpace(c.Geo.LocalAddress) == "" {
		return fmt.Errorf("geo.local_address is required")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size %dx%d must be positive", c.Display.Width, c.Display.Height)
	}
	if c.Display.TPS <= 0 {
		return fmt.Errorf("display.tps must be positive")
	}
	if c.Display.CaptureDir != "" && c.Display.CaptureInterval <= 0 {
		return fmt.Errorf("display.capture_interval must be positive when capture_dir is set")
	}
	return nil
}
