package main

import (
	"testing"

	"github.com/alecthomas/kong"

	"github.com/sudorandom/netflow-map/pkg/config"
)

func TestFlagsOverrideConfig(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	if _, err := parser.Parse([]string{
		"-H", "es.internal", "-p", "9201", "-a", "8.8.8.8",
		"--geoip-db", "city.mmdb", "--width", "1920",
		"--world-geojson", "none", "--metrics-addr", ":9090", "--log-level", "debug",
	}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg := config.Default()
	cli.apply(cfg)

	if cfg.Source.Host != "es.internal" || cfg.Source.Port != 9201 {
		t.Errorf("Unexpected source %+v", cfg.Source)
	}
	if cfg.Geo.LocalAddress != "8.8.8.8" || cfg.Geo.Database != "city.mmdb" {
		t.Errorf("Unexpected geo %+v", cfg.Geo)
	}
	if cfg.Display.Width != 1920 || cfg.Display.Height != config.DefaultHeight {
		t.Errorf("Unexpected display %+v", cfg.Display)
	}
	if cfg.Display.WorldGeoJSON != "none" || cfg.Metrics.Addr != ":9090" || cfg.Log.Level != "debug" {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Overridden config is invalid: %v", err)
	}
}

func TestUnsetFlagsKeepConfig(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	if _, err := parser.Parse(nil); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg := config.Default()
	cfg.Source.Host = "from-file"
	cli.apply(cfg)
	if cfg.Source.Host != "from-file" || cfg.Source.Port != config.DefaultPort {
		t.Errorf("Flags that were not set changed the config: %+v", cfg.Source)
	}
}
