package main

import (
	"context"
	"errors"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"

	"github.com/sudorandom/netflow-map/pkg/arcs"
	"github.com/sudorandom/netflow-map/pkg/config"
	"github.com/sudorandom/netflow-map/pkg/flows"
	"github.com/sudorandom/netflow-map/pkg/geo"
	"github.com/sudorandom/netflow-map/pkg/ingest"
	"github.com/sudorandom/netflow-map/pkg/logging"
	"github.com/sudorandom/netflow-map/pkg/metrics"
	"github.com/sudorandom/netflow-map/pkg/render"
	"github.com/sudorandom/netflow-map/pkg/worldmap"
)

type CLI struct {
	Config       string `short:"c" type:"path" help:"YAML configuration file."`
	Host         string `short:"H" help:"Flow store host."`
	Port         int    `short:"p" help:"Flow store port."`
	Index        string `help:"Flow store index or index pattern."`
	LocalAddress string `short:"a" name:"local-address" help:"Public address used to place private addresses on the map."`
	GeoIPDB      string `name:"geoip-db" help:"GeoLite2-City database path or URL."`
	Width        int    `help:"Canvas width in pixels."`
	Height       int    `help:"Canvas height in pixels."`
	WorldGeoJSON string `name:"world-geojson" help:"Land polygons (path or URL) for the background, or \"none\"."`
	MetricsAddr  string `name:"metrics-addr" help:"Listen address for /metrics and /health."`
	CaptureDir   string `name:"capture-dir" help:"Directory for periodic PNG captures."`
	LogLevel     string `name:"log-level" help:"Log level (debug, info, warn, error)."`
}

// apply overrides the file configuration with the flags that were set.
func (c *CLI) apply(cfg *config.Config) {
	if c.Host != "" {
		cfg.Source.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Source.Port = c.Port
	}
	if c.Index != "" {
		cfg.Source.Index = c.Index
	}
	if c.LocalAddress != "" {
		cfg.Geo.LocalAddress = c.LocalAddress
	}
	if c.GeoIPDB != "" {
		cfg.Geo.Database = c.GeoIPDB
	}
	if c.Width != 0 {
		cfg.Display.Width = c.Width
	}
	if c.Height != 0 {
		cfg.Display.Height = c.Height
	}
	if c.WorldGeoJSON != "" {
		cfg.Display.WorldGeoJSON = c.WorldGeoJSON
	}
	if c.MetricsAddr != "" {
		cfg.Metrics.Addr = c.MetricsAddr
	}
	if c.CaptureDir != "" {
		cfg.Display.CaptureDir = c.CaptureDir
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("netflow-map"),
		kong.Description("Animated world map of network flows."),
		kong.UsageOnError(),
	)

	logging.Setup(cli.LogLevel)
	logger := logging.NewComponentLogger("main")

	cfg, err := config.Load(cli.Config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Setup(cfg.Log.Level)
	logger = logging.NewComponentLogger("main")

	db, err := geo.OpenDatabase(cfg.Geo.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open geoip database")
	}
	defer db.Close()

	local, err := geo.ResolveLocalReference(db, cfg.Geo.LocalAddress, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to resolve local address")
	}

	var resolverOpts []geo.ResolverOption
	if cfg.Geo.CacheDir != "" {
		cache, err := geo.OpenDiskCache(cfg.Geo.CacheDir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", cfg.Geo.CacheDir).Msg("Geo disk cache disabled")
		} else {
			defer cache.Close()
			if n, err := cache.Len(); err == nil {
				logger.Info().Int("entries", n).Str("dir", cfg.Geo.CacheDir).Msg("Opened geo disk cache")
			}
			resolverOpts = append(resolverOpts, geo.WithDiskCache(cache))
		}
	}
	resolver := geo.NewResolver(db, local, resolverOpts...)

	source, err := flows.NewElasticSource(flows.ElasticConfig{
		Scheme:    cfg.Source.Scheme,
		Host:      cfg.Source.Host,
		Port:      cfg.Source.Port,
		Index:     cfg.Source.Index,
		BatchSize: cfg.Source.BatchSize,
		Timeout:   cfg.Source.QueryTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create flow source")
	}

	logger.LogStartup(logging.StartupConfig{
		SourceEndpoint: source.Endpoint(),
		GeoDatabase:    cfg.Geo.Database,
		LocalAddress:   local.Address,
		LocalLabel:     local.Point.Label(),
		Width:          cfg.Display.Width,
		Height:         cfg.Display.Height,
		PollInterval:   cfg.Poll.Interval,
		MetricsAddr:    cfg.Metrics.Addr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(logging.NewComponentLogger("metrics"))
	animator := arcs.NewAnimator(cfg.Display.Width, cfg.Display.Height)
	poller := ingest.NewPoller(source, resolver, animator,
		ingest.WithInterval(cfg.Poll.Interval),
		ingest.WithMaxBackoff(cfg.Poll.MaxBackoff),
		ingest.WithLogger(logging.NewComponentLogger("ingest")),
		ingest.WithMetrics(collector),
	)

	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Flow poller stopped")
		}
	}()

	if cfg.Metrics.Addr != "" {
		server := metrics.NewServer(cfg.Metrics.Addr, collector, func() metrics.Health {
			st, an := poller.Status(), animator.Stats()
			return metrics.Health{
				Watermark: st.Watermark,
				LastPoll:  st.LastPoll,
				LastError: st.LastError,
				LiveArcs:  an.Live,
				Queued:    an.Queued,
				StepSize:  an.Step,
			}
		}, logging.NewComponentLogger("metrics"))
		go func() {
			if err := server.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	game, err := render.NewGame(ctx, animator,
		render.WithBackground(background(cfg, logger)),
		render.WithStatus(poller.Status),
		render.WithMetrics(collector),
		render.WithLogger(logging.NewComponentLogger("render")),
		render.WithCapture(cfg.Display.CaptureDir, cfg.Display.CaptureInterval),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create renderer")
	}

	ebiten.SetWindowSize(cfg.Display.Width, cfg.Display.Height)
	ebiten.SetWindowTitle(cfg.Display.Title)
	ebiten.SetTPS(cfg.Display.TPS)
	if err := ebiten.RunGame(game); err != nil {
		logger.Error().Err(err).Msg("Renderer stopped")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("Shutting down")
}

// background rasterizes the configured land polygons. A missing map is not
// fatal; the arcs are drawn on a blank background instead.
func background(cfg *config.Config, logger *logging.ComponentLogger) image.Image {
	style := worldmap.DefaultStyle()
	w, h := cfg.Display.Width, cfg.Display.Height
	if cfg.Display.WorldGeoJSON == "" || cfg.Display.WorldGeoJSON == "none" {
		return worldmap.Blank(w, h, style)
	}
	img, err := worldmap.Load(cfg.Display.WorldGeoJSON, w, h, style)
	if err != nil {
		logger.Warn().Err(err).Str("source", cfg.Display.WorldGeoJSON).Msg("Drawing without a world map")
		return worldmap.Blank(w, h, style)
	}
	return img
}
