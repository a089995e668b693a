// Package logging provides component loggers built on zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger provides structured logging for one part of the process.
type ComponentLogger struct {
	logger zerolog.Logger
}

// Setup configures the global logger. An empty level falls back to the
// LOG_LEVEL environment variable, then to info. Output is a console writer
// unless ENVIRONMENT is "production".
func Setup(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(ParseLevel(level))

	if os.Getenv("ENVIRONMENT") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewComponentLogger creates a logger tagged with the component name.
func NewComponentLogger(component string) *ComponentLogger {
	return &ComponentLogger{
		logger: log.With().Str("component", component).Logger(),
	}
}

// New writes to w instead of the global logger.
func New(w io.Writer, component string) *ComponentLogger {
	return &ComponentLogger{
		logger: zerolog.New(w).With().Timestamp().Str("component", component).Logger(),
	}
}

// Nop discards everything.
func Nop() *ComponentLogger {
	return &ComponentLogger{logger: zerolog.Nop()}
}

func (cl *ComponentLogger) Debug() *zerolog.Event { return cl.logger.Debug() }

func (cl *ComponentLogger) Info() *zerolog.Event { return cl.logger.Info() }

func (cl *ComponentLogger) Warn() *zerolog.Event { return cl.logger.Warn() }

func (cl *ComponentLogger) Error() *zerolog.Event { return cl.logger.Error() }

func (cl *ComponentLogger) Fatal() *zerolog.Event { return cl.logger.Fatal() }

// StartupConfig is the subset of configuration worth logging at startup.
type StartupConfig struct {
	SourceEndpoint string
	GeoDatabase    string
	LocalAddress   string
	LocalLabel     string
	Width, Height  int
	PollInterval   time.Duration
	MetricsAddr    string
}

// LogStartup logs the effective configuration.
func (cl *ComponentLogger) LogStartup(cfg StartupConfig) {
	cl.Info().
		Str("source", cfg.SourceEndpoint).
		Str("geoip_db", cfg.GeoDatabase).
		Str("local_address", cfg.LocalAddress).
		Str("local_label", cfg.LocalLabel).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Dur("poll_interval", cfg.PollInterval).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("Starting netflow map")
}

// LogPoll logs the outcome of one poll of the flow source.
func (cl *ComponentLogger) LogPoll(records, arcs, skipped int, watermark int64, took time.Duration) {
	cl.Debug().
		Int("records", records).
		Int("arcs", arcs).
		Int("skipped", skipped).
		Int64("watermark", watermark).
		Dur("took", took).
		Msg("Polled flow source")
}

// PollSummary accumulates poll outcomes between two summary lines.
type PollSummary struct {
	Polls   int
	Errors  int
	Records int
	Arcs    int
	Skipped int
}

// LogPollSummary logs the totals collected over window.
func (cl *ComponentLogger) LogPollSummary(s PollSummary, watermark int64, window time.Duration) {
	cl.Info().
		Int("polls", s.Polls).
		Int("errors", s.Errors).
		Int("records", s.Records).
		Int("arcs", s.Arcs).
		Int("skipped", s.Skipped).
		Int64("watermark", watermark).
		Dur("window", window).
		Msg("Flow poller summary")
}
