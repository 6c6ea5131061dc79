package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/timzifer/natsconn"
	"github.com/timzifer/natsconn/config"
	"github.com/timzifer/natsconn/internal/logging"
	"github.com/timzifer/natsconn/telemetry"
)

// Version is set via ldflags.
var Version = "dev"

const runtimeKey = "natsconn.runtime"

type runtime struct {
	cfg       *config.Config
	logger    zerolog.Logger
	collector telemetry.Collector
	factory   *natsconn.Factory
	metrics   *http.Server
	cleanup   func()
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "natsconn",
		Usage:    "resolve NATS connection settings and talk to a NATS server",
		Version:  Version,
		Flags:    globalFlags(),
		Metadata: map[string]interface{}{},
		Commands: []*cli.Command{
			resolveCommand(),
			pingCommand(),
			pubCommand(),
			subCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML, JSON or TOML configuration file",
			EnvVars: []string{"NATSCONN_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "url",
			Aliases: []string{"s"},
			Usage:   "Comma separated server URLs, e.g. nats://user:pass@a:4222,nats://b:4222",
		},
		&cli.BoolFlag{
			Name:  "secure",
			Usage: "Require TLS regardless of the URL scheme",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Connection name reported to the server",
		},
		&cli.StringFlag{
			Name:  "encoder",
			Usage: "Encoder used by encoded connections: json, gob, default, protobuf",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format: json or text",
		},
		&cli.StringFlag{
			Name:  "metrics-listen",
			Usage: "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9100",
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, cleanup, err := logging.SetupWriter(cfg.Logging, c.App.ErrWriter)
	if err != nil {
		return err
	}

	rt := &runtime{cfg: cfg, logger: logger, collector: telemetry.Noop(), cleanup: cleanup}
	if cfg.Telemetry.Enabled {
		reg := prometheus.NewRegistry()
		collector, err := telemetry.NewPrometheusCollector(reg)
		if err != nil {
			cleanup()
			return err
		}
		rt.collector = collector
		srv, err := serveMetrics(cfg.Telemetry.Listen, reg, logger)
		if err != nil {
			cleanup()
			return err
		}
		rt.metrics = srv
	}

	rt.factory = natsconn.NewFactory(
		natsconn.WithLogger(logger),
		natsconn.WithTelemetry(rt.collector),
	)
	c.App.Metadata[runtimeKey] = rt
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("url") {
		cfg.Connection.URL = c.String("url")
	}
	if c.Bool("secure") {
		cfg.Connection.Secure = true
	}
	if c.IsSet("name") {
		cfg.Connection.Name = c.String("name")
	}
	if cfg.Connection.Name == "" {
		cfg.Connection.Name = "natsconn-" + strings.ToLower(ulid.Make().String())
	}
	if c.IsSet("encoder") {
		cfg.Connection.Encoder = c.String("encoder")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	if c.IsSet("metrics-listen") {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Listen = c.String("metrics-listen")
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return srv, nil
}

func teardown(c *cli.Context) error {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, runtimeKey)
	var err error
	if rt.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = rt.metrics.Shutdown(ctx)
		cancel()
	}
	if rt.cleanup != nil {
		rt.cleanup()
	}
	return err
}

func runtimeFrom(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil, fmt.Errorf("natsconn: not initialised")
	}
	return rt, nil
}
