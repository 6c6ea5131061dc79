// Package config loads connection profiles for the natsconn command from YAML,
// JSON or TOML files with environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/timzifer/natsconn/options"
)

// TLSConfig mirrors options.TLSSettings.
type TLSConfig struct {
	CAFile             string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	CertFile           string `koanf:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile            string `koanf:"key_file" yaml:"key_file,omitempty"`
	ServerName         string `koanf:"server_name" yaml:"server_name,omitempty"`
	InsecureSkipVerify bool   `koanf:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
}

// ConnectionConfig describes how to reach the NATS servers. Zero values keep the
// library defaults.
type ConnectionConfig struct {
	URL           string        `koanf:"url" yaml:"url"`
	Secure        bool          `koanf:"secure" yaml:"secure,omitempty"`
	Name          string        `koanf:"name" yaml:"name,omitempty"`
	Encoder       string        `koanf:"encoder" yaml:"encoder,omitempty"`
	Username      string        `koanf:"username" yaml:"username,omitempty"`
	Password      string        `koanf:"password" yaml:"password,omitempty"`
	Token         string        `koanf:"token" yaml:"token,omitempty"`
	Randomize     bool          `koanf:"randomize" yaml:"randomize,omitempty"`
	NoReconnect   bool          `koanf:"no_reconnect" yaml:"no_reconnect,omitempty"`
	MaxReconnect  *int          `koanf:"max_reconnect" yaml:"max_reconnect,omitempty"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" yaml:"reconnect_wait,omitempty"`
	Timeout       time.Duration `koanf:"timeout" yaml:"timeout,omitempty"`
	PingInterval  time.Duration `koanf:"ping_interval" yaml:"ping_interval,omitempty"`
	MaxPingsOut   int           `koanf:"max_pings_out" yaml:"max_pings_out,omitempty"`
	TLS           TLSConfig     `koanf:"tls" yaml:"tls,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `koanf:"enabled" yaml:"enabled"`
	URL     string            `koanf:"url" yaml:"url"`
	Labels  map[string]string `koanf:"labels" yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `koanf:"level" yaml:"level"`
	Format string     `koanf:"format" yaml:"format,omitempty"`
	Loki   LokiConfig `koanf:"loki" yaml:"loki"`
}

// TelemetryConfig configures the Prometheus endpoint.
type TelemetryConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Listen  string `koanf:"listen" yaml:"listen,omitempty"`
}

// Config is the root configuration structure of the command.
type Config struct {
	Connection ConnectionConfig `koanf:"connection" yaml:"connection"`
	Logging    LoggingConfig    `koanf:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry" yaml:"telemetry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Connection: ConnectionConfig{
			URL:     options.DefaultURL,
			Encoder: options.DefaultEncoder,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Options converts the profile to connection options. The URL is parsed with
// options.Resolve so the same rules apply as for a URL passed in code.
func (c ConnectionConfig) Options() (options.Options, error) {
	base := options.Default()
	if c.Name != "" {
		base.Name = c.Name
	}
	if c.Encoder != "" {
		base.Encoder = strings.ToLower(c.Encoder)
	}
	base.NoRandomize = !c.Randomize
	base.AllowReconnect = !c.NoReconnect
	if c.MaxReconnect != nil {
		base.MaxReconnect = *c.MaxReconnect
	}
	if c.ReconnectWait > 0 {
		base.ReconnectWait = c.ReconnectWait
	}
	if c.Timeout > 0 {
		base.Timeout = c.Timeout
	}
	if c.PingInterval > 0 {
		base.PingInterval = c.PingInterval
	}
	if c.MaxPingsOut > 0 {
		base.MaxPingsOut = c.MaxPingsOut
	}
	base.TLS = options.TLSSettings{
		InsecureSkipVerify: c.TLS.InsecureSkipVerify,
		CAFile:             c.TLS.CAFile,
		CertFile:           c.TLS.CertFile,
		KeyFile:            c.TLS.KeyFile,
		ServerName:         c.TLS.ServerName,
	}

	opts, err := options.Resolve(base, c.URL, c.Secure)
	if err != nil {
		return options.Options{}, err
	}
	switch {
	case c.Token != "":
		opts.Credentials = &options.Credentials{Token: c.Token}
	case c.Username != "":
		opts.Credentials = &options.Credentials{Username: c.Username, Password: c.Password}
	case c.Password != "":
		return options.Options{}, &options.ConfigurationError{
			Input:  "connection.password",
			Reason: "password given without username",
		}
	}
	return opts, nil
}

// Validate checks the logging and telemetry sections. Connection settings are
// validated by Options.
func (c Config) Validate() error {
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}
	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		return fmt.Errorf("config: logging.loki.url is required when loki is enabled")
	}
	if c.Telemetry.Enabled && c.Telemetry.Listen == "" {
		return fmt.Errorf("config: telemetry.listen is required when telemetry is enabled")
	}
	return nil
}
