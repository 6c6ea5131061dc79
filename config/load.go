package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix of environment overrides. Nested keys are
// separated by a double underscore, e.g. NATSCONN_CONNECTION__URL.
const DefaultEnvPrefix = "NATSCONN_"

type loader struct {
	envPrefix string
}

// LoaderOption customises Load.
type LoaderOption func(*loader)

// WithEnvPrefix changes the environment variable prefix. An empty prefix
// disables environment overrides.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// Load reads the configuration file at path over Default and applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string, opts ...LoaderOption) (*Config, error) {
	l := loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&l)
	}

	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		prefix := l.envPrefix
		transform := func(s string) string {
			s = strings.TrimPrefix(s, prefix)
			s = strings.ToLower(s)
			return strings.ReplaceAll(s, "__", ".")
		}
		if err := k.Load(env.Provider(prefix, ".", transform), nil); err != nil {
			return nil, fmt.Errorf("config: load env: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return yaml.Parser(), nil
	case ".toml":
		return TOMLParser(), nil
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
}
