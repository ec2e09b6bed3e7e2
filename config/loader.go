package config

import (
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/ampkernel/types"
)

// DefaultEnvPrefix prefixes every environment override, e.g.
// AMPKERNEL_STORE_BACKEND.
const DefaultEnvPrefix = "AMPKERNEL"

// Loader handles configuration loading from YAML and the environment
type Loader struct {
	envPrefix string
}

func NewLoader() *Loader {
	return &Loader{envPrefix: DefaultEnvPrefix}
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load reads filename on top of the defaults, applies environment overrides
// and validates the result. An empty filename skips the file.
func (l *Loader) Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, types.ConfigError(fmt.Sprintf("failed to open config file %s", filename), err)
		}
		defer f.Close()
		if err := decodeYAML(f, cfg); err != nil {
			return nil, types.ConfigError(fmt.Sprintf("failed to parse config file %s", filename), err)
		}
	}

	return l.finish(cfg)
}

// LoadFromReader is Load for YAML held in r.
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeYAML(r, cfg); err != nil {
		return nil, types.ConfigError("failed to parse config", err)
	}
	return l.finish(cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(l.envPrefix, cfg); err != nil {
		return nil, types.ConfigError("failed to load config from environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.ConfigError("configuration validation failed", err)
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}
