// Package config loads kernel configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the kernel configuration. ChainName is the name this chain is
// known by in chain-ref:// references; Owner may assign channels.
type Config struct {
	ChainName            string        `yaml:"chain_name" split_words:"true" validate:"required"`
	Owner                string        `yaml:"owner" split_words:"true" validate:"required"`
	KernelAddress        string        `yaml:"kernel_address" split_words:"true" validate:"required"`
	NamingServiceAddress string        `yaml:"naming_service_address" split_words:"true"`
	TypeRegistryAddress  string        `yaml:"type_registry_address" split_words:"true"`
	PacketTimeout        time.Duration `yaml:"packet_timeout" split_words:"true" validate:"gt=0"`

	// AssetChannels maps each local asset channel to the counterparty's end
	// of it, for denom translation.
	AssetChannels map[string]string `yaml:"asset_channels" split_words:"true"`

	Store   StoreConfig   `yaml:"store" split_words:"true"`
	Log     LogConfig     `yaml:"log" split_words:"true"`
	Metrics MetricsConfig `yaml:"metrics" split_words:"true"`
	GRPC    GRPCConfig    `yaml:"grpc" split_words:"true"`
}

type StoreConfig struct {
	// Backend is a cosmos-db backend name.
	Backend string `yaml:"backend" split_words:"true" validate:"oneof=memdb goleveldb"`
	Dir     string `yaml:"dir" split_words:"true" validate:"required_if=Backend goleveldb"`
}

type LogConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" split_words:"true" validate:"oneof=json console"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" split_words:"true"`
}

type GRPCConfig struct {
	// Endpoint of a node serving wasm queries. Empty means in-memory
	// collaborators.
	Endpoint string `yaml:"endpoint" split_words:"true" validate:"omitempty,hostname_port"`
}

// RemoteCollaborators reports whether collaborator queries go over gRPC.
func (g GRPCConfig) RemoteCollaborators() bool {
	return g.Endpoint != ""
}

// DefaultConfig returns the defaults applied before any file or environment
// values.
func DefaultConfig() *Config {
	return &Config{
		PacketTimeout: time.Hour,
		Store: StoreConfig{
			Backend: "memdb",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

var validate = validator.New()

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
