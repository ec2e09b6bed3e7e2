package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/ampkernel/types"
)

const sampleYAML = `
chain_name: andromeda
owner: andr1owner
kernel_address: andr1kernel
packet_timeout: 30m
asset_channels:
  channel-2: channel-40
store:
  backend: goleveldb
  dir: /var/lib/ampkernel
log:
  level: debug
  encoding: console
grpc:
  endpoint: localhost:9090
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := NewLoader().SetEnvPrefix("AMPKERNEL_TEST_READER").LoadFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "andromeda", cfg.ChainName)
	assert.Equal(t, 30*time.Minute, cfg.PacketTimeout)
	assert.Equal(t, "goleveldb", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost:9090", cfg.GRPC.Endpoint)
	assert.True(t, cfg.GRPC.RemoteCollaborators())
	assert.Equal(t, map[string]string{"channel-2": "channel-40"}, cfg.AssetChannels)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_DefaultsAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ampkernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chain_name: andromeda\nowner: andr1owner\nkernel_address: andr1kernel\n"), 0o600))

	t.Setenv("AMPKERNEL_TEST_ENV_CHAIN_NAME", "juno")
	t.Setenv("AMPKERNEL_TEST_ENV_METRICS_ENABLED", "true")
	t.Setenv("AMPKERNEL_TEST_ENV_PACKET_TIMEOUT", "90s")
	t.Setenv("AMPKERNEL_TEST_ENV_ASSET_CHANNELS", "channel-2:channel-40,channel-3:channel-7")

	cfg, err := NewLoader().SetEnvPrefix("AMPKERNEL_TEST_ENV").Load(path)
	require.NoError(t, err)

	assert.Equal(t, "juno", cfg.ChainName)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 90*time.Second, cfg.PacketTimeout)
	assert.Equal(t, "channel-7", cfg.AssetChannels["channel-3"])
	assert.Equal(t, "memdb", cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing chain", "owner: a\nkernel_address: b\n"},
		{"bad backend", "chain_name: c\nowner: a\nkernel_address: b\nstore:\n  backend: rocks\n"},
		{"leveldb without dir", "chain_name: c\nowner: a\nkernel_address: b\nstore:\n  backend: goleveldb\n"},
		{"bad level", "chain_name: c\nowner: a\nkernel_address: b\nlog:\n  level: loud\n"},
		{"unknown key", "chain_name: c\nowner: a\nkernel_address: b\nbogus: 1\n"},
		{"zero timeout", "chain_name: c\nowner: a\nkernel_address: b\npacket_timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().SetEnvPrefix("AMPKERNEL_TEST_INVALID").LoadFromReader(strings.NewReader(tt.yaml))
			assert.True(t, errors.Is(err, types.ErrConfigError), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, types.ErrConfigError))
}
