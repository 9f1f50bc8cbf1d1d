package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gymnexus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	path := writeConfig(t, `
bindAddr: "127.0.0.1"
membershipPort: 9000
databaseUrl: "postgres://u:p@db:5432/gym?sslmode=disable"
channelBackend: memory
consumeWait: 2s
pollInterval: 50ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, uint(9000), cfg.MembershipPort)
	assert.Equal(t, "postgres://u:p@db:5432/gym?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, ChannelBackendMemory, cfg.ChannelBackend)
	assert.Equal(t, 2*time.Second, cfg.ConsumeWait)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	// untouched fields keep their defaults
	assert.Equal(t, defaultConfig.RegistrationPort, cfg.RegistrationPort)
	assert.Equal(t, defaultConfig.ConsumerGroup, cfg.ConsumerGroup)
	assert.Equal(t, "127.0.0.1:9000", cfg.MembershipAddr())
}

func TestLoadConfigEnvironmentWins(t *testing.T) {
	path := writeConfig(t, "membershipPort: 9000\n")
	t.Setenv("GYMNEXUS_MEMBERSHIP_PORT", "9100")
	t.Setenv("GYMNEXUS_DATABASE_URL", "postgres://env")
	t.Setenv("GYMNEXUS_CONSUMER_GROUP", "drill")
	t.Setenv("GYMNEXUS_TRACING", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint(9100), cfg.MembershipPort)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, "drill", cfg.ConsumerGroup)
	assert.True(t, cfg.Tracing)
}

func TestLoadConfigDoesNotMutateDefaults(t *testing.T) {
	path := writeConfig(t, "gatewayPort: 1234\n")
	_, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(8080), Default().GatewayPort)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown backend", content: "channelBackend: kafka\n"},
		{name: "zero consume wait", content: "consumeWait: 0s\n"},
		{name: "negative rate", content: "rateLimit: -1\n"},
		{name: "malformed yaml", content: "membershipPort: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	cfg := Default()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
