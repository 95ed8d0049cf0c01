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

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// No config file at all: the defaults must produce a runnable in-memory
	// setup.
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err, "explicit missing file is an error")

	cfg = &Config{}
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Vault.Type)
	assert.Equal(t, "memory", cfg.Content.Type)
	assert.Equal(t, 24*time.Hour, cfg.GC.Interval)
	assert.Equal(t, 1000, cfg.GC.BatchSize)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
server:
  listen_address: ":9090"
  max_snapshot_bytes: 1048576
vault:
  type: badger
  badger:
    path: /var/lib/filevault/index
content:
  type: filesystem
  filesystem:
    path: /var/lib/filevault/blobs
gc:
  enabled: true
  interval: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, int64(1048576), cfg.Server.MaxSnapshotBytes)
	assert.Equal(t, "badger", cfg.Vault.Type)
	assert.Equal(t, "/var/lib/filevault/index", cfg.Vault.Badger["path"])
	assert.Equal(t, "filesystem", cfg.Content.Type)
	assert.True(t, cfg.GC.Enabled)
	assert.Equal(t, time.Hour, cfg.GC.Interval)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"bad vault type", func(c *Config) { c.Vault.Type = "postgres" }},
		{"bad content type", func(c *Config) { c.Content.Type = "tape" }},
		{"badger without path", func(c *Config) { c.Vault.Type = "badger"; c.Content.Type = "filesystem"; c.Content.Filesystem["path"] = "/tmp/blobs" }},
		{"filesystem without path", func(c *Config) { c.Content.Type = "filesystem" }},
		{"persistent index over ephemeral blobs", func(c *Config) {
			c.Vault.Type = "badger"
			c.Vault.Badger["path"] = "/tmp/index"
			c.Content.Type = "memory"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("FILEVAULT_LOGGING_LEVEL", "ERROR")

	path := writeConfigFile(t, "logging:\n  level: debug\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ERROR", cfg.Logging.Level, "environment beats the file")
}

func TestCreateVaultStore(t *testing.T) {
	ctx := context.Background()

	memStore, err := CreateVaultStore(ctx, &VaultConfig{Type: "memory"})
	require.NoError(t, err)
	require.NoError(t, memStore.Close())

	badgerStore, err := CreateVaultStore(ctx, &VaultConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	require.NoError(t, err)
	require.NoError(t, badgerStore.Close())

	_, err = CreateVaultStore(ctx, &VaultConfig{Type: "postgres"})
	assert.Error(t, err)

	_, err = CreateVaultStore(ctx, &VaultConfig{Type: "badger"})
	assert.Error(t, err, "badger needs a path")
}

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	_, err := CreateContentStore(ctx, &ContentConfig{Type: "memory"})
	require.NoError(t, err)

	_, err = CreateContentStore(ctx, &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir()},
	})
	require.NoError(t, err)

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "filesystem"})
	assert.Error(t, err, "filesystem needs a path")

	_, err = CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{}})
	assert.Error(t, err, "s3 needs bucket and region")
}
