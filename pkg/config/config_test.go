package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestauk/asf-mission-data-tool/pkg/artifacts"
	"github.com/nestauk/asf-mission-data-tool/pkg/config"
)

var envKeys = []string{
	"ASF_BUCKET", "ASF_LAYER", "ASF_STORAGE_TYPE", "AWS_REGION", "ASF_S3_REGION",
	"ASF_S3_ENDPOINT", "ASF_PREFIX", "DATA_DIR", "ASF_REGISTRY_PATH", "ASF_LEDGER_PATH",
	"ASF_USER_AGENT", "ASF_FETCH_TIMEOUT", "ASF_FETCH_RATE", "LOG_LEVEL", "LOG_FORMAT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "ASF_TELEMETRY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

// TestLoad_Defaults verifies that Load() returns the defaults when no
// environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "asf-mission-data-tool", cfg.Bucket)
	assert.Equal(t, "bronze", cfg.Layer)
	assert.Equal(t, "s3", cfg.StorageType)
	assert.Equal(t, "eu-west-2", cfg.Region)
	assert.Equal(t, "asf_mission_data_tool/config/base.yaml", cfg.RegistryPath)
	assert.Empty(t, cfg.LedgerPath)
	assert.Zero(t, cfg.FetchTimeout)
	assert.False(t, cfg.TelemetryEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASF_BUCKET", "other-bucket")
	t.Setenv("ASF_STORAGE_TYPE", "fs")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("ASF_S3_REGION", "eu-west-1")
	t.Setenv("ASF_FETCH_TIMEOUT", "30s")
	t.Setenv("ASF_FETCH_RATE", "2.5")
	t.Setenv("ASF_TELEMETRY", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "other-bucket", cfg.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.InDelta(t, 2.5, cfg.FetchRate, 1e-9)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoad_BadValues(t *testing.T) {
	for _, key := range []string{"ASF_FETCH_TIMEOUT", "ASF_FETCH_RATE", "ASF_TELEMETRY"} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-value")
			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "asf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_type: fs\ndata_dir: /tmp/asf\nfetch_timeout: 90s\nledger_path: runs.db\n"), 0o600))

	require.NoError(t, config.LoadFile(cfg, path))
	assert.Equal(t, "fs", cfg.StorageType)
	assert.Equal(t, "/tmp/asf", cfg.DataDir)
	assert.Equal(t, 90*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "runs.db", cfg.LedgerPath)
	assert.Equal(t, "asf-mission-data-tool", cfg.Bucket)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := config.Default()

	err := config.LoadFile(cfg, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buckett: typo\n"), 0o600))
	assert.Error(t, config.LoadFile(cfg, path))

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	assert.NoError(t, config.LoadFile(cfg, empty))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown storage": func(c *config.Config) { c.StorageType = "ftp" },
		"no bucket":       func(c *config.Config) { c.Bucket = "" },
		"nested layer":    func(c *config.Config) { c.Layer = "a/b" },
		"no registry":     func(c *config.Config) { c.RegistryPath = "" },
		"negative rate":   func(c *config.Config) { c.FetchRate = -1 },
		"log format":      func(c *config.Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := config.Default()
	cfg.StorageType = "memory"
	cfg.Bucket = ""
	assert.NoError(t, cfg.Validate())
}

func TestStoreConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StorageType = "FS"
	cfg.Prefix = "team/"

	sc := cfg.StoreConfig()
	assert.Equal(t, artifacts.StoreTypeFS, sc.Type)
	assert.Equal(t, "asf-mission-data-tool", sc.Bucket)
	assert.Equal(t, "team/", sc.Prefix)
	assert.Equal(t, "data", sc.DataDir)
}
