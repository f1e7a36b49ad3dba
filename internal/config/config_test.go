package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"AWS_REGION", "AWS_PROFILE", "IDLER_SERVER_ADDR", "IDLER_QUERY_TIMEOUT",
	"IDLER_DELETE_MODE", "IDLER_API_URL", "IDLER_API_TIMEOUT",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "IDLER_LOG_LEVEL", "IDLER_STRICT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	clearEnv(t)
	content := `
[aws]
region = "eu-west-1"
profile = "production"

[server]
addr = ":9000"

[aggregator]
strict = true
query_timeout = "10s"

[delete]
mode = "provider"

[dashboard]
api_url = "http://idler.internal:9000"
timeout = "5s"

[otel]
endpoint = "localhost:4317"
insecure = true
service_name = "idler-test"

[otel.traces]
enabled = true
sample_rate = 1.0

[log]
level = "debug"
`
	path := writeTempConfig(t, "config.toml", content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "production", cfg.AWS.Profile)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.True(t, cfg.Aggregator.Strict)
	assert.Equal(t, 10*time.Second, cfg.Aggregator.QueryTimeout)
	assert.Equal(t, DeleteModeProvider, cfg.Delete.Mode)
	assert.Equal(t, "http://idler.internal:9000", cfg.Dashboard.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Dashboard.Timeout)
	assert.Equal(t, "localhost:4317", cfg.OTEL.Endpoint)
	assert.True(t, cfg.OTEL.Insecure)
	assert.Equal(t, "idler-test", cfg.OTEL.ServiceName)
	assert.True(t, cfg.OTEL.Traces.Enabled)
	assert.Equal(t, 1.0, cfg.OTEL.Traces.SampleRate)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	content := `
aws:
  region: ap-southeast-2
aggregator:
  strict: true
  query_timeout: 2m
delete:
  mode: noop
`
	path := writeTempConfig(t, "config.yaml", content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.AWS.Region)
	assert.True(t, cfg.Aggregator.Strict)
	assert.Equal(t, 2*time.Minute, cfg.Aggregator.QueryTimeout)
	assert.Equal(t, DeleteModeNoop, cfg.Delete.Mode)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "config.toml", `
[aws]
profile = "dev"
`)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Aggregator.Strict)
	assert.Equal(t, 30*time.Second, cfg.Aggregator.QueryTimeout)
	assert.Equal(t, DeleteModeNoop, cfg.Delete.Mode)
	assert.Equal(t, "http://localhost:8080", cfg.Dashboard.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.Timeout)
	assert.Equal(t, "idler", cfg.OTEL.ServiceName)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.NoError(t, cfg.Validate())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.Aggregator.QueryTimeout)
	assert.Equal(t, DeleteModeNoop, cfg.Delete.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("IDLER_STRICT", "true")
	t.Setenv("IDLER_DELETE_MODE", "provider")
	t.Setenv("IDLER_QUERY_TIMEOUT", "45s")

	path := writeTempConfig(t, "config.toml", `
[aws]
region = "eu-west-1"
`)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.True(t, cfg.Aggregator.Strict)
	assert.Equal(t, DeleteModeProvider, cfg.Delete.Mode)
	assert.Equal(t, 45*time.Second, cfg.Aggregator.QueryTimeout)
}

func TestLoad_InvalidStrictEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDLER_STRICT", "maybe")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDLER_STRICT")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	require.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "config.toml", `
[aws
region = "us-east-1"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "config.toml", `
[aggregator]
query_timeout = "soon"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query_timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty region", func(c *Config) { c.AWS.Region = "" }, "region"},
		{"bad delete mode", func(c *Config) { c.Delete.Mode = "purge" }, "delete"},
		{"zero timeout", func(c *Config) { c.Aggregator.QueryTimeout = 0 }, "query_timeout"},
		{"sample rate", func(c *Config) { c.OTEL.Traces.SampleRate = 1.5 }, "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IDLER_DELETE_MODE=provider\n"), 0o600))

	require.NoError(t, os.Unsetenv("IDLER_DELETE_MODE"))
	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("IDLER_DELETE_MODE") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DeleteModeProvider, cfg.Delete.Mode)
}

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
