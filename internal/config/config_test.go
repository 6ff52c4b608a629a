package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "listening_addr": "0.0.0.0:8794",
  "metrics_addr": "0.0.0.0:9100",
  "scylladb": {
    "hostnames": ["scylla-1", "scylla-2"],
    "keyspace": "social"
  },
  "postgresql": {
    "host": "pg",
    "port": "5432",
    "username": "social",
    "password": "secret",
    "database": "social",
    "ssl_strategy": "disable"
  },
  "nats": {
    "host": "nats:4222"
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8794", cfg.ListeningAddr)
	assert.Equal(t, []string{"scylla-1", "scylla-2"}, cfg.ScyllaDB.Hostnames)
	assert.Equal(t, "social", cfg.ScyllaDB.Keyspace)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL())

	// Ambient defaults kick in when the file stays silent.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	port, err := cfg.PostgreSQL.PortNumber()
	require.NoError(t, err)
	assert.Equal(t, uint16(5432), port)
	assert.Equal(t, "postgres://social:secret@pg:5432/social?sslmode=disable", cfg.PostgreSQL.ConnString())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "from-env")
	t.Setenv("SCYLLA_HOSTNAMES", "a,b,c")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.PostgreSQL.Password)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.ScyllaDB.Hostnames)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing listener", func(c *Config) { c.ListeningAddr = "" }},
		{"no scylla hosts", func(c *Config) { c.ScyllaDB.Hostnames = nil }},
		{"no keyspace", func(c *Config) { c.ScyllaDB.Keyspace = "" }},
		{"bad port", func(c *Config) { c.PostgreSQL.Port = "70000" }},
		{"non-numeric port", func(c *Config) { c.PostgreSQL.Port = "fivefour" }},
		{"bad ssl strategy", func(c *Config) { c.PostgreSQL.SSLStrategy = "maybe" }},
		{"no nats host", func(c *Config) { c.NATS.Host = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
