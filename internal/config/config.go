// Package config loads the server configuration from a JSON file, with
// environment variables overriding individual fields so secrets stay out of
// the file. Priority: ENV vars > config file > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	// ListeningAddr is the host:port the RPC listener binds.
	ListeningAddr string `json:"listening_addr" env:"SN_LISTENING_ADDR"`
	// MetricsAddr is the host:port of the Prometheus side listener. Empty
	// disables it.
	MetricsAddr string `json:"metrics_addr" env:"SN_METRICS_ADDR"`

	LogLevel  string `json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"LOG_FORMAT"`

	ScyllaDB   Scylla   `json:"scylladb"`
	PostgreSQL Postgres `json:"postgresql"`
	NATS       NATS     `json:"nats"`
}

// Scylla configures the column store connection.
type Scylla struct {
	Hostnames []string `json:"hostnames" env:"SCYLLA_HOSTNAMES" envSeparator:","`
	Keyspace  string   `json:"keyspace" env:"SCYLLA_KEYSPACE"`
}

// Postgres configures the relational store connection. Port is kept as a
// string because the file format carries it quoted; Validate checks it fits
// a port number.
type Postgres struct {
	Host        string `json:"host" env:"POSTGRES_HOST"`
	Port        string `json:"port" env:"POSTGRES_PORT"`
	Username    string `json:"username" env:"POSTGRES_USER"`
	Password    string `json:"password" env:"POSTGRES_PASSWORD"`
	Database    string `json:"database" env:"POSTGRES_DB"`
	SSLStrategy string `json:"ssl_strategy" env:"POSTGRES_SSL"`
}

// NATS configures the bus connection.
type NATS struct {
	Host string `json:"host" env:"NATS_HOST"`
}

var sslStrategies = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Load reads the config file at path, applies .env and environment
// overrides, fills defaults, and validates.
func Load(path string) (*Config, error) {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.PostgreSQL.SSLStrategy == "" {
		c.PostgreSQL.SSLStrategy = "prefer"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListeningAddr == "" {
		return fmt.Errorf("listening_addr is required")
	}
	if len(c.ScyllaDB.Hostnames) == 0 {
		return fmt.Errorf("scylladb.hostnames must not be empty")
	}
	if c.ScyllaDB.Keyspace == "" {
		return fmt.Errorf("scylladb.keyspace is required")
	}
	if c.PostgreSQL.Host == "" {
		return fmt.Errorf("postgresql.host is required")
	}
	if _, err := c.PostgreSQL.PortNumber(); err != nil {
		return err
	}
	if c.PostgreSQL.Username == "" {
		return fmt.Errorf("postgresql.username is required")
	}
	if c.PostgreSQL.Database == "" {
		return fmt.Errorf("postgresql.database is required")
	}
	if !sslStrategies[c.PostgreSQL.SSLStrategy] {
		return fmt.Errorf("postgresql.ssl_strategy must be one of: disable, allow, prefer, require, verify-ca, verify-full (got: %s)", c.PostgreSQL.SSLStrategy)
	}
	if c.NATS.Host == "" {
		return fmt.Errorf("nats.host is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: json, pretty (got: %s)", c.LogFormat)
	}
	return nil
}

// PortNumber returns the PostgreSQL port as a number.
func (p Postgres) PortNumber() (uint16, error) {
	n, err := strconv.ParseUint(p.Port, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("postgresql.port must be 1-65535 (got: %q)", p.Port)
	}
	return uint16(n), nil
}

// ConnString renders the pgx connection URL.
func (p Postgres) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	q := url.Values{}
	q.Set("sslmode", p.SSLStrategy)
	u.RawQuery = q.Encode()
	return u.String()
}

// URL renders the NATS server URL.
func (n NATS) URL() string {
	return "nats://" + n.Host
}
