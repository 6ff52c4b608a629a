// Package server owns the backend connections and the gRPC implementation
// of the SocialNetwork service.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/config"
)

// The bus gets a short connect timeout so a dead broker fails startup fast.
// Queries and publishes carry no intrinsic timeout; callers wrap them.
const natsConnectTimeout = 3 * time.Second

// Connections holds the three backend handles. Dialed once at startup and
// shared; all three are safe for concurrent use.
type Connections struct {
	Pool    *pgxpool.Pool
	Session *gocql.Session
	NATS    *nats.Conn
}

// Dial connects to PostgreSQL, ScyllaDB, and NATS. On any failure the
// already-open connections are closed before returning.
func Dial(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Connections, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgreSQL.ConnString())
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	log.Info().Str("host", cfg.PostgreSQL.Host).Msg("postgres connected")

	cluster := gocql.NewCluster(cfg.ScyllaDB.Hostnames...)
	cluster.Keyspace = cfg.ScyllaDB.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("scylla: %w", err)
	}
	log.Info().Strs("hosts", cfg.ScyllaDB.Hostnames).Str("keyspace", cfg.ScyllaDB.Keyspace).Msg("scylla connected")

	nc, err := nats.Connect(cfg.NATS.URL(),
		nats.Name("social-server"),
		nats.Timeout(natsConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info().Str("url", conn.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		session.Close()
		pool.Close()
		return nil, fmt.Errorf("nats: %w", err)
	}
	log.Info().Str("url", cfg.NATS.URL()).Msg("nats connected")

	return &Connections{Pool: pool, Session: session, NATS: nc}, nil
}

// Close tears the connections down in reverse dial order.
func (c *Connections) Close() {
	if c.NATS != nil {
		c.NATS.Close()
	}
	if c.Session != nil {
		c.Session.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
