package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core"
	"github.com/fleetgate-io/fleetgate/pkg/log"
	"github.com/fleetgate-io/fleetgate/pkg/options"
)

// schema holds the two logical collections of the gateway plus the
// command intent log: an append-only report history keyed (agent_id, ts)
// for per-agent range scans, and the latest-state table with a uniqueness
// constraint on agent_id.
const schema = `
CREATE TABLE IF NOT EXISTS reports (
	agent_id    TEXT             NOT NULL,
	ts          DOUBLE PRECISION NOT NULL,
	report      JSONB            NOT NULL,
	received_at TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (agent_id, ts)
);

CREATE TABLE IF NOT EXISTS agent_states (
	agent_id    TEXT        PRIMARY KEY,
	report      JSONB       NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
	id        UUID        PRIMARY KEY,
	agent_id  TEXT        NOT NULL,
	command   TEXT        NOT NULL,
	params    JSONB,
	issued_at TIMESTAMPTZ NOT NULL,
	status    TEXT        NOT NULL
);
`

// Store is the Postgres-backed durable store. It implements core.Repository.
type Store struct {
	db *sql.DB
}

var _ core.Repository = (*Store)(nil)

// Open connects to Postgres, verifies connectivity and applies the schema.
// Any failure here aborts gateway startup entirely: running without a
// durable store would silently drop history, so fail fast instead.
func Open(ctx context.Context, opts *options.PostgresOptions) (*Store, error) {
	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("durable store ready")

	return &Store{db: db}, nil
}

// DB exposes the underlying pool for health probes.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Reports() core.ReportLog {
	return &reportLog{db: s.db}
}

func (s *Store) States() core.LatestStateRepository {
	return &stateRepository{db: s.db}
}

func (s *Store) Commands() core.CommandRepository {
	return &commandRepository{db: s.db}
}
