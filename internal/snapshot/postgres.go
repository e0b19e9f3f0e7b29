// Package snapshot provides implementations of the snapshot gateway,
// the pipeline's append-only observation store.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docwatch/docwatch/internal/watch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool used for
// snapshot rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Postgres implements watch.SnapshotGateway on an append-only table.
// Rows are only ever inserted; history is never rewritten.
type Postgres struct {
	pool  pgxPool
	table string
}

// NewPostgres connects a pool and returns the gateway.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := resolveTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// NewPostgresWithPool constructs a gateway from an existing pool
// (primarily for testing).
func NewPostgresWithPool(pool pgxPool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	resolved, err := resolveTable(table)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, table: resolved}, nil
}

func resolveTable(table string) (string, error) {
	if table == "" {
		table = "snapshots"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (g *Postgres) Close() {
	if g == nil || g.pool == nil {
		return
	}
	g.pool.Close()
}

// LoadLatest returns the most recent snapshot for the key, or nil when
// the key has never been observed.
func (g *Postgres) LoadLatest(ctx context.Context, key watch.SnapshotKey) (*watch.Snapshot, error) {
	if g == nil || g.pool == nil {
		return nil, &watch.StorageError{Op: "load", Err: fmt.Errorf("snapshot store is not configured")}
	}
	query := fmt.Sprintf(`
SELECT
	url,
	api_name,
	method_name,
	content_type,
	raw_content,
	text_content,
	structured_data,
	content_hash,
	created_at,
	has_changes
FROM %s
WHERE url = $1 AND api_name = $2 AND method_name = $3
ORDER BY created_at DESC
LIMIT 1`, g.table)

	var snap watch.Snapshot
	row := g.pool.QueryRow(ctx, query, key.URL, key.APIName, key.MethodName)
	err := row.Scan(
		&snap.URL,
		&snap.APIName,
		&snap.MethodName,
		&snap.ContentType,
		&snap.RawContent,
		&snap.TextContent,
		&snap.StructuredData,
		&snap.ContentHash,
		&snap.CreatedAt,
		&snap.HasChanges,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &watch.StorageError{Op: "load", Err: err}
	}
	return &snap, nil
}

// Append inserts one snapshot row.
func (g *Postgres) Append(ctx context.Context, snap watch.Snapshot) error {
	if g == nil || g.pool == nil {
		return &watch.StorageError{Op: "append", Err: fmt.Errorf("snapshot store is not configured")}
	}
	if snap.URL == "" || snap.ContentHash == "" {
		return &watch.StorageError{Op: "append", Err: fmt.Errorf("snapshot url and content hash are required")}
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	url,
	api_name,
	method_name,
	content_type,
	raw_content,
	text_content,
	structured_data,
	content_hash,
	created_at,
	has_changes
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, g.table)

	args := []any{
		snap.URL,
		snap.APIName,
		snap.MethodName,
		snap.ContentType,
		snap.RawContent,
		snap.TextContent,
		snap.StructuredData,
		snap.ContentHash,
		snap.CreatedAt,
		snap.HasChanges,
	}
	if _, err := g.pool.Exec(ctx, query, args...); err != nil {
		return &watch.StorageError{Op: "append", Err: err}
	}
	return nil
}
