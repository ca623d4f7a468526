package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx used by PostgresStore.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS sheet_jobs (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	name        TEXT NOT NULL,
	rows        INTEGER NOT NULL DEFAULT 0,
	columns     INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error       TEXT,
	client_ip   TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE sheet_jobs ADD COLUMN IF NOT EXISTS client_ip TEXT;
ALTER TABLE sheet_jobs ADD COLUMN IF NOT EXISTS user_agent TEXT;
CREATE INDEX IF NOT EXISTS sheet_jobs_created_at_idx ON sheet_jobs (created_at DESC);
`

// PostgresStore records jobs in the sheet_jobs table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore returns a store backed by db.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the sheet_jobs table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create sheet_jobs: %w", err)
	}
	return nil
}

// Record inserts job.
func (p *PostgresStore) Record(ctx context.Context, job Job) error {
	errText := pgtype.Text{String: job.Error, Valid: job.Error != ""}
	ip := pgtype.Text{String: job.ClientIP, Valid: job.ClientIP != ""}
	ua := pgtype.Text{String: job.UserAgent, Valid: job.UserAgent != ""}
	created := job.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO sheet_jobs (id, kind, name, rows, columns, duration_ms, error, client_ip, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, string(job.Kind), job.Name, job.Rows, job.Columns,
		job.Duration.Milliseconds(), errText, ip, ua, created,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// Recent returns up to limit jobs, newest first.
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.db.Query(ctx,
		`SELECT id, kind, name, rows, columns, duration_ms, error, client_ip, user_agent, created_at
		 FROM sheet_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, limit)
	for rows.Next() {
		var (
			job        Job
			kind       string
			durationMS int64
			errText    pgtype.Text
			ip, ua     pgtype.Text
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&job.ID, &kind, &job.Name, &job.Rows, &job.Columns,
			&durationMS, &errText, &ip, &ua, &createdAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Kind = Kind(kind)
		job.Duration = time.Duration(durationMS) * time.Millisecond
		job.Error = errText.String
		job.ClientIP = ip.String
		job.UserAgent = ua.String
		job.CreatedAt = createdAt.Time
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Prune deletes jobs created before the cutoff.
func (p *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM sheet_jobs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
