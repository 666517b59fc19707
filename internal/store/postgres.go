package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/linklive/internal/shortlink"
)

const uniqueViolation = "23505"

// PostgresRegistry is a PostgreSQL implementation of shortlink.Registry.
// Every operation is bounded by a timeout and fails fast with
// ErrStorageUnavailable while the monitor reports the database down.
type PostgresRegistry struct {
	pool    *pgxpool.Pool
	monitor *Monitor
	timeout time.Duration
}

// NewPostgresRegistry creates a Postgres-backed registry. monitor may be
// nil, in which case no fail-fast check is performed.
func NewPostgresRegistry(pool *pgxpool.Pool, monitor *Monitor, timeout time.Duration) *PostgresRegistry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &PostgresRegistry{
		pool:    pool,
		monitor: monitor,
		timeout: timeout,
	}
}

// EnsureSchema creates the table and the two unique indexes that carry
// the schema-level invariants: one record per code, one per URL.
func (p *PostgresRegistry) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS short_links (
			id UUID PRIMARY KEY,
			original_url TEXT NOT NULL,
			short_code TEXT NOT NULL,
			short_url TEXT NOT NULL,
			clicks BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS short_links_code_idx ON short_links (short_code)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS short_links_url_idx ON short_links (original_url)`,
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}

	return nil
}

func (p *PostgresRegistry) guard(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if p.monitor != nil && !p.monitor.Connected() {
		return nil, nil, shortlink.ErrStorageUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	return ctx, cancel, nil
}

func (p *PostgresRegistry) Create(ctx context.Context, record *shortlink.LinkRecord) error {
	ctx, cancel, err := p.guard(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	record.ID = uuid.NewString()

	query := `
		INSERT INTO short_links (id, original_url, short_code, short_url, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = p.pool.Exec(ctx, query,
		record.ID,
		record.OriginalURL,
		record.ShortCode,
		record.ShortURL,
		record.Clicks,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "short_links_url_idx":
				return fmt.Errorf("%w: %s", shortlink.ErrURLTaken, record.OriginalURL)
			case "short_links_code_idx":
				return fmt.Errorf("%w: %s", shortlink.ErrCodeTaken, record.ShortCode)
			}
		}

		return storageErr(err)
	}

	return nil
}

func (p *PostgresRegistry) GetByCode(ctx context.Context, code string) (*shortlink.LinkRecord, error) {
	return p.getBy(ctx, "short_code", code)
}

func (p *PostgresRegistry) GetByOriginalURL(ctx context.Context, originalURL string) (*shortlink.LinkRecord, error) {
	return p.getBy(ctx, "original_url", originalURL)
}

func (p *PostgresRegistry) getBy(ctx context.Context, column, value string) (*shortlink.LinkRecord, error) {
	ctx, cancel, err := p.guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, original_url, short_code, short_url, clicks, created_at
		FROM short_links
		WHERE %s = $1
	`, column)

	var record shortlink.LinkRecord

	err = p.pool.QueryRow(ctx, query, value).Scan(
		&record.ID,
		&record.OriginalURL,
		&record.ShortCode,
		&record.ShortURL,
		&record.Clicks,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, storageErr(err)
	}

	return &record, nil
}

func (p *PostgresRegistry) List(ctx context.Context) ([]*shortlink.LinkRecord, error) {
	ctx, cancel, err := p.guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := `
		SELECT id, original_url, short_code, short_url, clicks, created_at
		FROM short_links
		ORDER BY created_at DESC, id DESC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var records []*shortlink.LinkRecord

	for rows.Next() {
		var record shortlink.LinkRecord

		err = rows.Scan(
			&record.ID,
			&record.OriginalURL,
			&record.ShortCode,
			&record.ShortURL,
			&record.Clicks,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, storageErr(err)
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}

	return records, nil
}

func (p *PostgresRegistry) Delete(ctx context.Context, id string) (*shortlink.LinkRecord, error) {
	ctx, cancel, err := p.guard(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := `
		DELETE FROM short_links
		WHERE id = $1
		RETURNING id, original_url, short_code, short_url, clicks, created_at
	`

	var record shortlink.LinkRecord

	err = p.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.OriginalURL,
		&record.ShortCode,
		&record.ShortURL,
		&record.Clicks,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortlink.ErrNotFound
		}

		return nil, storageErr(err)
	}

	return &record, nil
}

// IncrementClicks adds one to the counter in a single statement so
// concurrent redirects never lose updates to read-modify-write races.
func (p *PostgresRegistry) IncrementClicks(ctx context.Context, id string) (int64, error) {
	ctx, cancel, err := p.guard(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	query := `
		UPDATE short_links
		SET clicks = clicks + 1
		WHERE id = $1
		RETURNING clicks
	`

	var clicks int64

	err = p.pool.QueryRow(ctx, query, id).Scan(&clicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shortlink.ErrNotFound
		}

		return 0, storageErr(err)
	}

	return clicks, nil
}

// storageErr maps driver and timeout failures to ErrStorageUnavailable
// so callers never see internal error detail.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", shortlink.ErrStorageUnavailable, err)
}

// Compile-time check.
var _ shortlink.Registry = (*PostgresRegistry)(nil)
