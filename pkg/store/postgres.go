package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores documents in a single table keyed by workspace.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.init(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize document store: %w", err)
	}
	return p, nil
}

func (p *Postgres) init(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS playground_documents (
		key TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (p *Postgres) Read(ctx context.Context, key string) (*Document, error) {
	doc, _, err := p.ReadVersion(ctx, key)
	return doc, err
}

func (p *Postgres) ReadVersion(ctx context.Context, key string) (*Document, int64, error) {
	var body []byte
	var version int64
	err := p.pool.QueryRow(ctx,
		"SELECT body::text, version FROM playground_documents WHERE key = $1", key,
	).Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}

	doc, err := decode(body)
	if err != nil {
		return nil, 0, err
	}
	return doc, version, nil
}

func (p *Postgres) Write(ctx context.Context, key string, doc *Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
	INSERT INTO playground_documents (key, body, version, updated_at) VALUES ($1, $2::jsonb, 1, $3)
	ON CONFLICT (key) DO UPDATE SET
		body = EXCLUDED.body,
		version = playground_documents.version + 1,
		updated_at = EXCLUDED.updated_at`,
		key, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) WriteIfVersion(ctx context.Context, key string, doc *Document, version int64) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	var affected int64
	if version == 0 {
		tag, err := p.pool.Exec(ctx, `
		INSERT INTO playground_documents (key, body, version, updated_at) VALUES ($1, $2::jsonb, 1, $3)
		ON CONFLICT (key) DO NOTHING`,
			key, string(data), time.Now())
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := p.pool.Exec(ctx, `
		UPDATE playground_documents SET body = $2::jsonb, version = version + 1, updated_at = $3
		WHERE key = $1 AND version = $4`,
			key, string(data), time.Now(), version)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		affected = tag.RowsAffected()
	}
	if affected == 0 {
		var current int64
		err := p.pool.QueryRow(ctx, "SELECT version FROM playground_documents WHERE key = $1", key).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return &ConflictError{Key: key, Expected: version, Current: current}
	}
	return nil
}

func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, "SELECT key FROM playground_documents ORDER BY key")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
