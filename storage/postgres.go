package storage

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps each value as a JSON document in a (key, value) table.
// Writes run through crdbpgx.ExecuteTx so they are retried on serialization
// failures, which makes it usable against CockroachDB as well.
type Postgres[T any] struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgres creates the table when it does not exist yet
func NewPostgres[T any](ctx context.Context, pool *pgxpool.Pool, table string) (*Postgres[T], error) {
	p := &Postgres[T]{pool: pool, table: pgx.Identifier{table}.Sanitize()}
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("error creating table %s: %w", p.table, err)
	}
	return p, nil
}

func (p *Postgres[T]) Get(ctx context.Context, key string) (T, error) {
	var value T
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM `+p.table+` WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return value, ErrNotFound
	}
	if err != nil {
		return value, fmt.Errorf("error in QueryRow: %w", err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("error decoding %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}
	return crdbpgx.ExecuteTx(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return p.upsert(ctx, tx, key, data)
	})
}

func (p *Postgres[T]) upsert(ctx context.Context, tx pgx.Tx, key string, data []byte) error {
	_, err := tx.Exec(ctx, `INSERT INTO `+p.table+` (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = now()`, key, string(data))
	if err != nil {
		return fmt.Errorf("error upserting %s: %w", key, err)
	}
	return nil
}

func (p *Postgres[T]) Remove(ctx context.Context, key string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM `+p.table+` WHERE key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("error deleting %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres[T]) KeySet(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key FROM `+p.table+` WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("error in Query: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error in CollectRows: %w", err)
	}
	return keys, nil
}

// Update claims the key with a placeholder row first, so concurrent updates of
// an absent key queue on the row lock and the later ones see exists=true.
// When fn fails the current value is returned with its error.
func (p *Postgres[T]) Update(ctx context.Context, key string, fn func(T, bool) (T, error)) (T, error) {
	var result T
	err := crdbpgx.ExecuteTx(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var current T
		result = current

		tag, err := tx.Exec(ctx, `INSERT INTO `+p.table+` (key, value) VALUES ($1, 'null')
			ON CONFLICT (key) DO NOTHING`, key)
		if err != nil {
			return fmt.Errorf("error claiming %s: %w", key, err)
		}
		exists := tag.RowsAffected() == 0
		if exists {
			var raw []byte
			err = tx.QueryRow(ctx, `SELECT value FROM `+p.table+` WHERE key = $1 FOR UPDATE`, key).Scan(&raw)
			if err != nil {
				return fmt.Errorf("error in QueryRow: %w", err)
			}
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("error decoding %s: %w", key, err)
			}
			result = current
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("error encoding %s: %w", key, err)
		}
		if err := p.upsert(ctx, tx, key, data); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}
