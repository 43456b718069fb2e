package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// Postgres stores one JSONB row per session. Schema:
//
//	CREATE TABLE IF NOT EXISTS honeypot_sessions (
//	    id         text PRIMARY KEY,
//	    state      jsonb NOT NULL,
//	    updated_at timestamptz NOT NULL DEFAULT now()
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS honeypot_sessions (
			id         text PRIMARY KEY,
			state      jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) LoadAll(ctx context.Context) (map[string]*session.State, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, state FROM honeypot_sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make(map[string]*session.State)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		var s session.State
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse session %s: %w", id, err)
		}
		sessions[id] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, nil
}

func (p *Postgres) SaveAll(ctx context.Context, sessions map[string]*session.State) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for id, s := range sessions {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session %s: %w", id, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO honeypot_sessions (id, state, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (id) DO UPDATE SET state = $2, updated_at = now()`,
			id, raw,
		)
		if err != nil {
			return fmt.Errorf("upsert session %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
