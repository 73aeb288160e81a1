package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/trajlab/internal/dynamo"
)

func openCatalog(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			scene TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			integrator TEXT NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			policy TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind_name ON runs(kind, name, created_at DESC);`,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) index(ctx context.Context, m RunMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, name, scene, created_at, seed, steps, integrator, output, policy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, name = excluded.name, scene = excluded.scene,
			created_at = excluded.created_at, seed = excluded.seed, steps = excluded.steps,
			integrator = excluded.integrator, output = excluded.output, policy = excluded.policy`,
		m.ID, string(m.Kind), m.Name, m.Scene, m.Timestamp.UnixNano(), int64(m.Seed), m.Steps,
		m.Integrator, m.Output, m.Policy)
	if err != nil {
		return fmt.Errorf("%w: index run %s: %v", dynamo.ErrIO, m.ID, err)
	}
	return nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind  Kind
	Name  string
	Limit int
}

// List returns catalogued runs, newest first. Metrics are not part of the
// catalog; use Load for the full metadata.
func (s *Store) List(ctx context.Context, f Filter) ([]RunMetadata, error) {
	q := `SELECT id, kind, name, scene, created_at, seed, steps, integrator, output, policy
		FROM runs WHERE (? = '' OR kind = ?) AND (? = '' OR name = ?)
		ORDER BY created_at DESC, id`
	args := []any{string(f.Kind), string(f.Kind), f.Name, f.Name}
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", dynamo.ErrIO, err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			m       RunMetadata
			kind    string
			created int64
			seed    int64
		)
		if err := rows.Scan(&m.ID, &kind, &m.Name, &m.Scene, &created, &seed, &m.Steps,
			&m.Integrator, &m.Output, &m.Policy); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", dynamo.ErrIO, err)
		}
		m.Kind = Kind(kind)
		m.Timestamp = time.Unix(0, created).UTC()
		m.Seed = uint64(seed)
		runs = append(runs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", dynamo.ErrIO, err)
	}
	return runs, nil
}

// Latest returns the newest run of kind for name.
func (s *Store) Latest(ctx context.Context, kind Kind, name string) (string, error) {
	runs, err := s.List(ctx, Filter{Kind: kind, Name: name, Limit: 1})
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no %s run for %q", ErrNotFound, kind, name)
	}
	return runs[0].ID, nil
}
