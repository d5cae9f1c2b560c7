package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
	"github.com/cognicore/itemizer/pkg/itemizer/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS alphabets (
	name TEXT PRIMARY KEY,
	first_code INTEGER NOT NULL DEFAULT 0,
	size INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alphabet_items (
	alphabet TEXT NOT NULL,
	pos INTEGER NOT NULL,
	item TEXT NOT NULL,
	count INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	PRIMARY KEY(alphabet, pos),
	UNIQUE(alphabet, item),
	FOREIGN KEY(alphabet) REFERENCES alphabets(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input TEXT,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	lines INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	stages TEXT
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveAlphabet replaces the alphabet stored under name.
func (s *sqliteStore) SaveAlphabet(ctx context.Context, name string, a store.Alphabet) error {
	if len(a.Items) != len(a.Counts) || len(a.Order) != len(a.Items) {
		return fmt.Errorf("%w: alphabet %s has mismatched parts", internalerr.ErrFormat, name)
	}
	rank := make(map[string]int, len(a.Order))
	for i, item := range a.Order {
		rank[item] = i
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alphabet_items WHERE alphabet = ?`, name); err != nil {
		return err
	}

	const upsert = `
INSERT INTO alphabets (name, first_code, size, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	first_code=excluded.first_code,
	size=excluded.size,
	updated_at=excluded.updated_at;
`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, upsert, name, a.First, len(a.Items), now); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO alphabet_items (alphabet, pos, item, count, rank) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range a.Items {
		r, ok := rank[item]
		if !ok {
			return fmt.Errorf("%w: alphabet %s: item %q has no rank", internalerr.ErrFormat, name, item)
		}
		if _, err := stmt.ExecContext(ctx, name, i, item, a.Counts[i], r); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadAlphabet returns the alphabet stored under name.
func (s *sqliteStore) LoadAlphabet(ctx context.Context, name string) (store.Alphabet, error) {
	var out store.Alphabet
	var size int
	err := s.db.QueryRowContext(ctx, `SELECT first_code, size FROM alphabets WHERE name = ?`, name).Scan(&out.First, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Alphabet{}, fmt.Errorf("alphabet %s: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Alphabet{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT item, count, rank FROM alphabet_items WHERE alphabet = ? ORDER BY pos`, name)
	if err != nil {
		return store.Alphabet{}, err
	}
	defer rows.Close()

	out.Items = make([]string, 0, size)
	out.Counts = make([]int64, 0, size)
	out.Order = make([]string, size)
	for rows.Next() {
		var (
			item  string
			count int64
			rank  int
		)
		if err := rows.Scan(&item, &count, &rank); err != nil {
			return store.Alphabet{}, err
		}
		if rank < 0 || rank >= size {
			return store.Alphabet{}, fmt.Errorf("%w: alphabet %s: rank %d out of range", internalerr.ErrFormat, name, rank)
		}
		out.Items = append(out.Items, item)
		out.Counts = append(out.Counts, count)
		out.Order[rank] = item
	}
	if err := rows.Err(); err != nil {
		return store.Alphabet{}, err
	}
	if len(out.Items) != size {
		return store.Alphabet{}, fmt.Errorf("%w: alphabet %s: expected %d items, found %d",
			internalerr.ErrFormat, name, size, len(out.Items))
	}
	return out, nil
}

// ListAlphabets returns every stored alphabet, by name.
func (s *sqliteStore) ListAlphabets(ctx context.Context) ([]store.AlphabetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, size, first_code, updated_at FROM alphabets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.AlphabetInfo
	for rows.Next() {
		var info store.AlphabetInfo
		var updated string
		if err := rows.Scan(&info.Name, &info.Size, &info.First, &updated); err != nil {
			return nil, err
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteAlphabet removes an alphabet and its items.
func (s *sqliteStore) DeleteAlphabet(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alphabets WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alphabet %s: %w", name, internalerr.ErrNotFound)
	}
	return nil
}

// StartRun records a new run.
func (s *sqliteStore) StartRun(ctx context.Context, r store.Run) error {
	stages, err := encodeStages(r.Stages)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input, status, started_at, lines, stages) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Input, r.Status, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Lines, stages,
	)
	return err
}

// FinishRun stores the outcome of a run started with StartRun.
func (s *sqliteStore) FinishRun(ctx context.Context, r store.Run) error {
	stages, err := encodeStages(r.Stages)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, lines = ?, error = ?, stages = ? WHERE id = ?`,
		r.Status, r.FinishedAt.UTC().Format(time.RFC3339Nano), r.Lines, r.Error, stages, r.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrNotFound)
	}
	return nil
}

const runColumns = `id, input, status, started_at, finished_at, lines, error, stages`

// GetRun returns a run by ID.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r                    store.Run
		input, finished, msg sql.NullString
		started              string
		stages               sql.NullString
	)
	if err := sc.Scan(&r.ID, &input, &r.Status, &started, &finished, &r.Lines, &msg, &stages); err != nil {
		return store.Run{}, err
	}
	r.Input = input.String
	r.Error = msg.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished.Valid {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	if stages.Valid && stages.String != "" {
		if err := json.Unmarshal([]byte(stages.String), &r.Stages); err != nil {
			return store.Run{}, fmt.Errorf("run %s: stages: %w", r.ID, err)
		}
	}
	return r, nil
}

func encodeStages(stages map[string]int64) (string, error) {
	if len(stages) == 0 {
		return "", nil
	}
	data, err := json.Marshal(stages)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
