// Package strokelog keeps a durable log of recognized strokes in SQLite.
package strokelog

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

type Record struct {
	ID      string
	Session string
	Time    time.Time
	Keys    []string
	Undone  bool
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the log at path. ":memory:" gives a throwaway log.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stroke log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to stroke log: %w", err)
	}
	// One writer; also keeps a ":memory:" database on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, r Record) error {
	keys, err := json.Marshal(r.Keys)
	if err != nil {
		return err
	}
	steno := strings.Join(r.Keys, " ")
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strokes (id, session, created_at, steno, keys_json, undone) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Session, r.Time.UnixNano(), steno, string(keys), r.Undone)
	if err != nil {
		return fmt.Errorf("append stroke %s: %w", r.ID, err)
	}
	return nil
}

// MarkUndone flags a logged stroke as taken back.
func (s *Store) MarkUndone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE strokes SET undone = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark stroke %s undone: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark stroke %s undone: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Recent returns up to limit strokes of a session, oldest first.
func (s *Store) Recent(ctx context.Context, session string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session, created_at, keys_json, undone FROM (
			SELECT seq, id, session, created_at, keys_json, undone FROM strokes
			WHERE session = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			ts   int64
			keys string
		)
		if err := rows.Scan(&r.ID, &r.Session, &ts, &keys, &r.Undone); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keys), &r.Keys); err != nil {
			return nil, fmt.Errorf("stroke %s: bad keys: %w", r.ID, err)
		}
		r.Time = time.Unix(0, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
