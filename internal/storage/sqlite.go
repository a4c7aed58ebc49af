package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"floatwatch/pkg/logx"
)

//go:embed migrations.sql
var migrations string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite wants a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor_id, actor_username, chat_id, thread_id, command, args, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.ActorID, nullStr(e.ActorUsername), e.ChatID, e.ThreadID,
		e.Command, nullStr(e.Args), e.OK, nullStr(e.Error), e.TookMS,
	)
	return err
}

// SaveTracking upserts in place, so seq (and with it the list position) of
// an existing name is preserved.
func (s *sqliteStore) SaveTracking(ctx context.Context, r TrackingRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracking(name, params, chat_id, thread_id, created_at) VALUES(?,?,?,?,?)
		 ON CONFLICT(name) DO UPDATE SET
		   params=excluded.params, chat_id=excluded.chat_id,
		   thread_id=excluded.thread_id, created_at=excluded.created_at`,
		r.Name, string(r.Params), r.ChatID, r.ThreadID, r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) DeleteTracking(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracking WHERE name = ?`, name)
	return err
}

func (s *sqliteStore) LoadTracking(ctx context.Context) ([]TrackingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, params, chat_id, thread_id, created_at FROM tracking ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingRecord
	for rows.Next() {
		var (
			r       TrackingRecord
			params  string
			created string
		)
		if err := rows.Scan(&r.Name, &params, &r.ChatID, &r.ThreadID, &created); err != nil {
			return nil, err
		}
		r.Params = json.RawMessage(params)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
