package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON files next to Path (audit.jsonl + tracking.json)
//   - "sqlite": SQLite database file (pure Go driver)
//
// An empty Driver or "none" disables storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

// Store is the persistence API used by the tracker and the command layer.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error

	// SaveTracking inserts or replaces a record by Name. A replaced record
	// keeps its original position in LoadTracking.
	SaveTracking(ctx context.Context, r TrackingRecord) error
	DeleteTracking(ctx context.Context, name string) error
	// LoadTracking returns records in first-insertion order.
	LoadTracking(ctx context.Context) ([]TrackingRecord, error)

	Close() error
}

// AuditEntry records one handled chat command.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ActorID       int64     `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	ChatID        int64     `json:"chat_id"`
	ThreadID      int       `json:"thread_id,omitempty"`
	Command       string    `json:"command"`
	Args          string    `json:"args,omitempty"`
	OK            bool      `json:"ok"`
	Error         string    `json:"error,omitempty"`
	TookMS        int64     `json:"took_ms"`
}

// TrackingRecord is the stored form of a tracking configuration. Params is
// the tracker's own JSON encoding and is opaque to storage.
type TrackingRecord struct {
	Name      string          `json:"name"`
	Params    json.RawMessage `json:"params"`
	ChatID    int64           `json:"chat_id"`
	ThreadID  int             `json:"thread_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
