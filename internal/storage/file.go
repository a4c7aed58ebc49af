package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"floatwatch/pkg/logx"
)

// fileStore keeps everything in plain files:
//   - <prefix>.audit.jsonl    append-only JSON lines
//   - <prefix>.tracking.json  full snapshot, rewritten atomically per change
type fileStore struct {
	log logx.Logger

	mu           sync.Mutex
	auditFile    *os.File
	trackingPath string
	tracking     []TrackingRecord
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	prefix := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s := &fileStore{log: log, auditFile: af, trackingPath: prefix + ".tracking.json"}
	if err := s.loadSnapshot(); err != nil {
		_ = af.Close()
		return nil, err
	}
	return s, nil
}

func (s *fileStore) loadSnapshot() error {
	b, err := os.ReadFile(s.trackingPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	return json.Unmarshal(b, &s.tracking)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}

func (s *fileStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) SaveTracking(_ context.Context, r TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	next := slices.Clone(s.tracking)
	if i := slices.IndexFunc(next, func(x TrackingRecord) bool { return x.Name == r.Name }); i >= 0 {
		next[i] = r
	} else {
		next = append(next, r)
	}
	return s.writeSnapshotLocked(next)
}

func (s *fileStore) DeleteTracking(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	next := slices.DeleteFunc(slices.Clone(s.tracking), func(x TrackingRecord) bool { return x.Name == name })
	if len(next) == len(s.tracking) {
		return nil
	}
	return s.writeSnapshotLocked(next)
}

func (s *fileStore) LoadTracking(context.Context) ([]TrackingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tracking), nil
}

// writeSnapshotLocked replaces the snapshot via tmp+rename and only then
// swaps the in-memory copy.
func (s *fileStore) writeSnapshotLocked(next []TrackingRecord) error {
	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.trackingPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.trackingPath); err != nil {
		return err
	}
	s.tracking = next
	s.log.Debug("tracking snapshot written", logx.Int("configs", len(next)))
	return nil
}
