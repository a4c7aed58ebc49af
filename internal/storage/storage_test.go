package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/pkg/logx"
)

func openBoth(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{}
	for _, driver := range []string{"file", "sqlite"} {
		st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "floatwatch.db")}, logx.Nop())
		require.NoError(t, err, driver)
		t.Cleanup(func() { _ = st.Close() })
		out[driver] = st
	}
	return out
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Logger{})
		require.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
	_, err = Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}

func TestTrackingKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for driver, st := range openBoth(t) {
		t.Run(driver, func(t *testing.T) {
			now := time.Now().UTC().Truncate(time.Second)
			require.NoError(t, st.SaveTracking(ctx, TrackingRecord{Name: "a", Params: []byte(`[]`), ChatID: 1, CreatedAt: now}))
			require.NoError(t, st.SaveTracking(ctx, TrackingRecord{Name: "b", Params: []byte(`[]`), ChatID: 1, CreatedAt: now}))
			require.NoError(t, st.SaveTracking(ctx, TrackingRecord{Name: "a", Params: []byte(`[{"k":"limit","v":5}]`), ChatID: 2, ThreadID: 3, CreatedAt: now}))

			got, err := st.LoadTracking(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "a", got[0].Name)
			assert.Equal(t, "b", got[1].Name)
			assert.Equal(t, int64(2), got[0].ChatID)
			assert.Equal(t, 3, got[0].ThreadID)
			assert.JSONEq(t, `[{"k":"limit","v":5}]`, string(got[0].Params))
			assert.True(t, now.Equal(got[0].CreatedAt))

			require.NoError(t, st.DeleteTracking(ctx, "a"))
			require.NoError(t, st.DeleteTracking(ctx, "missing"))
			got, err = st.LoadTracking(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "b", got[0].Name)
		})
	}
}

func TestAppendAudit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for driver, st := range openBoth(t) {
		t.Run(driver, func(t *testing.T) {
			require.NoError(t, st.AppendAudit(ctx, AuditEntry{ActorID: 7, ChatID: 1, Command: "track", Args: "ak 7 44", OK: true, TookMS: 12}))
		})
	}
}

func TestFileStoreReloadsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "floatwatch.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.SaveTracking(ctx, TrackingRecord{Name: "x", Params: []byte(`[]`), ChatID: 9}))
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{Command: "track"}))
	require.NoError(t, st.Close())

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "floatwatch.audit.jsonl"))
	require.NoError(t, err)

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	got, err := st.LoadTracking(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].ChatID)

	require.NoError(t, st.Close())
	assert.ErrorIs(t, st.AppendAudit(ctx, AuditEntry{}), ErrClosed)
}
