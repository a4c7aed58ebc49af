package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/eventbus"
	"floatwatch/internal/transport"
	"floatwatch/pkg/logx"
)

func newTestPoller(f Fetcher, d Dispatcher, bus eventbus.Bus) (*Poller, *Store, *SeenSet) {
	store := NewStore(transport.ChatTarget{ChatID: 1})
	seen := NewSeenSet(0)
	p := NewPoller(store, seen, f, d, PollerConfig{MaxPerCycle: 5}, logx.Nop(), bus)
	p.jitter = func(time.Duration) time.Duration { return 0 }
	return p, store, seen
}

func track(t *testing.T, s *Store, name string, def int64) {
	t.Helper()
	q, err := BuildParams(def, 1, nil)
	require.NoError(t, err)
	s.Add(name, q, transport.ChatTarget{ChatID: 42})
}

func TestTickIdleWhenEmpty(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	p, _, _ := newTestPoller(f, &fakeDispatcher{}, nil)
	require.NoError(t, p.Tick(context.Background()))
	assert.Empty(t, f.calls)
	assert.Zero(t, p.Snapshot().Cycles)
}

func TestTickDedupAcrossCycles(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	d := &fakeDispatcher{}
	p, store, _ := newTestPoller(f, d, nil)
	track(t, store, "AK", 7)
	f.set(7, listings("ak", 1)...)

	require.NoError(t, p.Tick(context.Background()))
	require.NoError(t, p.Tick(context.Background()))

	sent := d.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "ak-0", sent[0].ListingID)
	assert.Equal(t, "🆕 New AK Listing!", sent[0].Header)
	assert.Equal(t, int64(42), sent[0].Destination.ChatID)
	assert.Equal(t, uint64(2), p.Snapshot().Cycles)
}

func TestTickCapsPerCycle(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	d := &fakeDispatcher{}
	p, store, seen := newTestPoller(f, d, nil)
	track(t, store, "AK", 7)
	f.set(7, listings("ak", 8)...)

	require.NoError(t, p.Tick(context.Background()))
	assert.Len(t, d.all(), 5)
	for _, l := range listings("ak", 8) {
		assert.True(t, seen.Has(l.ID))
	}

	// The three overflow listings are never notified later.
	require.NoError(t, p.Tick(context.Background()))
	assert.Len(t, d.all(), 5)

	snap := p.Snapshot()
	assert.Equal(t, uint64(8), snap.New)
	assert.Equal(t, uint64(5), snap.Dispatched)
}

func TestTickIsolatesFetchFailure(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	d := &fakeDispatcher{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4, EventFetchDegraded)
	defer unsub()

	p, store, _ := newTestPoller(f, d, bus)
	track(t, store, "broken", 1)
	track(t, store, "healthy", 2)
	f.fail(1)
	f.set(2, listings("ok", 2)...)

	require.NoError(t, p.Tick(context.Background()))
	sent := d.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "healthy", sent[0].Config)

	snap := p.Snapshot()
	assert.Equal(t, uint64(1), snap.FetchDegraded)
	assert.Equal(t, uint64(1), snap.FetchOK)
	select {
	case e := <-events:
		assert.Equal(t, EventFetchDegraded, e.Type)
	default:
		t.Fatal("expected degraded event")
	}
}

func TestTickDispatchFailureMarksSeen(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	d := &fakeDispatcher{err: errors.New("telegram down")}
	p, store, seen := newTestPoller(f, d, nil)
	track(t, store, "A", 1)
	track(t, store, "B", 2)
	f.set(1, listings("a", 2)...)
	f.set(2, listings("b", 1)...)

	require.NoError(t, p.Tick(context.Background()))
	assert.True(t, seen.Has("a-0"))
	assert.True(t, seen.Has("b-0"))
	assert.Equal(t, uint64(3), p.Snapshot().DispatchFailed)

	d.err = nil
	require.NoError(t, p.Tick(context.Background()))
	assert.Empty(t, d.all())
}

func TestTickSkipsWithoutDestination(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	store := NewStore(transport.ChatTarget{})
	p := NewPoller(store, NewSeenSet(0), f, &fakeDispatcher{}, PollerConfig{}, logx.Nop(), nil)
	q, _ := BuildParams(1, 1, nil)
	store.Add("x", q, transport.ChatTarget{})

	require.NoError(t, p.Tick(context.Background()))
	assert.Empty(t, f.calls)
	assert.Equal(t, uint64(1), p.Snapshot().Skipped)
}

func TestTickCanceledDuringJitter(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	p, store, _ := newTestPoller(f, &fakeDispatcher{}, nil)
	p.jitter = func(time.Duration) time.Duration { return time.Hour }
	track(t, store, "A", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Tick(ctx), context.Canceled)
	assert.Empty(t, f.calls)
}

func TestUniformJitterBounds(t *testing.T) {
	t.Parallel()

	assert.Zero(t, uniformJitter(0))
	for i := 0; i < 100; i++ {
		j := uniformJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Second)
	}
}
