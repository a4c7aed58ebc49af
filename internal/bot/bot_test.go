package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/csfloat"
	"floatwatch/internal/notifier"
	"floatwatch/internal/tracker"
	"floatwatch/internal/transport"
	"floatwatch/internal/transport/telegram/router"
	"floatwatch/pkg/logx"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return transport.MessageRef{ChatID: to.ChatID}, nil
}

func (c *captureSender) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

type staticFetcher struct {
	res csfloat.FetchResult
}

func (f staticFetcher) Fetch(context.Context, csfloat.QueryParams) csfloat.FetchResult { return f.res }

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, tracker.Notification) error { return nil }

type recordingNotifier struct {
	got []notifier.Notification
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n notifier.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) Stats() notifier.Stats { return notifier.Stats{Sent: 3, QueueCap: 256} }

func sampleListing() csfloat.Listing {
	seed := 12
	return csfloat.Listing{
		ID:        "L1",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Price:     9000,
		Reference: &csfloat.Reference{PredictedPrice: 10000, BasePrice: 9800},
		Item: csfloat.Item{
			MarketHashName: "AK-47 | Redline <FT>",
			FloatValue:     0.2,
			PaintSeed:      &seed,
			IconURL:        "icon123",
		},
	}
}

func newTestBot(res csfloat.FetchResult) (*Bot, *recordingNotifier) {
	svc := tracker.NewService(tracker.Options{DefaultDestination: transport.ChatTarget{ChatID: 1}, PrimeOnTrack: true},
		staticFetcher{res: res}, nopDispatcher{}, nil, logx.Nop(), nil)
	n := &recordingNotifier{}
	return New(svc, n, nil), n
}

func request(s *captureSender, args ...string) *router.Request {
	return &router.Request{
		Chat:    transport.ChatTarget{ChatID: 77},
		RawArgs: args,
		Args:    args,
		Sender:  s,
	}
}

func TestTrackReply(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{Listings: []csfloat.Listing{sampleListing()}})
	s := &captureSender{}
	require.NoError(t, b.handleTrack(context.Background(), request(s, "AK Redline", "7", "282", "max_float=0.15")))

	out := s.last()
	assert.Contains(t, out, "Tracking Started")
	assert.Contains(t, out, "<b>AK Redline</b>")
	assert.Contains(t, out, "&#34;max_float&#34;: 0.15")
	assert.Contains(t, out, "Found 1 existing listings (marked as seen)")
	assert.Equal(t, int64(77), b.tracker.Snapshot().Destination.ChatID)
}

func TestTrackRejectsBadInput(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{})
	s := &captureSender{}

	err := b.handleTrack(context.Background(), request(s, "X", "7", "282", "sort_by=bogus"))
	assert.ErrorIs(t, err, tracker.ErrInvalidArgument)
	assert.Contains(t, s.last(), "Invalid sort option &#39;bogus&#39;")
	assert.Contains(t, s.last(), "best_deal, highest_discount")

	err = b.handleTrack(context.Background(), request(s, "X", "seven", "282"))
	assert.ErrorIs(t, err, tracker.ErrInvalidArgument)
	assert.Contains(t, s.last(), "def_index must be an integer")

	assert.Error(t, b.handleTrack(context.Background(), request(s, "X")))
	assert.Empty(t, b.tracker.ListTracking())

	require.NoError(t, b.handleList(context.Background(), request(s)))
	assert.Equal(t, "No items are currently being tracked.", s.last())
}

func TestListAndUntrack(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{})
	s := &captureSender{}
	require.NoError(t, b.handleTrack(context.Background(), request(s, "X", "7", "282")))

	require.NoError(t, b.handleList(context.Background(), request(s)))
	assert.Contains(t, s.last(), "Active Tracking Configurations")
	assert.Contains(t, s.last(), "def_index: 7\npaint_index: 282\nlimit: 20\nsort_by: best_deal")

	require.NoError(t, b.handleUntrack(context.Background(), request(s, "X")))
	assert.Contains(t, s.last(), "Stopped tracking <b>X</b>")
	require.NoError(t, b.handleUntrack(context.Background(), request(s, "X")))
	assert.Contains(t, s.last(), "No tracking configuration found for <b>X</b>")
}

func TestTestCommand(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{Listings: []csfloat.Listing{sampleListing(), sampleListing()}})
	s := &captureSender{}
	require.NoError(t, b.handleTest(context.Background(), request(s, "7", "282")))
	require.Len(t, s.msgs, 2)
	assert.Contains(t, s.msgs[0], "Found 2 listings for def_index 7 paint_index 282 (sorted by best_deal)")
	assert.Contains(t, s.msgs[1], "Example listing:")

	b, _ = newTestBot(csfloat.FetchResult{})
	s = &captureSender{}
	require.NoError(t, b.handleTest(context.Background(), request(s, "7")))
	assert.Contains(t, s.last(), "No listings found for def_index 7")

	b, _ = newTestBot(csfloat.FetchResult{Status: csfloat.StatusDegraded, HTTPStatus: 503})
	s = &captureSender{}
	require.NoError(t, b.handleTest(context.Background(), request(s, "7")))
	assert.Contains(t, s.last(), "http status 503")
}

func TestSortOptionsCommand(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{})
	s := &captureSender{}
	require.NoError(t, b.handleSortOptions(context.Background(), request(s)))
	for _, o := range tracker.SortOptions() {
		assert.Contains(t, s.last(), "<code>"+o.String()+"</code> - "+o.Description())
	}
}

func TestStatusCommand(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(csfloat.FetchResult{})
	s := &captureSender{}
	require.NoError(t, b.handleStatus(context.Background(), request(s)))
	out := s.last()
	assert.Contains(t, out, "<b>Configs:</b> 0")
	assert.Contains(t, out, "<b>Last cycle:</b> never")
	assert.Contains(t, out, "<b>Delivered / failed:</b> 3 / 0")
}

func TestRenderNotification(t *testing.T) {
	t.Parallel()

	p := tracker.BuildNotification(sampleListing())
	out := RenderNotification(tracker.HeaderFor("AK"), p)

	assert.True(t, strings.HasPrefix(out, `<a href="`+tracker.SteamImageCDN+`icon123">&#8205;</a><b>🆕 New AK Listing!</b>`))
	assert.Contains(t, out, `<b><a href="https://csfloat.com/item/L1">AK-47 | Redline &lt;FT&gt;</a></b>`)
	assert.Contains(t, out, "<b>💰 Price:</b> $90.00")
	assert.Contains(t, out, "<b>📉 Divergence:</b> -10.0%")
	assert.Contains(t, out, "<b>💸 Discount:</b> 10.0%")
	assert.Contains(t, out, "<i>CSFloat • ID: L1 • 2024-05-01 12:00 UTC</i>")
}

func TestDispatcher(t *testing.T) {
	t.Parallel()

	n := &recordingNotifier{}
	d := NewDispatcher(n)
	tn := tracker.Notification{
		Config:      "AK",
		Header:      tracker.HeaderFor("AK"),
		Destination: transport.ChatTarget{ChatID: 5},
		ListingID:   "L1",
		Payload:     tracker.BuildNotification(sampleListing()),
	}
	require.NoError(t, d.Dispatch(context.Background(), tn))
	require.Len(t, n.got, 1)
	got := n.got[0]
	assert.Equal(t, "AK", got.Source)
	assert.Equal(t, "L1", got.Ref)
	assert.Equal(t, "HTML", got.Options.ParseMode)
	assert.False(t, got.Options.DisablePreview)

	n.err = errors.New("queue full")
	assert.Error(t, d.Dispatch(context.Background(), tn))
}
