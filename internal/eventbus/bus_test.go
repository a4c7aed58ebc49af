package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFiltersByType(t *testing.T) {
	t.Parallel()

	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	sent, unsubSent := b.Subscribe(4, "notifier.sent")
	defer unsubSent()

	b.Publish(Event{Type: "notifier.sent", Data: 1})
	b.Publish(Event{Type: "notifier.failed", Data: 2})

	require.Len(t, all, 2)
	require.Len(t, sent, 1)
	e := <-sent
	assert.Equal(t, "notifier.sent", e.Type)
	assert.False(t, e.Time.IsZero())
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(Event{Type: "after"})
}
