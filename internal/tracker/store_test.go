package tracker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/transport"
)

func TestStoreOrderAndOverwrite(t *testing.T) {
	t.Parallel()

	s := NewStore(transport.ChatTarget{ChatID: 1})
	a, _ := BuildParams(7, 282, nil)
	b, _ := BuildParams(9, 1, nil)

	assert.True(t, s.Add("a", a, transport.ChatTarget{ChatID: 10}))
	assert.True(t, s.Add("b", b, transport.ChatTarget{ChatID: 20}))
	assert.False(t, s.Add("a", b, transport.ChatTarget{ChatID: 30}))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, b.Encode(), list[0].Params.Encode())
	assert.Equal(t, "b", list[1].Name)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, 1, s.Len())
}

func TestStoreDestination(t *testing.T) {
	t.Parallel()

	s := NewStore(transport.ChatTarget{ChatID: 1})
	assert.Equal(t, int64(1), s.Destination().ChatID)

	q, _ := BuildParams(7, 282, nil)
	s.Add("a", q, transport.ChatTarget{ChatID: 10, ThreadID: 3})
	assert.Equal(t, transport.ChatTarget{ChatID: 10, ThreadID: 3}, s.Destination())

	// Later adds do not move it.
	s.Add("b", q, transport.ChatTarget{ChatID: 20})
	assert.Equal(t, int64(10), s.Destination().ChatID)
	s.SetDefaultDestination(transport.ChatTarget{ChatID: 99})
	assert.Equal(t, int64(10), s.Destination().ChatID)

	// Emptied store: the next add sets it again.
	s.Remove("a")
	s.Remove("b")
	s.Add("c", q, transport.ChatTarget{ChatID: 30})
	assert.Equal(t, int64(30), s.Destination().ChatID)
}

func TestStoreListIsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore(transport.ChatTarget{})
	q, _ := BuildParams(7, 282, nil)
	s.Add("a", q, transport.ChatTarget{ChatID: 1})
	l := s.List()
	l[0].Params.Set("limit", CoerceValue("99"))
	got, _ := s.Get("a")
	v, _ := got.Params.Get("limit")
	assert.Equal(t, "20", v.String())
}

func TestSeenSetUnbounded(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(0)
	assert.True(t, s.Add("x"))
	assert.False(t, s.Add("x"))
	for i := 0; i < 1000; i++ {
		s.Add(fmt.Sprint(i))
	}
	assert.Equal(t, 1001, s.Len())
	assert.True(t, s.Has("x"))
	assert.Zero(t, s.Evicted())
}

func TestSeenSetBounded(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Add(id)
	}
	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Has("a"))
	assert.True(t, s.Has("d"))
	assert.Equal(t, uint64(1), s.Evicted())
}
