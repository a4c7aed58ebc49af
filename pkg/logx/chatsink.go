package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// SendFunc delivers one plain-text log line to a chat.
type SendFunc func(ctx context.Context, chatID int64, threadID int, text string) error

const (
	chatQueueSize = 256
	chatMaxLen    = 3500
	chatMaxField  = 600
)

type chatLine struct {
	chatID   int64
	threadID int
	text     string
}

// chatSink is a zerolog LevelWriter that forwards records to a chat.
// Writes never block: records above the rate or beyond the queue are dropped.
type chatSink struct {
	send SendFunc

	mu       sync.Mutex
	chatID   int64
	threadID int
	minLevel zerolog.Level
	limiter  *rate.Limiter

	queue    chan chatLine
	once     sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newChatSink(send SendFunc) *chatSink {
	return &chatSink{send: send, queue: make(chan chatLine, chatQueueSize), minLevel: zerolog.WarnLevel}
}

func (c *chatSink) configure(chatID int64, threadID int, min zerolog.Level, lim *rate.Limiter) {
	c.mu.Lock()
	c.chatID, c.threadID, c.minLevel, c.limiter = chatID, threadID, min, lim
	c.mu.Unlock()

	c.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.loop(ctx)
		}()
	})
}

func (c *chatSink) stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
			c.wg.Wait()
		}
	})
}

func (c *chatSink) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ln := <-c.queue:
			if c.send != nil {
				_ = c.send(ctx, ln.chatID, ln.threadID, ln.text)
			}
		}
	}
}

func (c *chatSink) Write(p []byte) (int, error) {
	return c.WriteLevel(zerolog.InfoLevel, p)
}

func (c *chatSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	c.mu.Lock()
	chatID, threadID, min, lim := c.chatID, c.threadID, c.minLevel, c.limiter
	c.mu.Unlock()

	if chatID == 0 || c.send == nil || lim == nil || level < min || !lim.Allow() {
		return len(p), nil
	}
	text := formatChatLine(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case c.queue <- chatLine{chatID: chatID, threadID: threadID, text: text}:
	default:
	}
	return len(p), nil
}

// formatChatLine turns a zerolog JSON record into "[LEVEL] message" followed
// by one "- key=value" line per field, keys sorted.
func formatChatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(p), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), chatMaxLen)
	}

	lvl, _ := m["level"].(string)
	msg, _ := m["message"].(string)

	var b strings.Builder
	if lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	b.WriteString(msg)

	keys := lo.Filter(lo.Keys(m), func(k string, _ int) bool {
		return k != "time" && k != "level" && k != "message"
	})
	slices.Sort(keys)
	for _, k := range keys {
		limit := chatMaxField
		if k == "stack" {
			limit = 900
		}
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), limit))
	}
	return truncate(b.String(), chatMaxLen)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n < 10 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
