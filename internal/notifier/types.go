package notifier

import (
	"errors"
	"time"

	"floatwatch/internal/transport"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Event types published on the bus. Data is a NotificationEvent.
const (
	EventQueued  = "notifier.queued"
	EventSent    = "notifier.sent"
	EventFailed  = "notifier.failed"
	EventDropped = "notifier.dropped"
)

type Config struct {
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
}

// Notification is one outbound message. Source and Ref are free-form labels
// carried into events and logs (for example a tracking name and listing id).
type Notification struct {
	Target  transport.ChatTarget
	Text    string
	Options *transport.SendOptions
	Source  string
	Ref     string
}

type NotificationEvent struct {
	Source   string    `json:"source,omitempty"`
	Ref      string    `json:"ref,omitempty"`
	ChatID   int64     `json:"chat_id"`
	ThreadID int       `json:"thread_id,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
}

type HistoryItem struct {
	At     time.Time
	Source string
	Ref    string
	OK     bool
}

// Stats are cumulative counters since the service was created.
type Stats struct {
	Queued   uint64
	Sent     uint64
	Failed   uint64
	Dropped  uint64
	QueueLen int
	QueueCap int
}

const historySize = 100

func withDefaults(cfg Config) Config {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	cfg.RetryMax = max(cfg.RetryMax, 0)
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return cfg
}
