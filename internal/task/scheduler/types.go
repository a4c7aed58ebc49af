package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"floatwatch/internal/eventbus"
	"floatwatch/pkg/logx"
)

// Event types published on the bus.
const (
	EventTaskFailed  = "scheduler.task_failed"
	EventTaskSkipped = "scheduler.task_skipped"
)

type Job func(ctx context.Context) error

type Config struct {
	Timezone string // IANA name; empty means local time
}

// TaskOptions tunes one schedule.
type TaskOptions struct {
	// Timeout bounds a single run. 0 means no extra bound.
	Timeout time.Duration
	// Immediate fires the first run as soon as the scheduler runs, instead
	// of one period after registration.
	Immediate bool
	// Spread delays the first interval run by a random amount (at most
	// min(every, 30s)) so many schedules do not fire together.
	Spread bool
}

type scheduleDef struct {
	name    string
	spec    string
	sched   func(now time.Time) cron.Schedule
	opt     TaskOptions
	job     Job
	entryID cron.EntryID
	stats   *runStats
}

type runStats struct {
	runs     atomic.Uint64
	failures atomic.Uint64
	skipped  atomic.Uint64
	lastDur  atomic.Int64
	lastErr  atomic.Value // string
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus
	loc *time.Location

	c      *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	defs   map[string]*scheduleDef
	order  []string
}

type ScheduleInfo struct {
	Name     string
	Spec     string
	Timeout  time.Duration
	Next     time.Time
	Prev     time.Time
	Runs     uint64
	Failures uint64
	Skipped  uint64
	LastDur  time.Duration
	LastErr  string
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}
