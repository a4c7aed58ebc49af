package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"floatwatch/internal/eventbus"
	"floatwatch/pkg/logx"
)

var ErrNameRequired = errors.New("scheduler: name required")

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, bus: bus, defs: map[string]*scheduleDef{}}
}

// Start begins triggering. Jobs run on a context derived from ctx that Stop
// cancels. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.loc = s.location()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.c = cron.New(
		cron.WithLocation(s.loc),
		cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(cronLogger{log: s.log})),
	)
	for _, name := range s.order {
		s.registerLocked(s.defs[name])
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

// Stop cancels running jobs and waits for them, bounded by ctx.
// Definitions stay registered for a later Start.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c, cancel := s.c, s.cancel
	s.c, s.cancel = nil, nil
	for _, d := range s.defs {
		d.entryID = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}
	start := time.Now()
	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

// Apply changes the timezone; running cron entries are rebuilt.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	changed := strings.TrimSpace(cfg.Timezone) != strings.TrimSpace(s.cfg.Timezone)
	s.cfg = cfg
	running := s.c != nil
	ctx := s.ctx
	s.mu.Unlock()
	if changed && running {
		parent := context.WithoutCancel(ctx)
		stopCtx, cancel := context.WithTimeout(parent, 5*time.Second)
		s.Stop(stopCtx)
		cancel()
		s.Start(parent)
	}
}

func (s *Service) location() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// AddInterval registers (or replaces) a job that fires every period.
func (s *Service) AddInterval(name string, every time.Duration, opt TaskOptions, job Job) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: interval must be > 0, got %s", every)
	}
	return s.add(name, "@every "+every.String(), func(now time.Time) cron.Schedule {
		return intervalSchedule(every, opt, now)
	}, opt, job)
}

// AddCron registers (or replaces) a job on a cron spec (5 or 6 fields, or
// a descriptor such as "@hourly").
func (s *Service) AddCron(name, spec string, opt TaskOptions, job Job) error {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	return s.add(name, spec, func(time.Time) cron.Schedule { return sched }, opt, job)
}

func (s *Service) add(name, spec string, sched func(time.Time) cron.Schedule, opt TaskOptions, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if job == nil {
		return errors.New("scheduler: job required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
	d := &scheduleDef{name: name, spec: spec, sched: sched, opt: opt, job: job, stats: &runStats{}}
	s.defs[name] = d
	s.order = append(s.order, name)
	if s.c != nil {
		s.registerLocked(d)
	}
	s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec), logx.Duration("timeout", opt.Timeout))
	return nil
}

// Remove unregisters a job. It reports whether the name existed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(name)
}

func (s *Service) removeLocked(name string) bool {
	d, ok := s.defs[name]
	if !ok {
		return false
	}
	if s.c != nil && d.entryID != 0 {
		s.c.Remove(d.entryID)
	}
	delete(s.defs, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true
}

func (s *Service) registerLocked(d *scheduleDef) {
	stats := d.stats
	logger := cronLogger{log: s.log.With(logx.String("task", d.name)), onSkip: func() {
		stats.skipped.Add(1)
		s.publish(EventTaskSkipped, d.name, nil)
	}}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(s.runner(d, s.ctx)))
	d.entryID = s.c.Schedule(d.sched(time.Now().In(s.loc)), wrapped)
}

func (s *Service) runner(d *scheduleDef, base context.Context) func() {
	return func() {
		if base.Err() != nil {
			return
		}
		ctx := base
		if d.opt.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(base, d.opt.Timeout)
			defer cancel()
		}
		start := time.Now()
		err := d.job(ctx)
		dur := time.Since(start)

		d.stats.runs.Add(1)
		d.stats.lastDur.Store(int64(dur))
		if err != nil && !errors.Is(err, context.Canceled) {
			d.stats.failures.Add(1)
			d.stats.lastErr.Store(err.Error())
			s.log.Warn("task failed", logx.String("task", d.name), logx.Duration("dur", dur), logx.Err(err))
			s.publish(EventTaskFailed, d.name, err)
			return
		}
		d.stats.lastErr.Store("")
		s.log.Debug("task done", logx.String("task", d.name), logx.Duration("dur", dur))
	}
}

func (s *Service) publish(typ, name string, err error) {
	if s.bus == nil {
		return
	}
	data := map[string]any{"task": name}
	if err != nil {
		data["err"] = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Running: s.c != nil, Timezone: s.location().String()}
	for _, name := range s.order {
		d := s.defs[name]
		it := ScheduleInfo{
			Name:     d.name,
			Spec:     d.spec,
			Timeout:  d.opt.Timeout,
			Runs:     d.stats.runs.Load(),
			Failures: d.stats.failures.Load(),
			Skipped:  d.stats.skipped.Load(),
			LastDur:  time.Duration(d.stats.lastDur.Load()),
		}
		it.LastErr, _ = d.stats.lastErr.Load().(string)
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	return snap
}
