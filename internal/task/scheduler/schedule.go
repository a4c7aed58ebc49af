package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/robfig/cron/v3"
)

const maxStartupSpread = 30 * time.Second

// firstRunSchedule overrides the first activation of a base schedule and
// delegates to it afterwards. cron calls Next from a single goroutine.
type firstRunSchedule struct {
	base  cron.Schedule
	first time.Time
	used  bool
}

func (s *firstRunSchedule) Next(t time.Time) time.Time {
	if !s.used {
		s.used = true
		if s.first.Before(t) {
			return t
		}
		return s.first
	}
	return s.base.Next(t)
}

// intervalSchedule builds the schedule for an @every registration.
func intervalSchedule(every time.Duration, opt TaskOptions, now time.Time) cron.Schedule {
	base := cron.Every(every)
	switch {
	case opt.Immediate:
		return &firstRunSchedule{base: base, first: now}
	case opt.Spread:
		spread := min(every, maxStartupSpread)
		if spread <= 0 {
			return base
		}
		return &firstRunSchedule{base: base, first: now.Add(every + rand.N(spread))}
	default:
		return base
	}
}
