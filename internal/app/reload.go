package app

import (
	"context"
	"slices"

	"floatwatch/internal/config"
	"floatwatch/pkg/logx"
)

func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)

	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.apply(last, cfg)
			last = cfg
		}
	}
}

// apply pushes a validated config to the running components. Token and
// storage changes only take effect after a restart.
func (a *App) apply(prev, cfg *config.Config) {
	changed := config.ChangedSections(prev, cfg)
	if len(changed) == 0 {
		return
	}

	a.logs.Apply(mapLogConfig(cfg))

	if prev != nil && prev.Telegram.Token != cfg.Telegram.Token {
		a.log.Warn("telegram.token changed; restart required")
	}
	if slices.Contains(changed, "storage") {
		a.log.Warn("storage config changed; restart required")
	}

	if c, err := mapCSFloatConfig(cfg); err == nil {
		a.client.Apply(c)
	}
	if n, err := mapNotifierConfig(cfg); err == nil {
		a.notif.Apply(n)
	}
	if o, err := mapTrackerOptions(cfg); err == nil {
		a.tracker.Apply(o)
	}
	if p, err := mapPollSchedule(cfg); err == nil {
		a.pollMu.Lock()
		moved := p != a.poll
		a.poll = p
		armed := a.pollArmed
		a.pollMu.Unlock()
		if moved && armed {
			if err := a.armPoll(); err != nil {
				a.log.Error("tracker reschedule failed", logx.Err(err))
			}
		}
	}

	a.log.Info("config applied", logx.Strs("changed", changed))
}
