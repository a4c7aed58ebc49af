// Package app wires configuration, logging, transport, the tracker and its
// supporting services into one process with an ordered shutdown.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"floatwatch/internal/bot"
	"floatwatch/internal/config"
	"floatwatch/internal/csfloat"
	"floatwatch/internal/eventbus"
	"floatwatch/internal/notifier"
	"floatwatch/internal/runtime/supervisor"
	"floatwatch/internal/storage"
	"floatwatch/internal/task/scheduler"
	"floatwatch/internal/tracker"
	"floatwatch/internal/transport"
	telegram "floatwatch/internal/transport/telegram/adapter"
	"floatwatch/internal/transport/telegram/router"
	"floatwatch/pkg/logx"
)

const pollTaskName = "tracker.poll"

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter *telegram.Adapter
	sched   *scheduler.Service
	notif   *notifier.Service
	client  *csfloat.Client
	tracker *tracker.Service
	cmdm    *router.Manager

	pollMu    sync.Mutex
	pollArmed bool
	poll      pollSchedule

	updates chan transport.Update
}

// New loads the config and builds every component. Missing startup
// settings are fatal here.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validateMapped(cfg); err != nil {
		return nil, err
	}

	// The log chat sink needs the adapter and the adapter wants a logger.
	var adPtr atomic.Pointer[telegram.Adapter]
	logSvc, log := logx.New(mapLogConfig(cfg), func(ctx context.Context, chatID int64, threadID int, text string) error {
		ad := adPtr.Load()
		if ad == nil {
			return nil
		}
		_, err := ad.SendText(ctx, transport.ChatTarget{ChatID: chatID, ThreadID: threadID}, text, &transport.SendOptions{DisablePreview: true})
		return err
	})
	appLog := log.Named("app")

	adCfg, _ := mapAdapterConfig(cfg)
	ad, err := telegram.New(adCfg, log.Named("telegram"))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	adPtr.Store(ad)

	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, _ := mapStorageConfig(cfg); enabled {
		st, err := storage.Open(sc, log.Named("storage"))
		if err != nil {
			_ = logSvc.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		store = st
		appLog.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	ncfg, _ := mapNotifierConfig(cfg)
	notif := notifier.New(ncfg, ad, log.Named("notifier"), bus)

	ccfg, _ := mapCSFloatConfig(cfg)
	client := csfloat.New(ccfg, nil, log.Named("csfloat"))

	topts, _ := mapTrackerOptions(cfg)
	trk := tracker.NewService(topts, client, bot.NewDispatcher(notif), store, log.Named("tracker"), bus)

	sched := scheduler.New(scheduler.Config{}, log.Named("scheduler"), bus)

	cmdm := router.NewManager(log.Named("commands"), ad, router.WithMiddleware(router.MWAudit(store)))
	cmdm.SetCommands(bot.New(trk, notif, sched.Snapshot).Commands())

	poll, _ := mapPollSchedule(cfg)
	return &App{
		cfgm:    cfgm,
		log:     appLog,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		sched:   sched,
		notif:   notif,
		client:  client,
		tracker: trk,
		cmdm:    cmdm,
		poll:    poll,
		updates: make(chan transport.Update, 256),
	}, nil
}

// Done is closed when the app supervisor stops (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.Named("config"))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validateMapped(cfg) })

	rctx, cancel := context.WithTimeout(a.sup.Context(), 30*time.Second)
	if _, err := a.tracker.Restore(rctx); err != nil {
		a.log.Warn("tracking restore failed", logx.Err(err))
	}
	cancel()

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	// Detached so Stop can drain queued notifications after the app
	// context is gone.
	a.notif.Start(context.WithoutCancel(a.sup.Context()))
	a.sched.Start(a.sup.Context())

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	a.sup.Go0("tracker.arm", a.armWhenReady)
	a.sup.Go0("eventbus.log", a.logEvents)
	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// armWhenReady registers the polling task once the transport is receiving
// updates, then publishes the command menu and tells systemd we are up.
func (a *App) armWhenReady(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-a.adapter.Ready():
	}

	if err := a.armPoll(); err != nil {
		a.log.Error("tracker schedule failed", logx.Err(err))
		return
	}

	mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.adapter.UpdateMenuCommands(mctx, a.cmdm.MenuCommands()); err != nil {
		a.log.Warn("menu update failed", logx.Err(err))
	}
	cancel()

	notifySystemd(a.log, sdReady)
}

func (a *App) armPoll() error {
	a.pollMu.Lock()
	defer a.pollMu.Unlock()
	err := a.sched.AddInterval(pollTaskName, a.poll.Every, scheduler.TaskOptions{
		Timeout:   a.poll.Timeout,
		Immediate: true,
	}, a.tracker.Tick)
	if err != nil {
		return err
	}
	a.pollArmed = true
	a.log.Info("tracker armed", logx.Duration("every", a.poll.Every))
	return nil
}

func (a *App) logEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.log.Trace("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	notifySystemd(a.log, sdStopping)

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// never extend the caller's deadline
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("notifier", 3*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.logs.Close()
}
