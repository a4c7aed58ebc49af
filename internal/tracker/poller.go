package tracker

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"floatwatch/internal/csfloat"
	"floatwatch/internal/eventbus"
	"floatwatch/internal/transport"
	"floatwatch/pkg/logx"
)

const (
	EventCycleDone     = "tracker.cycle_done"
	EventFetchDegraded = "tracker.fetch_degraded"
	EventSkipped       = "tracker.cycle_skipped"
)

// Fetcher is the listing source. Implementations never fail; problems are
// reported through FetchResult.Status.
type Fetcher interface {
	Fetch(ctx context.Context, q csfloat.QueryParams) csfloat.FetchResult
}

// Notification is one alert ready for delivery.
type Notification struct {
	Config      string
	Header      string
	Destination transport.ChatTarget
	ListingID   string
	Payload     NotificationPayload
}

// Dispatcher hands notifications to the transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// HeaderFor is the first line of every alert for config name.
func HeaderFor(name string) string { return "🆕 New " + name + " Listing!" }

type PollerConfig struct {
	JitterMax   time.Duration
	MaxPerCycle int
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.JitterMax < 0 {
		c.JitterMax = 0
	}
	if c.MaxPerCycle <= 0 {
		c.MaxPerCycle = 5
	}
	return c
}

// CycleReport summarizes one pass over the store. It is the data of
// EventCycleDone.
type CycleReport struct {
	ID             string        `json:"id"`
	Started        time.Time     `json:"started"`
	Took           time.Duration `json:"took"`
	Configs        int           `json:"configs"`
	FetchOK        int           `json:"fetch_ok"`
	FetchDegraded  int           `json:"fetch_degraded"`
	New            int           `json:"new"`
	Dispatched     int           `json:"dispatched"`
	DispatchFailed int           `json:"dispatch_failed"`
}

type PollerSnapshot struct {
	Cycles         uint64
	Skipped        uint64
	FetchOK        uint64
	FetchDegraded  uint64
	New            uint64
	Dispatched     uint64
	DispatchFailed uint64
	Last           *CycleReport
}

// Poller runs one detection cycle per Tick. Ticks must not overlap; the
// scheduler guarantees that, and a guard drops a tick that races anyway.
type Poller struct {
	store    *Store
	seen     *SeenSet
	fetch    Fetcher
	dispatch Dispatcher
	log      logx.Logger
	bus      eventbus.Bus

	running sync.Mutex

	mu     sync.Mutex
	cfg    PollerConfig
	jitter func(max time.Duration) time.Duration
	snap   PollerSnapshot
}

func NewPoller(store *Store, seen *SeenSet, fetch Fetcher, dispatch Dispatcher, cfg PollerConfig, log logx.Logger, bus eventbus.Bus) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poller{
		store:    store,
		seen:     seen,
		fetch:    fetch,
		dispatch: dispatch,
		log:      log,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		jitter:   uniformJitter,
	}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

func (p *Poller) Apply(cfg PollerConfig) {
	p.mu.Lock()
	p.cfg = cfg.withDefaults()
	p.mu.Unlock()
}

func (p *Poller) Snapshot() PollerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}

// Tick runs one cycle. It returns an error only when ctx ends mid-cycle.
func (p *Poller) Tick(ctx context.Context) error {
	if !p.running.TryLock() {
		p.log.Warn("tracker cycle still running, tick skipped")
		return nil
	}
	defer p.running.Unlock()

	configs := p.store.List()
	if len(configs) == 0 {
		return nil
	}
	dest := p.store.Destination()
	if !dest.Resolvable() {
		p.log.Warn("no notification destination, cycle skipped", logx.Int("configs", len(configs)))
		p.mu.Lock()
		p.snap.Skipped++
		p.mu.Unlock()
		p.publish(EventSkipped, nil)
		return nil
	}

	p.mu.Lock()
	cfg, jitter := p.cfg, p.jitter
	p.mu.Unlock()

	rep := CycleReport{ID: uuid.NewString()[:8], Started: time.Now(), Configs: len(configs)}
	log := p.log.With(logx.String("cycle", rep.ID))

	var err error
	for _, c := range configs {
		if err = sleepCtx(ctx, jitter(cfg.JitterMax)); err != nil {
			break
		}
		p.runConfig(ctx, log, c, dest, cfg, &rep)
		if err = ctx.Err(); err != nil {
			break
		}
	}
	rep.Took = time.Since(rep.Started)

	p.mu.Lock()
	p.snap.Cycles++
	p.snap.FetchOK += uint64(rep.FetchOK)
	p.snap.FetchDegraded += uint64(rep.FetchDegraded)
	p.snap.New += uint64(rep.New)
	p.snap.Dispatched += uint64(rep.Dispatched)
	p.snap.DispatchFailed += uint64(rep.DispatchFailed)
	last := rep
	p.snap.Last = &last
	p.mu.Unlock()

	p.publish(EventCycleDone, rep)
	log.Debug("tracker cycle done",
		logx.Int("configs", rep.Configs),
		logx.Int("new", rep.New),
		logx.Int("dispatched", rep.Dispatched),
		logx.Int("degraded", rep.FetchDegraded),
		logx.Duration("took", rep.Took),
	)
	return err
}

func (p *Poller) runConfig(ctx context.Context, log logx.Logger, c TrackingConfig, dest transport.ChatTarget, cfg PollerConfig, rep *CycleReport) {
	log = log.With(logx.String("config", c.Name))

	res := p.fetch.Fetch(ctx, c.Params)
	if !res.OK() {
		rep.FetchDegraded++
		p.publish(EventFetchDegraded, map[string]any{"config": c.Name, "http_status": res.HTTPStatus})
		return
	}
	rep.FetchOK++

	var fresh []csfloat.Listing
	for _, l := range res.Listings {
		if p.seen.Add(l.ID) {
			fresh = append(fresh, l)
		}
	}
	rep.New += len(fresh)
	if len(fresh) == 0 {
		return
	}

	sent := 0
	for _, l := range fresh[:min(len(fresh), cfg.MaxPerCycle)] {
		n := Notification{
			Config:      c.Name,
			Header:      HeaderFor(c.Name),
			Destination: dest,
			ListingID:   l.ID,
			Payload:     BuildNotification(l),
		}
		if err := p.dispatch.Dispatch(ctx, n); err != nil {
			rep.DispatchFailed++
			log.Warn("dispatch failed", logx.String("listing", l.ID), logx.Err(err))
			continue
		}
		rep.Dispatched++
		sent++
	}
	log.Info("new listings", logx.Int("new", len(fresh)), logx.Int("posted", sent))
}

func (p *Poller) publish(typ string, data any) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
