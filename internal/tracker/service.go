package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"floatwatch/internal/csfloat"
	"floatwatch/internal/eventbus"
	"floatwatch/internal/storage"
	"floatwatch/internal/transport"
	"floatwatch/pkg/logx"
)

type Options struct {
	DefaultDestination transport.ChatTarget
	SeenMaxEntries     int
	JitterMax          time.Duration
	MaxPerCycle        int
	PrimeOnTrack       bool
}

// Service is the command-facing side of the tracker. Persist may be nil.
type Service struct {
	store  *Store
	seen   *SeenSet
	poller *Poller
	fetch  Fetcher

	persist storage.Store
	log     logx.Logger

	mu    sync.RWMutex
	prime bool
}

func NewService(opts Options, fetch Fetcher, dispatch Dispatcher, persist storage.Store, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	store := NewStore(opts.DefaultDestination)
	seen := NewSeenSet(opts.SeenMaxEntries)
	return &Service{
		store:   store,
		seen:    seen,
		fetch:   fetch,
		poller:  NewPoller(store, seen, fetch, dispatch, PollerConfig{JitterMax: opts.JitterMax, MaxPerCycle: opts.MaxPerCycle}, log, bus),
		persist: persist,
		log:     log,
		prime:   opts.PrimeOnTrack,
	}
}

// Apply updates reloadable settings. The seen-set bound is fixed at
// construction.
func (s *Service) Apply(opts Options) {
	s.poller.Apply(PollerConfig{JitterMax: opts.JitterMax, MaxPerCycle: opts.MaxPerCycle})
	s.store.SetDefaultDestination(opts.DefaultDestination)
	s.mu.Lock()
	s.prime = opts.PrimeOnTrack
	s.mu.Unlock()
}

func (s *Service) Store() *Store { return s.store }

// Tick runs one polling cycle; it is the scheduler job.
func (s *Service) Tick(ctx context.Context) error { return s.poller.Tick(ctx) }

type TrackResult struct {
	Config  TrackingConfig
	Created bool
	// Primed is set when the initial fetch succeeded; PrimedCount listings
	// were then marked seen.
	Primed      bool
	PrimedCount int
}

// Track validates and stores a configuration, then primes the seen-set with
// the listings it currently matches. Invalid input stores nothing.
func (s *Service) Track(ctx context.Context, name string, defIndex, paintIndex int64, extra []string, dest transport.ChatTarget) (TrackResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return TrackResult{}, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	params, err := BuildParams(defIndex, paintIndex, extra)
	if err != nil {
		return TrackResult{}, err
	}

	created := s.store.Add(name, params, dest)
	cfg, _ := s.store.Get(name)
	s.save(ctx, cfg)
	s.log.Info("tracking added", logx.String("config", name), logx.String("params", params.Encode()), logx.Bool("created", created))

	res := TrackResult{Config: cfg, Created: created}

	s.mu.RLock()
	prime := s.prime
	s.mu.RUnlock()
	if prime {
		res.Primed, res.PrimedCount = s.primeConfig(ctx, cfg)
	}
	return res, nil
}

func (s *Service) primeConfig(ctx context.Context, c TrackingConfig) (bool, int) {
	r := s.fetch.Fetch(ctx, c.Params)
	if !r.OK() {
		return false, 0
	}
	for _, l := range r.Listings {
		s.seen.Add(l.ID)
	}
	return true, len(r.Listings)
}

// Untrack removes name and reports whether it existed.
func (s *Service) Untrack(ctx context.Context, name string) bool {
	if !s.store.Remove(name) {
		return false
	}
	if s.persist != nil {
		if err := s.persist.DeleteTracking(ctx, name); err != nil {
			s.log.Warn("tracking delete not persisted", logx.String("config", name), logx.Err(err))
		}
	}
	s.log.Info("tracking removed", logx.String("config", name))
	return true
}

func (s *Service) ListTracking() []TrackingConfig { return s.store.List() }

type TestResult struct {
	Params csfloat.QueryParams
	Fetch  csfloat.FetchResult
	// First is the rendering of the first listing, nil when none came back.
	First *NotificationPayload
}

// TestFetch runs one query outside the polling loop. The seen-set is
// neither read nor written.
func (s *Service) TestFetch(ctx context.Context, defIndex, paintIndex, limit int64, sortBy string) (TestResult, error) {
	params, err := TestParams(defIndex, paintIndex, limit, sortBy)
	if err != nil {
		return TestResult{}, err
	}
	res := TestResult{Params: params, Fetch: s.fetch.Fetch(ctx, params)}
	if len(res.Fetch.Listings) > 0 {
		p := BuildNotification(res.Fetch.Listings[0])
		res.First = &p
	}
	return res, nil
}

// Restore loads stored configurations and primes each one so the first
// tick after a restart does not replay current listings.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.persist == nil {
		return 0, nil
	}
	recs, err := s.persist.LoadTracking(ctx)
	if err != nil {
		return 0, fmt.Errorf("load tracking: %w", err)
	}
	n := 0
	for _, r := range recs {
		var params csfloat.QueryParams
		if err := json.Unmarshal(r.Params, &params); err != nil {
			s.log.Warn("skipping stored tracking config", logx.String("config", r.Name), logx.Err(err))
			continue
		}
		c := TrackingConfig{
			Name:        r.Name,
			Params:      params,
			Destination: transport.ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID},
			CreatedAt:   r.CreatedAt,
		}
		s.store.restore(c)
		n++

		s.mu.RLock()
		prime := s.prime
		s.mu.RUnlock()
		if prime {
			ok, count := s.primeConfig(ctx, c)
			s.log.Debug("restored tracking primed", logx.String("config", c.Name), logx.Bool("ok", ok), logx.Int("seen", count))
		}
	}
	if n > 0 {
		s.log.Info("tracking restored", logx.Int("configs", n))
	}
	return n, nil
}

func (s *Service) save(ctx context.Context, c TrackingConfig) {
	if s.persist == nil {
		return
	}
	raw, err := json.Marshal(c.Params)
	if err == nil {
		err = s.persist.SaveTracking(ctx, storage.TrackingRecord{
			Name:      c.Name,
			Params:    raw,
			ChatID:    c.Destination.ChatID,
			ThreadID:  c.Destination.ThreadID,
			CreatedAt: c.CreatedAt,
		})
	}
	if err != nil {
		s.log.Warn("tracking config not persisted", logx.String("config", c.Name), logx.Err(err))
	}
}

type Snapshot struct {
	Configs     int
	Seen        int
	SeenEvicted uint64
	Destination transport.ChatTarget
	Poller      PollerSnapshot
}

func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		Configs:     s.store.Len(),
		Seen:        s.seen.Len(),
		SeenEvicted: s.seen.Evicted(),
		Destination: s.store.Destination(),
		Poller:      s.poller.Snapshot(),
	}
}
