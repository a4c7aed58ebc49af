package notifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"floatwatch/internal/eventbus"
	"floatwatch/internal/runtime/supervisor"
	"floatwatch/internal/transport"
	"floatwatch/pkg/logx"
)

type job struct {
	n  Notification
	at time.Time
}

// Service is safe for concurrent use. Start and Stop are idempotent.
type Service struct {
	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	log    logx.Logger
	sender transport.Sender
	bus    eventbus.Bus

	accepting bool
	enqueueWG sync.WaitGroup
	queue     chan job
	sup       *supervisor.Supervisor
	stopDone  chan struct{}

	queued, sent, failed, dropped atomic.Uint64

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender transport.Sender, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log, bus: bus}
	s.Apply(cfg)
	return s
}

// Apply swaps retry and rate settings. Workers and queue size take effect
// on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg = withDefaults(cfg)
	s.mu.Lock()
	s.cfg = cfg
	// Burst equals the per-second rate so short spikes pass.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		s.mu.Lock()
	}
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan job, s.cfg.QueueSize)
	s.accepting = true
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	sup, q, workers := s.sup, s.queue, s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.GoRestart(fmt.Sprintf("worker.%d", i), func(c context.Context) error {
			s.workerLoop(c, q)
			return nil
		}, supervisor.WithPublishFirstError(true))
	}
	s.log.Info("notifier started", logx.Int("workers", workers), logx.Int("queue_cap", cap(q)))
}

// Stop closes intake and drains the queue until ctx is done; then in-flight
// sends are canceled.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup := s.queue, s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	s.accepting = false
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.enqueueWG.Wait()
		close(q)
		_ = sup.Wait(context.Background())

		s.mu.Lock()
		s.queue, s.sup, s.stopDone = nil, nil, nil
		s.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sup.Cancel()
		<-done
	}
	s.log.Info("notifier stopped", logx.Uint64("sent", s.sent.Load()), logx.Uint64("failed", s.failed.Load()))
}

// Notify enqueues n without waiting for delivery.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.sender == nil {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || s.queue == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	q := s.queue
	s.enqueueWG.Add(1)
	s.mu.Unlock()
	defer s.enqueueWG.Done()

	select {
	case q <- job{n: n, at: time.Now()}:
		s.queued.Add(1)
		s.publish(EventQueued, n, 0, nil)
		return nil
	default:
		s.dropped.Add(1)
		s.publish(EventDropped, n, 0, ErrQueueFull)
		return ErrQueueFull
	}
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	ql, qc := 0, s.cfg.QueueSize
	if s.queue != nil {
		ql, qc = len(s.queue), cap(s.queue)
	}
	s.mu.Unlock()
	return Stats{
		Queued:   s.queued.Load(),
		Sent:     s.sent.Load(),
		Failed:   s.failed.Load(),
		Dropped:  s.dropped.Load(),
		QueueLen: ql,
		QueueCap: qc,
	}
}

// History returns the most recent outcomes, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) record(n Notification, ok bool) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Source: n.Source, Ref: n.Ref, OK: ok})
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.hmu.Unlock()
}

func (s *Service) workerLoop(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			s.sendWithRetry(ctx, j)
		}
	}
}

func (s *Service) sendWithRetry(ctx context.Context, j job) {
	s.mu.Lock()
	cfg, lim := s.cfg, s.limiter
	s.mu.Unlock()

	attempts := 1 + cfg.RetryMax
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			lastErr = err
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		_, err := s.sender.SendText(callCtx, j.n.Target, j.n.Text, j.n.Options)
		cancel()
		if err == nil {
			s.sent.Add(1)
			s.record(j.n, true)
			s.publish(EventSent, j.n, attempt, nil)
			return
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.String("source", j.n.Source), logx.Int("attempt", attempt), logx.Int("max", attempts), logx.Err(err))
		if attempt == attempts || !sleepCtx(ctx, retryDelay(cfg, attempt)) {
			break
		}
	}

	s.failed.Add(1)
	s.record(j.n, false)
	if errors.Is(lastErr, context.Canceled) {
		lastErr = ErrStopped
	}
	s.log.Warn("notification failed", logx.String("source", j.n.Source), logx.String("ref", j.n.Ref), logx.Int64("chat_id", j.n.Target.ChatID), logx.Err(lastErr))
	s.publish(EventFailed, j.n, attempts, lastErr)
}

func (s *Service) publish(typ string, n Notification, attempts int, err error) {
	if s.bus == nil {
		return
	}
	ev := NotificationEvent{Source: n.Source, Ref: n.Ref, ChatID: n.Target.ChatID, ThreadID: n.Target.ThreadID, Attempts: attempts, At: time.Now()}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// retryDelay is the wait before attempt+1: base*2^(attempt-1), capped,
// with 0.7..1.3 jitter.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = time.Duration(float64(min(d, cfg.RetryMaxDelay)) * (0.7 + rand.Float64()*0.6))
	return min(d, cfg.RetryMaxDelay)
}
