package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"smart_environment/internal/buffer"
	"smart_environment/internal/insight"
	"smart_environment/internal/logger"
	"smart_environment/internal/models"
)

var (
	ErrAlreadyRunning     = errors.New("polling already running")
	ErrResolutionInFlight = errors.New("a resolution is already in flight")
	ErrResultDiscarded    = errors.New("result discarded: mode changed or polling stopped mid-flight")
	ErrInvalidMode        = errors.New("invalid mode")
	ErrInvalidInterval    = errors.New("interval must be positive")
)

const (
	defaultPollInterval       = 5 * time.Second
	defaultStaleAfterFailures = 3
)

type resolveOrigin int

const (
	originTick resolveOrigin = iota
	originTrigger
)

// SchedulerConfig holds the tunables of a Scheduler.
type SchedulerConfig struct {
	Mode               models.Mode
	Interval           time.Duration
	StaleAfterFailures int
}

// SchedulerDeps are the collaborators a Scheduler drives. Resolvers must
// contain an entry for every mode the scheduler may switch to.
type SchedulerDeps struct {
	Resolvers  map[models.Mode]SampleResolver
	Buffer     *buffer.Rolling[models.Sample]
	Classifier *insight.Classifier
	Events     EventRecorder
	Observer   Observer
	Logger     *logger.Logger
}

// Scheduler owns the polling state: it resolves a sample on every tick,
// pushes it into the rolling window and classifies it. At most one
// resolution runs at a time; ticks and triggers that arrive meanwhile are
// dropped.
type Scheduler struct {
	resolvers  map[models.Mode]SampleResolver
	buffer     *buffer.Rolling[models.Sample]
	classifier *insight.Classifier
	events     EventRecorder
	obs        Observer
	log        *logger.Logger

	defaultInterval time.Duration
	staleAfter      int
	clock           func() time.Time

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu          sync.RWMutex
	mode        models.Mode
	running     bool
	interval    time.Duration
	stopCh      chan struct{}
	generation  uint64 // bumped on every mode change
	runEpoch    uint64 // bumped on every start/stop
	lastSample  *models.Sample
	lastInsight *models.Insight
	lastErr     error
	lastErrAt   time.Time
	lastOKAt    time.Time
	failures    int
}

func NewScheduler(cfg SchedulerConfig, deps SchedulerDeps) (*Scheduler, error) {
	if cfg.Mode == "" {
		cfg.Mode = models.ModeLive
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.StaleAfterFailures <= 0 {
		cfg.StaleAfterFailures = defaultStaleAfterFailures
	}
	if _, ok := deps.Resolvers[cfg.Mode]; !ok {
		return nil, fmt.Errorf("%w: no resolver for initial mode %q", ErrInvalidMode, cfg.Mode)
	}
	if deps.Buffer == nil {
		deps.Buffer = buffer.NewRolling[models.Sample](buffer.DefaultCapacity)
	}
	if deps.Classifier == nil {
		deps.Classifier = insight.NewClassifier(insight.DefaultThresholds())
	}

	return &Scheduler{
		resolvers:       deps.Resolvers,
		buffer:          deps.Buffer,
		classifier:      deps.Classifier,
		events:          recorderOrNop(deps.Events),
		obs:             observerOrNop(deps.Observer),
		log:             logger.OrNop(deps.Logger),
		defaultInterval: cfg.Interval,
		staleAfter:      cfg.StaleAfterFailures,
		clock:           time.Now,
		mode:            cfg.Mode,
	}, nil
}

// Start begins polling every interval, resolving once immediately. A zero
// interval uses the configured default.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval < 0 {
		return ErrInvalidInterval
	}
	if interval == 0 {
		interval = s.defaultInterval
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.interval = interval
	s.stopCh = make(chan struct{})
	s.runEpoch++
	stop := s.stopCh
	mode := s.mode
	s.mu.Unlock()

	s.log.Infow("polling_started", "interval", interval, "mode", mode)
	s.events.Record(context.Background(), models.EventStart,
		fmt.Sprintf("Polling started every %s in %s mode", interval, mode),
		map[string]any{"interval": interval.String(), "mode": mode})

	s.wg.Add(1)
	go s.loop(stop, interval)
	return nil
}

func (s *Scheduler) loop(stop <-chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	s.tick()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			s.tick()
		}
	}
}

// tick never blocks the loop: the resolution runs in its own goroutine.
func (s *Scheduler) tick() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.obs.IncCoalesced()
		s.log.Debugw("tick_coalesced")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		_ = s.resolveOnce(context.Background(), originTick)
	}()
}

// Stop cancels the timer. A resolution already in flight finishes and its
// result is dropped. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.stopCh = nil
	s.runEpoch++
	s.mu.Unlock()

	s.log.Infow("polling_stopped")
	s.events.Record(context.Background(), models.EventStop, "Polling stopped", nil)
}

// TriggerOnce resolves synchronously without touching the schedule. It
// returns ErrResolutionInFlight when another resolution is pending.
func (s *Scheduler) TriggerOnce(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.obs.IncCoalesced()
		return ErrResolutionInFlight
	}
	defer s.inFlight.Store(false)

	s.events.Record(ctx, models.EventRefresh, "Manual refresh requested", nil)
	// The caller going away must not abort provider calls; their timeouts bound them.
	return s.resolveOnce(context.WithoutCancel(ctx), originTrigger)
}

// SetMode switches the resolver used from the next resolution on. A result
// still in flight from the previous mode is discarded.
func (s *Scheduler) SetMode(mode models.Mode) error {
	if _, ok := s.resolvers[mode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	s.mu.Lock()
	prev := s.mode
	if prev == mode {
		s.mu.Unlock()
		return nil
	}
	s.mode = mode
	s.generation++
	s.mu.Unlock()

	s.log.Infow("mode_changed", "from", prev, "to", mode)
	s.events.Record(context.Background(), models.EventModeChange,
		fmt.Sprintf("Mode changed from %s to %s", prev, mode),
		map[string]any{"from": prev, "to": mode})
	return nil
}

func (s *Scheduler) Mode() models.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Scheduler) DefaultInterval() time.Duration { return s.defaultInterval }

func (s *Scheduler) resolveOnce(ctx context.Context, origin resolveOrigin) error {
	s.mu.RLock()
	mode, gen, epoch := s.mode, s.generation, s.runEpoch
	s.mu.RUnlock()

	sample, err := s.resolvers[mode].Resolve(ctx)
	now := s.clock().UTC()

	s.mu.Lock()
	stale := s.generation != gen ||
		(origin == originTick && (!s.running || s.runEpoch != epoch))
	if stale {
		s.mu.Unlock()
		s.obs.IncResolution(string(mode), "discarded")
		s.log.Infow("result_discarded", "mode", mode, "err", err)
		s.events.Record(ctx, models.EventResultDiscarded,
			fmt.Sprintf("Result from %s mode discarded", mode), nil)
		return ErrResultDiscarded
	}

	if err != nil {
		// Sticky: lastSample and lastInsight stay as they are.
		s.lastErr = err
		s.lastErrAt = now
		s.failures++
		failures := s.failures
		s.mu.Unlock()

		s.obs.IncResolution(string(mode), "unavailable")
		s.obs.SetConsecutiveFailures(failures)
		s.log.Warnw("resolve_failed", "mode", mode, "consecutive_failures", failures, "err", err)
		meta := map[string]any{"consecutive_failures": failures}
		var sue *SourceUnavailableError
		if errors.As(err, &sue) {
			meta["failures"] = sue.Failures
		}
		s.events.Record(ctx, models.EventResolveFailed, err.Error(), meta)
		return err
	}

	s.buffer.Push(sample)
	ins := s.classifier.Classify(sample)
	s.lastSample = &sample
	s.lastInsight = &ins
	s.lastOKAt = now
	s.lastErr = nil
	s.failures = 0
	s.mu.Unlock()

	s.obs.IncResolution(string(mode), "ok")
	s.obs.SetSample(sample)
	s.obs.SetBufferLen(s.buffer.Len())
	s.obs.SetConsecutiveFailures(0)
	if ins.Alert {
		s.log.Warnw("insight_alert", "code", ins.Code, "message", ins.Message, "source", sample.Source)
	} else {
		s.log.Debugw("sample_applied", "source", sample.Source, "insight", ins.Code)
	}
	return nil
}

// CurrentSample returns the last good sample, which survives failed polls.
func (s *Scheduler) CurrentSample() (models.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSample == nil {
		return models.Sample{}, false
	}
	return *s.lastSample, true
}

// CurrentInsight returns the classification of CurrentSample.
func (s *Scheduler) CurrentInsight() (models.Insight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastInsight == nil {
		return models.Insight{}, false
	}
	return *s.lastInsight, true
}

// ChartSnapshot copies the rolling window, oldest first.
func (s *Scheduler) ChartSnapshot() []models.Sample {
	return s.buffer.Snapshot()
}

func (s *Scheduler) Status() models.PollingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := models.PollingStatus{
		Mode:                s.mode,
		Running:             s.running,
		InFlight:            s.inFlight.Load(),
		LastErrorAt:         s.lastErrAt,
		LastSuccessAt:       s.lastOKAt,
		ConsecutiveFailures: s.failures,
		Stale:               s.failures >= s.staleAfter,
	}
	if s.running {
		st.Interval = s.interval.String()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Close stops polling and waits for in-flight work or ctx, whichever ends first.
func (s *Scheduler) Close(ctx context.Context) error {
	s.Stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
