package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smart_environment/internal/models"
)

func mustSample(t *testing.T, temp, hum float64, aq models.AirQuality, src models.Source) models.Sample {
	t.Helper()
	s, err := models.NewSample(temp, hum, aq, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), src)
	if err != nil {
		t.Fatalf("NewSample: %v", err)
	}
	return s
}

// stubProvider returns a fixed result, optionally after a delay that
// respects ctx.
type stubProvider struct {
	name   string
	source models.Source
	sample models.Sample
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (p *stubProvider) Name() string          { return p.name }
func (p *stubProvider) Source() models.Source { return p.source }

func (p *stubProvider) Fetch(ctx context.Context) (models.Sample, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return models.Sample{}, ctx.Err()
		}
	}
	return p.sample, p.err
}

// gatedResolver blocks every Resolve until release is closed and counts calls.
type gatedResolver struct {
	mu      sync.Mutex
	results []resolveResult
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

type resolveResult struct {
	sample models.Sample
	err    error
}

func newGatedResolver(results ...resolveResult) *gatedResolver {
	return &gatedResolver{
		results: results,
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedResolver) Resolve(ctx context.Context) (models.Sample, error) {
	n := int(g.calls.Add(1)) - 1
	g.entered <- struct{}{}
	<-g.release

	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.results[n%len(g.results)]
	return r.sample, r.err
}

// scriptedResolver returns its results in order without blocking.
type scriptedResolver struct {
	mu      sync.Mutex
	results []resolveResult
	calls   int
}

func (r *scriptedResolver) Resolve(ctx context.Context) (models.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[r.calls%len(r.results)]
	r.calls++
	return res.sample, res.err
}

func (r *scriptedResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// recordingJournal captures event types for assertions.
type recordingJournal struct {
	mu    sync.Mutex
	types []string
}

func (j *recordingJournal) Record(_ context.Context, typ, _ string, _ any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.types = append(j.types, typ)
}

func (j *recordingJournal) Has(typ string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, t := range j.types {
		if t == typ {
			return true
		}
	}
	return false
}

// countingObserver counts the observer calls tests care about.
type countingObserver struct {
	nopObserver
	mu        sync.Mutex
	attempts  map[string]string
	coalesced int
	cache     map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{attempts: map[string]string{}, cache: map[string]int{}}
}

func (o *countingObserver) ObserveProviderAttempt(provider, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[provider] = outcome
}

func (o *countingObserver) IncCoalesced() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.coalesced++
}

func (o *countingObserver) IncCacheRequest(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache[result]++
}
