package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"smart_environment/internal/logger"
	"smart_environment/internal/models"
	"smart_environment/internal/provider"
)

var ErrSourceUnavailable = errors.New("source unavailable")

// ProviderFailure is why one provider could not supply a sample.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Err      error  `json:"-"`
	Reason   string `json:"reason"`
}

// SourceUnavailableError lists every provider's failure in the order tried.
type SourceUnavailableError struct {
	Failures []ProviderFailure
}

func (e *SourceUnavailableError) Error() string {
	if len(e.Failures) == 0 {
		return "source unavailable: no providers configured"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Provider + ": " + f.Reason
	}
	return "source unavailable: " + strings.Join(parts, "; ")
}

func (e *SourceUnavailableError) Unwrap() error { return ErrSourceUnavailable }

// SampleResolver produces the sample for one scheduler tick.
type SampleResolver interface {
	Resolve(ctx context.Context) (models.Sample, error)
}

// RankedProvider pairs a provider with its precedence and call timeout.
type RankedProvider struct {
	Provider provider.Provider
	Rank     int
	Timeout  time.Duration
}

type rankedEntry struct {
	RankedProvider
	breaker *Breaker
}

// Resolver tries providers from highest to lowest rank and returns the first
// valid sample.
type Resolver struct {
	entries []rankedEntry
	obs     Observer
	log     *logger.Logger
}

// NewResolver sorts providers by descending rank; equal ranks keep their
// declaration order.
func NewResolver(providers []RankedProvider, breaker BreakerConfig, obs Observer, log *logger.Logger) *Resolver {
	log = logger.OrNop(log)
	entries := make([]rankedEntry, len(providers))
	for i, p := range providers {
		entries[i] = rankedEntry{
			RankedProvider: p,
			breaker:        NewBreaker(p.Provider.Name(), breaker, log),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rank > entries[j].Rank })
	return &Resolver{entries: entries, obs: observerOrNop(obs), log: log}
}

// Order returns provider names in the order they are consulted.
func (r *Resolver) Order() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Provider.Name()
	}
	return names
}

func (r *Resolver) Resolve(ctx context.Context) (models.Sample, error) {
	var failures []ProviderFailure

	for _, e := range r.entries {
		name := e.Provider.Name()

		if err := e.breaker.Allow(); err != nil {
			r.obs.ObserveProviderAttempt(name, outcomeOf(err), 0)
			failures = append(failures, ProviderFailure{Provider: name, Err: err, Reason: err.Error()})
			continue
		}

		start := time.Now()
		s, err := r.fetch(ctx, e)
		elapsed := time.Since(start)
		e.breaker.Record(err)
		r.obs.ObserveProviderAttempt(name, outcomeOf(err), elapsed)

		if err == nil {
			r.log.Debugw("provider_ok", "provider", name, "source", s.Source, "latency", elapsed)
			return s, nil
		}
		r.log.Infow("provider_failed", "provider", name, "kind", outcomeOf(err), "err", err)
		failures = append(failures, ProviderFailure{Provider: name, Err: err, Reason: err.Error()})
	}

	return models.Sample{}, &SourceUnavailableError{Failures: failures}
}

func (r *Resolver) fetch(ctx context.Context, e rankedEntry) (models.Sample, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	s, err := e.Provider.Fetch(ctx)
	if err != nil {
		return models.Sample{}, err
	}
	// A provider that skipped NewSample is still held to the same contract.
	if err := s.Validate(); err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", provider.ErrMalformed, err)
	}
	return s, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, provider.ErrMalformed):
		return "malformed"
	case errors.Is(err, provider.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrBreakerOpen):
		return "breaker_open"
	default:
		return "error"
	}
}
