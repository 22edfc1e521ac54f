package service

import (
	"context"
	"time"

	"smart_environment/internal/models"
)

// Observer receives instrumentation from the resolver, scheduler and
// offline cache. metrics.PromObs implements it.
type Observer interface {
	ObserveProviderAttempt(provider, outcome string, d time.Duration)
	IncResolution(mode, outcome string)
	IncCoalesced()
	SetSample(s models.Sample)
	SetBufferLen(n int)
	SetConsecutiveFailures(n int)
	IncCacheRequest(result string)
}

// EventRecorder appends entries to the activity journal.
type EventRecorder interface {
	Record(ctx context.Context, typ, description string, metadata any)
}

type nopObserver struct{}

func (nopObserver) ObserveProviderAttempt(string, string, time.Duration) {}
func (nopObserver) IncResolution(string, string)                         {}
func (nopObserver) IncCoalesced()                                        {}
func (nopObserver) SetSample(models.Sample)                              {}
func (nopObserver) SetBufferLen(int)                                     {}
func (nopObserver) SetConsecutiveFailures(int)                           {}
func (nopObserver) IncCacheRequest(string)                               {}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, any) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}

func recorderOrNop(r EventRecorder) EventRecorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
