// Package metrics exports resolver, scheduler and offline cache
// instrumentation to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"smart_environment/internal/models"
)

type PromObs struct {
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	resolutions      *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	counters         map[string]prometheus.Counter
	gauges           map[string]prometheus.Gauge
}

// NewPromObs registers every collector on reg; a nil reg uses the default
// registerer.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartenv_provider_attempts_total",
		Help: "Provider fetch attempts by provider and outcome.",
	}, []string{"provider", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smartenv_provider_latency_seconds",
		Help:    "Provider fetch latency.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"provider"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartenv_resolutions_total",
		Help: "Scheduler resolutions by mode and outcome.",
	}, []string{"mode", "outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smartenv_cache_requests_total",
		Help: "Offline cache lookups by result (hit, miss, error).",
	}, []string{"result"})
	coalesced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smartenv_resolutions_coalesced_total",
		Help: "Ticks or triggers dropped because a resolution was already in flight.",
	})
	temp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartenv_temperature_celsius",
		Help: "Temperature of the latest sample.",
	})
	hum := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartenv_humidity_percent",
		Help: "Humidity of the latest sample.",
	})
	aqi := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartenv_air_quality_index",
		Help: "Numeric air quality of the latest sample (qualitative samples are not exported).",
	})
	bufLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartenv_buffer_length",
		Help: "Samples currently held in the rolling window.",
	})
	failures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartenv_consecutive_failures",
		Help: "Consecutive failed resolutions.",
	})

	reg.MustRegister(attempts, latency, resolutions, cache, coalesced, temp, hum, aqi, bufLen, failures)

	return &PromObs{
		providerAttempts: attempts,
		providerLatency:  latency,
		resolutions:      resolutions,
		cacheRequests:    cache,
		counters: map[string]prometheus.Counter{
			"smartenv_resolutions_coalesced_total": coalesced,
		},
		gauges: map[string]prometheus.Gauge{
			"smartenv_temperature_celsius":  temp,
			"smartenv_humidity_percent":     hum,
			"smartenv_air_quality_index":    aqi,
			"smartenv_buffer_length":        bufLen,
			"smartenv_consecutive_failures": failures,
		},
	}
}

func (p *PromObs) ObserveProviderAttempt(provider, outcome string, d time.Duration) {
	p.providerAttempts.WithLabelValues(provider, outcome).Inc()
	p.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (p *PromObs) IncResolution(mode, outcome string) {
	p.resolutions.WithLabelValues(mode, outcome).Inc()
}

func (p *PromObs) IncCoalesced() {
	p.counters["smartenv_resolutions_coalesced_total"].Inc()
}

func (p *PromObs) SetSample(s models.Sample) {
	p.gauges["smartenv_temperature_celsius"].Set(s.TemperatureC)
	p.gauges["smartenv_humidity_percent"].Set(s.HumidityPct)
	if v, ok := s.AirQuality.Numeric(); ok {
		p.gauges["smartenv_air_quality_index"].Set(v)
	}
}

func (p *PromObs) SetBufferLen(n int) {
	p.gauges["smartenv_buffer_length"].Set(float64(n))
}

func (p *PromObs) SetConsecutiveFailures(n int) {
	p.gauges["smartenv_consecutive_failures"].Set(float64(n))
}

func (p *PromObs) IncCacheRequest(result string) {
	p.cacheRequests.WithLabelValues(result).Inc()
}
