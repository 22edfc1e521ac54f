package provider

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"smart_environment/internal/models"
)

// SimulationConfig shapes the random walk.
type SimulationConfig struct {
	Seed        uint64  `mapstructure:"seed"`
	StartTempC  float64 `mapstructure:"start_temp_c"`
	StartHumPct float64 `mapstructure:"start_humidity_pct"`
	StartAQI    float64 `mapstructure:"start_aqi"`
	TempStep    float64 `mapstructure:"temp_step"`
	HumStep     float64 `mapstructure:"humidity_step"`
	AQIStep     float64 `mapstructure:"aqi_step"`
	MinTempC    float64 `mapstructure:"min_temp_c"`
	MaxTempC    float64 `mapstructure:"max_temp_c"`
	MinHumPct   float64 `mapstructure:"min_humidity_pct"`
	MaxHumPct   float64 `mapstructure:"max_humidity_pct"`
	MaxAQI      float64 `mapstructure:"max_aqi"`
	// Qualitative emits Baik/Buruk labels instead of a numeric index.
	Qualitative bool `mapstructure:"qualitative"`
	// QualitativeCutoff is the walked index above which the label is Buruk.
	QualitativeCutoff float64 `mapstructure:"qualitative_cutoff"`
}

// DefaultSimulationConfig is the stock walk: 20..35 °C, 40..90 % humidity
// and an index between 0 and 200 starting at 50.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		StartTempC:        25,
		StartHumPct:       60,
		StartAQI:          50,
		TempStep:          2,
		HumStep:           5,
		AQIStep:           10,
		MinTempC:          20,
		MaxTempC:          35,
		MinHumPct:         40,
		MaxHumPct:         90,
		MaxAQI:            200,
		QualitativeCutoff: 100,
	}
}

// ApplyDefaults swaps a config with no walk parameters for the stock walk,
// keeping Seed and Qualitative. Any other config is used as given, so zero
// is a valid bound or start value.
func (c *SimulationConfig) ApplyDefaults() {
	walk := *c
	walk.Seed, walk.Qualitative = 0, false
	if walk != (SimulationConfig{}) {
		return
	}
	d := DefaultSimulationConfig()
	d.Seed, d.Qualitative = c.Seed, c.Qualitative
	*c = d
}

func (c SimulationConfig) Validate() error {
	if c.MinTempC >= c.MaxTempC {
		return fmt.Errorf("simulation: min_temp_c %.1f must be below max_temp_c %.1f", c.MinTempC, c.MaxTempC)
	}
	if c.MinHumPct >= c.MaxHumPct {
		return fmt.Errorf("simulation: min_humidity_pct %.1f must be below max_humidity_pct %.1f", c.MinHumPct, c.MaxHumPct)
	}
	if c.MaxAQI <= 0 {
		return fmt.Errorf("simulation: max_aqi must be positive")
	}
	if c.TempStep < 0 || c.HumStep < 0 || c.AQIStep < 0 {
		return fmt.Errorf("simulation: steps must not be negative")
	}
	return nil
}

// Simulated walks temperature, humidity and air quality from their previous
// values so consecutive samples look like a real room.
type Simulated struct {
	name   string
	source models.Source
	cfg    SimulationConfig
	clock  func() time.Time

	mu   sync.Mutex
	rng  *rand.Rand
	temp float64
	hum  float64
	aqi  float64
}

func NewSimulated(name string, src models.Source, cfg SimulationConfig, opts Options) *Simulated {
	opts = opts.withDefaults()
	cfg.ApplyDefaults()
	rng := opts.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &Simulated{
		name:   name,
		source: src,
		cfg:    cfg,
		clock:  opts.Clock,
		rng:    rng,
		temp:   cfg.StartTempC,
		hum:    cfg.StartHumPct,
		aqi:    cfg.StartAQI,
	}
}

func (p *Simulated) Name() string          { return p.name }
func (p *Simulated) Source() models.Source { return p.source }

func (p *Simulated) Fetch(ctx context.Context) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	p.mu.Lock()
	p.temp = clamp(p.temp+(p.rng.Float64()-0.5)*p.cfg.TempStep, p.cfg.MinTempC, p.cfg.MaxTempC)
	p.hum = clamp(p.hum+(p.rng.Float64()-0.5)*p.cfg.HumStep, p.cfg.MinHumPct, p.cfg.MaxHumPct)
	p.aqi = clamp(p.aqi+(p.rng.Float64()-0.5)*p.cfg.AQIStep, 0, p.cfg.MaxAQI)
	temp, hum, aqi := round1(p.temp), round1(p.hum), round1(p.aqi)
	p.mu.Unlock()

	aq := models.NumericAirQuality(aqi)
	if p.cfg.Qualitative {
		label := models.LabelBaik
		if aqi > p.cfg.QualitativeCutoff {
			label = models.LabelBuruk
		}
		aq = models.QualitativeAirQuality(label)
	}
	return models.NewSample(temp, hum, aq, p.clock(), p.source)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
