// Package provider holds the data sources a resolver can consult: local
// sensor endpoints, public weather APIs, MQTT-pushed telemetry and the
// synthetic generator.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"smart_environment/internal/logger"
	"smart_environment/internal/models"
)

// Failure kinds. The resolver recovers all of them by moving on to the next
// provider.
var (
	ErrTimeout     = errors.New("provider timeout")
	ErrMalformed   = errors.New("provider payload malformed")
	ErrUnavailable = errors.New("provider unavailable")
)

// Provider produces one canonical Sample per call.
type Provider interface {
	Name() string
	Source() models.Source
	Fetch(ctx context.Context) (models.Sample, error)
}

// Lifecycle is implemented by providers that hold a connection open.
type Lifecycle interface {
	Start(ctx context.Context) error
	Close()
}

// Doer is the injectable HTTP capability; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Kind selects the provider implementation.
type Kind string

const (
	KindHTTPJSON       Kind = "http_json"
	KindOpenWeatherMap Kind = "openweathermap"
	KindMQTT           Kind = "mqtt"
	KindSimulated      Kind = "simulated"
)

const defaultTimeout = 5 * time.Second

// Descriptor is one entry of the resolver's provider list in config.yml.
type Descriptor struct {
	Name        string            `mapstructure:"name"`
	Kind        Kind              `mapstructure:"kind"`
	Source      string            `mapstructure:"source"`
	Rank        int               `mapstructure:"rank"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	URL         string            `mapstructure:"url"`
	Fields      FieldMap          `mapstructure:"fields"`
	OpenWeather OpenWeatherConfig `mapstructure:"openweather"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
}

// ApplyDefaults fills the zero fields of d.
func (d *Descriptor) ApplyDefaults() {
	if d.Timeout <= 0 {
		d.Timeout = defaultTimeout
	}
	if d.Source == "" {
		switch d.Kind {
		case KindOpenWeatherMap:
			d.Source = string(models.SourceRemote)
		case KindSimulated:
			d.Source = string(models.SourceSimulated)
		default:
			d.Source = string(models.SourceLocal)
		}
	}
	if d.Name == "" {
		d.Name = string(d.Kind)
	}
	d.Fields.applyDefaults()
	switch d.Kind {
	case KindOpenWeatherMap:
		d.OpenWeather.applyDefaults()
	case KindMQTT:
		d.MQTT.applyDefaults(d.Name)
	case KindSimulated:
		d.Simulation.ApplyDefaults()
	}
}

// Validate checks the fields the chosen kind needs.
func (d Descriptor) Validate() error {
	if _, err := models.ParseSource(d.Source); err != nil {
		return fmt.Errorf("provider %q: %w", d.Name, err)
	}
	switch d.Kind {
	case KindHTTPJSON:
		if !strings.HasPrefix(d.URL, "http://") && !strings.HasPrefix(d.URL, "https://") {
			return fmt.Errorf("provider %q: url must be http(s), got %q", d.Name, d.URL)
		}
	case KindOpenWeatherMap:
		if d.OpenWeather.APIKey == "" {
			return fmt.Errorf("provider %q: openweather.api_key is required", d.Name)
		}
	case KindMQTT:
		if d.MQTT.Broker == "" || d.MQTT.Topic == "" {
			return fmt.Errorf("provider %q: mqtt.broker and mqtt.topic are required", d.Name)
		}
	case KindSimulated:
		return d.Simulation.Validate()
	default:
		return fmt.Errorf("provider %q: unknown kind %q", d.Name, d.Kind)
	}
	return nil
}

// Options carries the shared dependencies of every provider.
type Options struct {
	Client Doer
	Clock  func() time.Time
	Logger *logger.Logger
	Rand   *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}

// New builds the provider described by d. d should already have defaults applied.
func New(d Descriptor, opts Options) (Provider, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	src := models.Source(d.Source)

	switch d.Kind {
	case KindHTTPJSON:
		return NewHTTPJSON(d.Name, src, d.URL, d.Fields, opts), nil
	case KindOpenWeatherMap:
		return NewOpenWeatherMap(d.Name, src, d.OpenWeather, opts), nil
	case KindMQTT:
		return NewMQTT(d.Name, src, d.MQTT, d.Fields, opts), nil
	case KindSimulated:
		return NewSimulated(d.Name, src, d.Simulation, opts), nil
	default:
		return nil, fmt.Errorf("provider %q: unknown kind %q", d.Name, d.Kind)
	}
}
