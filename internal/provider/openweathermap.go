package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"smart_environment/internal/models"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig configures the public weather fallback.
type OpenWeatherConfig struct {
	BaseURL string  `mapstructure:"base_url"`
	APIKey  string  `mapstructure:"api_key"`
	City    string  `mapstructure:"city"`
	Lat     float64 `mapstructure:"lat"`
	Lon     float64 `mapstructure:"lon"`
	Units   string  `mapstructure:"units"`
}

func (c *OpenWeatherConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultOpenWeatherBaseURL
	}
	if c.City == "" {
		c.City = "Semarang"
	}
	if c.Lat == 0 && c.Lon == 0 {
		c.Lat, c.Lon = -6.9667, 110.4167
	}
	if c.Units == "" {
		c.Units = "metric"
	}
}

// OpenWeatherMap combines the current-weather and air-pollution endpoints
// into one Sample.
type OpenWeatherMap struct {
	name   string
	source models.Source
	cfg    OpenWeatherConfig
	client Doer
	clock  func() time.Time
}

func NewOpenWeatherMap(name string, src models.Source, cfg OpenWeatherConfig, opts Options) *OpenWeatherMap {
	opts = opts.withDefaults()
	cfg.applyDefaults()
	return &OpenWeatherMap{
		name:   name,
		source: src,
		cfg:    cfg,
		client: opts.Client,
		clock:  opts.Clock,
	}
}

func (p *OpenWeatherMap) Name() string          { return p.name }
func (p *OpenWeatherMap) Source() models.Source { return p.source }

func (p *OpenWeatherMap) weatherURL() string {
	q := url.Values{}
	q.Set("q", p.cfg.City)
	q.Set("units", p.cfg.Units)
	q.Set("appid", p.cfg.APIKey)
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/weather?" + q.Encode()
}

func (p *OpenWeatherMap) airURL() string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.cfg.Lon, 'f', -1, 64))
	q.Set("appid", p.cfg.APIKey)
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/air_pollution?" + q.Encode()
}

func (p *OpenWeatherMap) Fetch(ctx context.Context) (models.Sample, error) {
	var weather, air any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := getJSON(gctx, p.client, p.weatherURL())
		weather = doc
		return err
	})
	g.Go(func() error {
		doc, err := getJSON(gctx, p.client, p.airURL())
		air = doc
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Sample{}, err
	}

	temp, err := lookupNumber(weather, "main.temp")
	if err != nil {
		return models.Sample{}, err
	}
	hum, err := lookupNumber(weather, "main.humidity")
	if err != nil {
		return models.Sample{}, err
	}
	aq, err := openWeatherAirQuality(air)
	if err != nil {
		return models.Sample{}, err
	}
	at, err := lookupTime(weather, "dt", p.clock())
	if err != nil {
		return models.Sample{}, err
	}

	s, err := models.NewSample(temp, hum, aq, at, p.source)
	if err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// openWeatherAirQuality prefers the PM2.5 concentration converted to US AQI
// and falls back to the 1-5 index, where 4 and above reads as Buruk.
func openWeatherAirQuality(doc any) (models.AirQuality, error) {
	if pm, err := lookupNumber(doc, "list.0.components.pm2_5"); err == nil {
		return models.NumericAirQuality(PM25ToAQI(pm)), nil
	}
	idx, err := lookupNumber(doc, "list.0.main.aqi")
	if err != nil {
		return models.AirQuality{}, err
	}
	if idx >= 4 {
		return models.QualitativeAirQuality(models.LabelBuruk), nil
	}
	return models.QualitativeAirQuality(models.LabelBaik), nil
}
