package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smart_environment/internal/models"
)

const maxBodyBytes = 1 << 20 // 1 MB

// FieldMap locates the reading fields inside a JSON document using dot
// paths; numeric segments index arrays ("list.0.main.aqi").
type FieldMap struct {
	Temperature string `mapstructure:"temperature"`
	Humidity    string `mapstructure:"humidity"`
	AirQuality  string `mapstructure:"air_quality"`
	CapturedAt  string `mapstructure:"captured_at"` // optional; RFC3339 or unix time
}

func (f *FieldMap) applyDefaults() {
	if f.Temperature == "" {
		f.Temperature = "temp"
	}
	if f.Humidity == "" {
		f.Humidity = "humidity"
	}
	if f.AirQuality == "" {
		f.AirQuality = "aqi"
	}
}

// getJSON issues a GET and decodes the body, mapping every failure onto the
// provider error kinds.
func getJSON(ctx context.Context, client Doer, rawURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", ErrUnavailable, redactURL(rawURL), err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(ctx, redactURL(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, redactURL(rawURL), resp.StatusCode)
	}

	doc, err := decodeDocument(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ctx, redactURL(rawURL), err)
		}
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformed, redactURL(rawURL), err)
	}
	return doc, nil
}

func decodeJSON(payload []byte) (any, error) {
	doc, err := decodeDocument(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrMalformed, err)
	}
	return doc, nil
}

var errTrailingData = errors.New("unexpected data after JSON document")

// decodeDocument reads exactly one JSON value; anything but whitespace after
// it is an error.
func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return doc, nil
}

func transportError(ctx context.Context, target string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, target, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, target, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, target, err)
}

// redactURL drops the query string, which may carry API keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

func lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func lookupNumber(doc any, path string) (float64, error) {
	v, ok := lookup(doc, path)
	if !ok {
		return 0, fmt.Errorf("%w: field %q missing", ErrMalformed, path)
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %v", ErrMalformed, path, err)
		}
		return f, nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: field %q is not numeric (%T)", ErrMalformed, path, v)
	}
}

// lookupAirQuality maps a JSON number to the numeric arm and a string to the
// qualitative arm.
func lookupAirQuality(doc any, path string) (models.AirQuality, error) {
	v, ok := lookup(doc, path)
	if !ok {
		return models.AirQuality{}, fmt.Errorf("%w: field %q missing", ErrMalformed, path)
	}
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return models.AirQuality{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, path, err)
		}
		return models.NumericAirQuality(f), nil
	case float64:
		return models.NumericAirQuality(x), nil
	case string:
		l, err := models.ParseLabel(x)
		if err != nil {
			return models.AirQuality{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, path, err)
		}
		return models.QualitativeAirQuality(l), nil
	default:
		return models.AirQuality{}, fmt.Errorf("%w: field %q has unsupported type %T", ErrMalformed, path, v)
	}
}

func lookupTime(doc any, path string, fallback time.Time) (time.Time, error) {
	if path == "" {
		return fallback, nil
	}
	v, ok := lookup(doc, path)
	if !ok {
		return fallback, nil
	}
	switch x := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, path, err)
		}
		return t, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, path, err)
		}
		if n > 1e12 { // milliseconds
			return time.UnixMilli(n), nil
		}
		return time.Unix(n, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: field %q has unsupported type %T", ErrMalformed, path, v)
	}
}

// sampleFromDoc applies a FieldMap to a decoded document.
func sampleFromDoc(doc any, f FieldMap, src models.Source, now time.Time) (models.Sample, error) {
	temp, err := lookupNumber(doc, f.Temperature)
	if err != nil {
		return models.Sample{}, err
	}
	hum, err := lookupNumber(doc, f.Humidity)
	if err != nil {
		return models.Sample{}, err
	}
	aq, err := lookupAirQuality(doc, f.AirQuality)
	if err != nil {
		return models.Sample{}, err
	}
	at, err := lookupTime(doc, f.CapturedAt, now)
	if err != nil {
		return models.Sample{}, err
	}
	s, err := models.NewSample(temp, hum, aq, at, src)
	if err != nil {
		return models.Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}
