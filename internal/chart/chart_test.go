package chart

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"smart_environment/internal/models"
)

func samples(t *testing.T, n int, flat bool) []models.Sample {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		temp, hum := 25.0, 60.0
		if !flat {
			temp += float64(i) * 0.4
			hum -= float64(i)
		}
		s, err := models.NewSample(temp, hum, models.NumericAirQuality(40+float64(i)), base.Add(time.Duration(i)*5*time.Second), models.SourceSimulated)
		if err != nil {
			t.Fatalf("NewSample: %v", err)
		}
		out = append(out, s)
	}
	return out
}

// sharedTimestamp mirrors an upstream that only refreshes its observation
// time every few minutes while the dashboard keeps polling.
func sharedTimestamp(t *testing.T, n int, label ...models.QualitativeLabel) []models.Sample {
	t.Helper()
	at := time.Date(2025, 3, 1, 9, 10, 0, 0, time.UTC)
	out := make([]models.Sample, 0, n)
	for i := 0; i < n; i++ {
		aq := models.NumericAirQuality(55 + float64(i))
		if len(label) > 0 {
			aq = models.QualitativeAirQuality(label[0])
		}
		s, err := models.NewSample(24+float64(i), 58, aq, at, models.SourceRemote)
		if err != nil {
			t.Fatalf("NewSample: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func TestRenderPNG(t *testing.T) {
	pngSig := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	tests := []struct {
		name string
		in   []models.Sample
	}{
		{name: "varying", in: samples(t, 10, false)},
		{name: "flat values", in: samples(t, 3, true)},
		{name: "shared timestamp", in: sharedTimestamp(t, 3)},
		{name: "shared timestamp qualitative air", in: sharedTimestamp(t, 2, models.LabelBaik)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderPNG(&buf, tt.in, Options{Width: 400, Height: 200}); err != nil {
				t.Fatalf("RenderPNG: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngSig) {
				t.Fatalf("output is not a PNG")
			}
		})
	}
}

func TestRenderPNG_NotEnoughPoints(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, samples(t, 1, false), Options{}); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("expected ErrNotEnoughPoints, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %d bytes", buf.Len())
	}
}
