package provider

import "math"

type aqiBreakpoint struct {
	cLow, cHigh float64
	iLow, iHigh float64
}

// US EPA (2012) PM2.5 breakpoints, µg/m³ over 24h.
var pm25Breakpoints = []aqiBreakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 350.4, 301, 400},
	{350.5, 500.4, 401, 500},
}

// PM25ToAQI converts a PM2.5 concentration to the US AQI scale. Values past
// the last breakpoint are capped at 500.
func PM25ToAQI(pm25 float64) float64 {
	if math.IsNaN(pm25) || pm25 <= 0 {
		return 0
	}
	c := math.Floor(pm25*10+1e-9) / 10
	for _, bp := range pm25Breakpoints {
		if c <= bp.cHigh {
			if c < bp.cLow {
				c = bp.cLow
			}
			aqi := (bp.iHigh-bp.iLow)/(bp.cHigh-bp.cLow)*(c-bp.cLow) + bp.iLow
			return math.Round(aqi)
		}
	}
	return 500
}
