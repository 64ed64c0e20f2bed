// Package weather fetches the forecast used to adjust care recommendations.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"basilcare/plant-hub/internal/model"
)

// ErrUnavailable is returned when no forecast source is configured.
var ErrUnavailable = errors.New("weather unavailable")

// Provider returns the current forecast with temperatures in Celsius.
type Provider interface {
	Forecast(ctx context.Context) (*model.Forecast, error)
}

// Doer is the subset of http.Client used by HTTPProvider.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider reads a forecast document from a JSON endpoint:
//
//	{"temperature": 24, "condition": "Sunny", "humidity": 40,
//	 "forecast": [{"day": "tomorrow", "condition": "Rain", "temperature": 19}]}
type HTTPProvider struct {
	url    string
	units  model.TemperatureUnit
	client Doer
}

// NewHTTPProvider builds a provider for url whose temperatures are in units.
func NewHTTPProvider(url string, units model.TemperatureUnit, client Doer) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{url: url, units: units, client: client}
}

// Forecast fetches and normalizes the forecast.
func (p *HTTPProvider) Forecast(ctx context.Context) (*model.Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch weather: unexpected status %d", resp.StatusCode)
	}

	var f model.Forecast
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode weather: %w", err)
	}

	return Normalize(&f, p.units), nil
}

// Normalize converts every temperature in f from units to Celsius. f is not
// modified.
func Normalize(f *model.Forecast, units model.TemperatureUnit) *model.Forecast {
	if f == nil {
		return nil
	}
	out := *f
	if f.Temperature != nil {
		c := model.ToCelsius(*f.Temperature, units)
		out.Temperature = &c
	}
	if f.Humidity != nil {
		h := *f.Humidity
		out.Humidity = &h
	}
	if f.Days != nil {
		out.Days = make([]model.ForecastDay, len(f.Days))
		for i, d := range f.Days {
			d.Temperature = model.ToCelsius(d.Temperature, units)
			out.Days[i] = d
		}
	}
	return &out
}

// StaticProvider serves a fixed forecast. A nil forecast yields ErrUnavailable.
type StaticProvider struct {
	f *model.Forecast
}

// NewStaticProvider returns a provider that always answers with f.
func NewStaticProvider(f *model.Forecast) *StaticProvider {
	return &StaticProvider{f: f}
}

// Forecast returns a copy of the fixed forecast.
func (p *StaticProvider) Forecast(context.Context) (*model.Forecast, error) {
	if p.f == nil {
		return nil, ErrUnavailable
	}
	return Normalize(p.f, model.Celsius), nil
}
