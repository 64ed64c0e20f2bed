// Package hub polls a garden hub over HTTP and turns its JSON into sensor
// readings.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"basilcare/plant-hub/internal/model"
)

// ErrBadPayload is returned when a hub response lacks the expected fields.
var ErrBadPayload = errors.New("bad hub payload")

// Payload is the hub's JSON document:
//
//	{"soil": {"percent": 41}, "temperature": {"value": 22.5},
//	 "humidity": {"value": 48}, "light": {"value": 60}}
//
// light is optional.
type Payload struct {
	Soil *struct {
		Percent *float64 `json:"percent"`
	} `json:"soil"`
	Temperature *valueField `json:"temperature"`
	Humidity    *valueField `json:"humidity"`
	Light       *valueField `json:"light,omitempty"`
}

type valueField struct {
	Value *float64 `json:"value"`
}

// Decoder converts hub payloads into readings.
type Decoder struct {
	// Unit is the unit the hub reports temperature in.
	Unit model.TemperatureUnit
	// LightFallback substitutes EstimateLight when the hub sends no light value.
	LightFallback bool
}

// Decode parses raw into a reading stamped at now.
func (d Decoder) Decode(raw []byte, now time.Time) (model.SensorReading, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.SensorReading{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch {
	case p.Soil == nil || p.Soil.Percent == nil:
		return model.SensorReading{}, fmt.Errorf("%w: missing soil.percent", ErrBadPayload)
	case p.Temperature == nil || p.Temperature.Value == nil:
		return model.SensorReading{}, fmt.Errorf("%w: missing temperature.value", ErrBadPayload)
	case p.Humidity == nil || p.Humidity.Value == nil:
		return model.SensorReading{}, fmt.Errorf("%w: missing humidity.value", ErrBadPayload)
	}

	r := model.SensorReading{
		SoilMoisture: *p.Soil.Percent,
		Temperature:  math.Round(model.ToCelsius(*p.Temperature.Value, d.Unit)*10) / 10,
		Humidity:     *p.Humidity.Value,
		Timestamp:    now.UTC(),
	}

	switch {
	case p.Light != nil && p.Light.Value != nil:
		r.Light = *p.Light.Value
	case d.LightFallback:
		r.Light = EstimateLight(now)
	}

	return r, nil
}

// EstimateLight approximates light level from local time of day: 0 before
// 06:00 and after 20:00, rising on a sine curve to 80 at 13:00.
func EstimateLight(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60
	if h <= 6 || h >= 20 {
		return 0
	}
	v := 80 * math.Sin(math.Pi*(h-6)/14)
	return math.Round(v*10) / 10
}

// Doer is the subset of http.Client the poller needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sink receives each successfully decoded reading.
type Sink func(ctx context.Context, plantID string, r model.SensorReading) error

// Poller fetches the hub on a fixed interval.
type Poller struct {
	URL      string
	PlantID  string
	Interval time.Duration
	Decoder  Decoder
	Client   Doer
	Sink     Sink
	Logger   *slog.Logger

	// OnError is called with payloads that fail to decode; optional.
	OnError func(ctx context.Context, plantID string, payload []byte, err error)

	now func() time.Time
}

// Run polls immediately and then every Interval until ctx is done. Fetch and
// sink failures are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return fmt.Errorf("hub poller: interval must be positive")
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Logger.Info("hub poller started", "url", p.URL, "plant", p.PlantID, "interval", p.Interval)
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("hub poller stopped")
			return nil
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := p.fetch(reqCtx)
	if err != nil {
		if ctx.Err() == nil {
			p.Logger.Warn("hub poll failed", "url", p.URL, "error", err)
		}
		return
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}

	reading, err := p.Decoder.Decode(raw, now())
	if err != nil {
		p.Logger.Warn("hub payload rejected", "plant", p.PlantID, "error", err)
		if p.OnError != nil {
			p.OnError(ctx, p.PlantID, raw, err)
		}
		return
	}

	if err := p.Sink(ctx, p.PlantID, reading); err != nil {
		p.Logger.Error("hub reading not stored", "plant", p.PlantID, "error", err)
	}
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build hub request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch hub: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read hub response: %w", err)
	}
	return raw, nil
}
