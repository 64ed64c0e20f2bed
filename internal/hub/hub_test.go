package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"basilcare/plant-hub/internal/model"
)

var noon = time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)

func TestDecode(t *testing.T) {
	d := Decoder{Unit: model.Celsius}
	r, err := d.Decode([]byte(`{"soil":{"percent":41},"temperature":{"value":22.46},"humidity":{"value":48},"light":{"value":70}}`), noon)
	require.NoError(t, err)
	assert.Equal(t, 41.0, r.SoilMoisture)
	assert.Equal(t, 22.5, r.Temperature)
	assert.Equal(t, 48.0, r.Humidity)
	assert.Equal(t, 70.0, r.Light)
	assert.True(t, r.Timestamp.Equal(noon))
}

func TestDecodeFahrenheitAndLightFallback(t *testing.T) {
	d := Decoder{Unit: model.Fahrenheit, LightFallback: true}
	r, err := d.Decode([]byte(`{"soil":{"percent":41},"temperature":{"value":77},"humidity":{"value":48}}`), noon)
	require.NoError(t, err)
	assert.Equal(t, 25.0, r.Temperature)
	assert.Equal(t, 80.0, r.Light)

	d.LightFallback = false
	r, err = d.Decode([]byte(`{"soil":{"percent":41},"temperature":{"value":77},"humidity":{"value":48}}`), noon)
	require.NoError(t, err)
	assert.Zero(t, r.Light)
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	payloads := []string{
		`not json`,
		`{}`,
		`{"soil":{},"temperature":{"value":20},"humidity":{"value":40}}`,
		`{"soil":{"percent":40},"humidity":{"value":40}}`,
		`{"soil":{"percent":40},"temperature":{"value":20}}`,
	}
	for _, raw := range payloads {
		_, err := Decoder{}.Decode([]byte(raw), noon)
		assert.ErrorIs(t, err, ErrBadPayload, raw)
	}
}

func TestEstimateLight(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC) }

	assert.Zero(t, EstimateLight(at(3, 0)))
	assert.Zero(t, EstimateLight(at(6, 0)))
	assert.Zero(t, EstimateLight(at(22, 30)))
	assert.Equal(t, 80.0, EstimateLight(at(13, 0)))
	assert.Greater(t, EstimateLight(at(10, 0)), EstimateLight(at(7, 0)))
	assert.Greater(t, EstimateLight(at(13, 0)), EstimateLight(at(17, 0)))
}

func TestPollerDeliversReadings(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"soil":{"percent":41},"temperature":{"value":22},"humidity":{"value":48},"light":{"value":60}}`))
	}))
	defer srv.Close()

	var (
		mu  sync.Mutex
		got []model.SensorReading
	)
	enough := make(chan struct{})

	p := &Poller{
		URL:      srv.URL,
		PlantID:  "basil",
		Interval: 10 * time.Millisecond,
		Client:   srv.Client(),
		Sink: func(ctx context.Context, plantID string, r model.SensorReading) error {
			assert.Equal(t, "basil", plantID)
			mu.Lock()
			defer mu.Unlock()
			got = append(got, r)
			if len(got) == 2 {
				close(enough)
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-enough:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not deliver two readings")
	}
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 41.0, got[0].SoilMoisture)
}

func TestPollerReportsBadPayloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"soil":{"percent":41}}`))
	}))
	defer srv.Close()

	rejected := make(chan error, 1)
	p := &Poller{
		URL:      srv.URL,
		PlantID:  "basil",
		Interval: time.Hour,
		Client:   srv.Client(),
		Sink: func(context.Context, string, model.SensorReading) error {
			t.Error("sink must not see a bad payload")
			return nil
		},
		OnError: func(_ context.Context, plantID string, payload []byte, err error) {
			rejected <- err
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-rejected:
		assert.True(t, errors.Is(err, ErrBadPayload))
	case <-time.After(2 * time.Second):
		t.Fatal("bad payload was not reported")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestPollerRequiresInterval(t *testing.T) {
	p := &Poller{}
	assert.Error(t, p.Run(context.Background()))
}
