package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilcare/plant-hub/internal/model"
)

func TestHTTPProviderConvertsFahrenheit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperature": 86, "condition": "Sunny", "humidity": 35,
			"forecast": [{"day": "tomorrow", "condition": "Light Rain", "temperature": 68}]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, model.Fahrenheit, srv.Client())
	f, err := p.Forecast(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f.Temperature)
	assert.InDelta(t, 30.0, *f.Temperature, 0.01)
	assert.Equal(t, "Sunny", f.Condition)
	require.Len(t, f.Days, 1)
	assert.InDelta(t, 20.0, f.Days[0].Temperature, 0.01)
	assert.Equal(t, "Light Rain", f.Days[0].Condition)
}

func TestHTTPProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`{"temperature": "warm"`))
			return
		}
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPProvider(srv.URL, model.Celsius, srv.Client()).Forecast(context.Background())
	assert.Error(t, err)

	_, err = NewHTTPProvider(srv.URL+"/bad", model.Celsius, srv.Client()).Forecast(context.Background())
	assert.Error(t, err)
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	temp := 50.0
	in := &model.Forecast{Temperature: &temp, Days: []model.ForecastDay{{Day: "today", Temperature: 50}}}

	out := Normalize(in, model.Fahrenheit)

	assert.InDelta(t, 10.0, *out.Temperature, 0.01)
	assert.InDelta(t, 10.0, out.Days[0].Temperature, 0.01)
	assert.Equal(t, 50.0, *in.Temperature)
	assert.Equal(t, 50.0, in.Days[0].Temperature)
	assert.Nil(t, Normalize(nil, model.Celsius))
}

func TestStaticProvider(t *testing.T) {
	_, err := NewStaticProvider(nil).Forecast(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	temp := 21.0
	f, err := NewStaticProvider(&model.Forecast{Temperature: &temp, Condition: "Cloudy"}).Forecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cloudy", f.Condition)
}
