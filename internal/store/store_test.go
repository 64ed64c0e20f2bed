package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilcare/plant-hub/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "plants.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func reading(ts time.Time, moisture float64) model.SensorReading {
	return model.SensorReading{SoilMoisture: moisture, Temperature: 22, Humidity: 50, Light: 60, Timestamp: ts}
}

func TestSensorReadingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSensorReading(ctx, "basil", "mqtt", reading(base.Add(2*time.Hour), 40)))
	require.NoError(t, s.InsertSensorReading(ctx, "basil", "mqtt", reading(base, 30)))
	require.NoError(t, s.InsertSensorReading(ctx, "basil", "hub", reading(base.Add(time.Hour), 35)))
	require.NoError(t, s.InsertSensorReading(ctx, "mint", "mqtt", reading(base, 90)))

	history, err := s.SensorHistory(ctx, "basil", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []float64{30, 35, 40}, []float64{history[0].SoilMoisture, history[1].SoilMoisture, history[2].SoilMoisture})
	assert.True(t, history[0].Timestamp.Equal(base))

	recent, err := s.RecentSensorReadings(ctx, "basil", 2, nil)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 40.0, recent[0].SoilMoisture)
	assert.Equal(t, "basil", recent[0].PlantID)
	assert.Equal(t, "hub", recent[1].Source)

	since := base.Add(30 * time.Minute)
	after, err := s.RecentSensorReadings(ctx, "basil", 10, &since)
	require.NoError(t, err)
	assert.Len(t, after, 2)

	latest, err := s.LatestSensorReading(ctx, "mint")
	require.NoError(t, err)
	assert.Equal(t, 90.0, latest.SoilMoisture)

	all, err := s.AllSensorReadings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSensorReadingSameTimestampReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertSensorReading(ctx, "basil", "mqtt", reading(ts, 30)))
	require.NoError(t, s.InsertSensorReading(ctx, "basil", "mqtt", reading(ts, 45)))

	history, err := s.SensorHistory(ctx, "basil", ts.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 45.0, history[0].SoilMoisture)
}

func TestLatestSensorReadingNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LatestSensorReading(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCareEvents(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	first, err := s.InsertCareEvent(ctx, model.CareEvent{PlantID: "basil", Action: "watered", Timestamp: base})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.InsertCareEvent(ctx, model.CareEvent{ID: "fixed", PlantID: "basil", Action: "pruned", Notes: "top leaves", Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)

	_, err = s.InsertCareEvent(ctx, model.CareEvent{PlantID: "basil", Action: "misted", Timestamp: base.Add(-48 * time.Hour)})
	require.NoError(t, err)

	events, err := s.CareEvents(ctx, "basil", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "fixed", events[0].ID)
	assert.Equal(t, "top leaves", events[0].Notes)
	assert.Equal(t, first.ID, events[1].ID)
	assert.True(t, events[1].Timestamp.Equal(base))

	_, err = s.InsertCareEvent(ctx, model.CareEvent{ID: "fixed", PlantID: "basil", Action: "pruned"})
	assert.Error(t, err, "duplicate ids are rejected")
}

func TestAppConfigAndWipe(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.UpsertAppConfig(ctx, "weather_units", "metric"))
	require.NoError(t, s.UpsertAppConfig(ctx, "weather_units", "imperial"))
	require.NoError(t, s.InsertSensorReading(ctx, "basil", "mqtt", reading(time.Now(), 50)))
	require.NoError(t, s.InsertIngestionError(ctx, model.IngestionError{PlantID: "basil", Source: "mqtt", Payload: "{", Error: "bad json"}))

	n, err := s.CountIngestionErrors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.WipeData(ctx))

	all, err := s.AllSensorReadings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err = s.CountIngestionErrors(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	cfg, err := s.AppConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"weather_units": "imperial"}, cfg)
}

func TestUninitializedStore(t *testing.T) {
	var s Store
	assert.Error(t, s.InsertSensorReading(context.Background(), "basil", "", model.SensorReading{}))
	assert.NoError(t, s.Close())
}
