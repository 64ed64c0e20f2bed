package ecology

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilcare/plant-hub/internal/model"
)

func reading(moisture, temp, humidity, light float64) model.SensorReading {
	return model.SensorReading{
		SoilMoisture: moisture,
		Temperature:  temp,
		Humidity:     humidity,
		Light:        light,
		Timestamp:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func ptr(v float64) *float64 { return &v }

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		param Parameter
		value float64
		want  Level
	}{
		{Moisture, 30, Optimal},
		{Moisture, 29.9, Low},
		{Moisture, 75, Optimal},
		{Moisture, 75.1, High},
		{Temperature, 21, Optimal},
		{Temperature, 20.9, Low},
		{Temperature, 30, Optimal},
		{Temperature, 30.1, High},
		{Humidity, 40, Optimal},
		{Humidity, 39.9, Low},
		{Humidity, 70, Optimal},
		{Humidity, 70.1, High},
		{Light, 30, Optimal},
		{Light, 29.9, Low},
		{Light, 80, Optimal},
		{Light, 80.1, High},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.param, tc.value), "%s=%v", tc.param, tc.value)
	}
}

func TestOptimalBand(t *testing.T) {
	b, ok := OptimalBand(Moisture)
	require.True(t, ok)
	assert.Equal(t, Band{Min: 30, Max: 75}, b)

	_, ok = OptimalBand(Parameter("ph"))
	assert.False(t, ok)
	assert.Equal(t, Optimal, Classify(Parameter("ph"), -5))
}

func TestStatusPriority(t *testing.T) {
	t.Run("dry soil dominates", func(t *testing.T) {
		assert.Equal(t, Thirsty, Status(reading(20, 25, 50, 50)))
	})
	t.Run("cold with moist soil", func(t *testing.T) {
		assert.Equal(t, Cold, Status(reading(50, 15, 50, 50)))
	})
	t.Run("wet soil in cold damp air", func(t *testing.T) {
		assert.Equal(t, Overwatered, Status(reading(80, 18, 80, 50)))
	})
	t.Run("hot", func(t *testing.T) {
		assert.Equal(t, Hot, Status(reading(50, 33, 50, 50)))
	})
	t.Run("heat beats wet soil in damp air", func(t *testing.T) {
		assert.Equal(t, Overwatered, CoarseStatus(reading(80, 35, 80, 50)))
		assert.Equal(t, Hot, Status(reading(80, 35, 80, 50)))
	})
	t.Run("wet soil alone", func(t *testing.T) {
		assert.Equal(t, Overwatered, Status(reading(80, 25, 50, 50)))
	})
	t.Run("healthy", func(t *testing.T) {
		assert.Equal(t, Healthy, Status(reading(50, 25, 55, 50)))
	})
}

func TestCoarseStatusRules(t *testing.T) {
	assert.Equal(t, Thirsty, CoarseStatus(reading(50, 33, 35, 50)), "heat with dry air")
	assert.Equal(t, Overwatered, CoarseStatus(reading(80, 25, 80, 50)))
	assert.Equal(t, Healthy, CoarseStatus(reading(40, 21, 70, 50)))
	assert.Equal(t, Stressed, CoarseStatus(reading(35, 25, 50, 50)), "moisture optimal per table but below coarse band")
}

func TestEvaluateDeterministic(t *testing.T) {
	r := reading(42, 27, 61, 33)
	first, ok := Evaluate(Input{Reading: &r})
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := Evaluate(Input{Reading: &r})
		require.True(t, ok)
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.Health, again.Health)
		assert.Equal(t, first.Recommendations, again.Recommendations)
	}
}

func TestEvaluateNilReading(t *testing.T) {
	ev, ok := Evaluate(Input{})
	assert.False(t, ok)
	assert.Equal(t, Evaluation{}, ev)
}

func TestDepletionRate(t *testing.T) {
	prev := 0.0
	for temp := 11.0; temp <= 40; temp++ {
		rate := math.Abs(DepletionRate(reading(60, temp, 50, 50)))
		assert.Greater(t, rate, prev, "temperature %v", temp)
		prev = rate
	}

	assert.InDelta(t, -12.0, DepletionRate(reading(60, 20, 50, 50)), 1e-9)

	days, ok := DaysUntilWaterNeeded(60, -12)
	require.True(t, ok)
	assert.InDelta(t, 2.5, days, 1e-9)

	days, ok = DaysUntilWaterNeeded(20, -12)
	require.True(t, ok)
	assert.Zero(t, days, "past the critical level never goes negative")
}

func TestDaysUntilWaterAtBaseTemperature(t *testing.T) {
	r := reading(60, BaseTemperature, 50, 50)
	assert.Zero(t, math.Abs(DepletionRate(r)))

	days, ok := DaysUntilWaterNeeded(r.SoilMoisture, DepletionRate(r))
	assert.False(t, ok)
	assert.False(t, math.IsNaN(days))
	assert.False(t, math.IsInf(days, 0))

	ev, ok := Evaluate(Input{Reading: &r})
	require.True(t, ok)
	assert.Nil(t, ev.DaysUntilWaterNeeded)
	assert.Zero(t, ev.MoistureDepletionRate)
}

func TestRecommendationsEveryParameterOut(t *testing.T) {
	r := reading(20, 35, 30, 90)
	ev, ok := Evaluate(Input{Reading: &r})
	require.True(t, ok)

	var types []string
	for _, rec := range ev.Recommendations {
		types = append(types, rec.Type)
	}
	assert.Equal(t, []string{"water", "shade", "shade", "mist"}, types)
	assert.Equal(t, PriorityHigh, ev.Recommendations[0].Priority)
	assert.Contains(t, ev.Recommendations[0].Text, "20%")
	assert.Equal(t, "Today", ev.Recommendations[0].Timing)
	assert.Contains(t, ev.Recommendations[1].Text, "35°C")
}

func TestRecommendationsOptimal(t *testing.T) {
	r := reading(50, 25, 55, 50)
	ev, ok := Evaluate(Input{Reading: &r})
	require.True(t, ok)
	require.Len(t, ev.Recommendations, 1)
	assert.Equal(t, "maintain", ev.Recommendations[0].Type)
	assert.Equal(t, PriorityLow, ev.Recommendations[0].Priority)
}

func TestRecommendationTextUsesLiveValues(t *testing.T) {
	r := reading(35, 18.25, 75, 20)
	recs := Recommend(r, CoarseStatus(r), Health(r), 0, false)
	require.Len(t, recs, 4)
	assert.Equal(t, "adjust", recs[0].Type)
	assert.Equal(t, "Conditions are not ideal. Moisture: 35%, Temp: 18.3°C, Humidity: 75%.", recs[0].Text)
	assert.Equal(t, "move", recs[1].Type)
	assert.Equal(t, "air", recs[2].Type)
	assert.Equal(t, "light", recs[3].Type)
}

func TestWaterTiming(t *testing.T) {
	// Hot dry air keeps the plant thirsty while soil is still moist.
	r := reading(50, 33, 35, 50)
	recs := Recommend(r, CoarseStatus(r), Health(r), 1.2, true)
	require.NotEmpty(t, recs)
	assert.Equal(t, "water", recs[0].Type)
	assert.Equal(t, "In 2 days", recs[0].Timing)
}

func TestAdjustForWeather(t *testing.T) {
	base := []Recommendation{
		{Type: "water", Text: "Soil is dry (20%). Water thoroughly.", Timing: "Today", Priority: PriorityHigh},
		{Type: "mist", Text: "Humidity low at 30%.", Priority: PriorityLow},
	}
	forecast := &model.Forecast{
		Temperature: ptr(31),
		Days: []model.ForecastDay{
			{Day: "today", Condition: "Sunny", Temperature: 31},
			{Day: "tomorrow", Condition: "Light Rain", Temperature: 24},
		},
	}

	once := AdjustForWeather(base, forecast)
	twice := AdjustForWeather(once, forecast)

	assert.Equal(t, once, twice)
	require.Len(t, once, 3)
	assert.Equal(t, waitForRain, once[0].Timing)
	assert.Equal(t, "protect", once[2].Type)
	assert.Equal(t, PriorityMedium, once[2].Priority)
	assert.Equal(t, "Today", base[0].Timing, "input must not be modified")
}

func TestAdjustForWeatherRainOnLaterDayIgnored(t *testing.T) {
	base := []Recommendation{{Type: "water", Timing: "Today", Priority: PriorityHigh}}
	forecast := &model.Forecast{
		Temperature: ptr(22),
		Days:        []model.ForecastDay{{Day: "day3", Condition: "chance of rain"}},
	}
	assert.Equal(t, base, AdjustForWeather(base, forecast))
}

func TestAdjustForWeatherMalformed(t *testing.T) {
	base := []Recommendation{{Type: "maintain", Priority: PriorityLow}}
	assert.Equal(t, base, AdjustForWeather(base, nil))
	assert.Equal(t, base, AdjustForWeather(base, &model.Forecast{}))
}

func TestEvaluateSortsByUrgency(t *testing.T) {
	r := reading(20, 25, 30, 50)
	forecast := &model.Forecast{Temperature: ptr(33)}
	ev, ok := Evaluate(Input{Reading: &r, Forecast: forecast})
	require.True(t, ok)

	var priorities []Priority
	for _, rec := range ev.Recommendations {
		priorities = append(priorities, rec.Priority)
	}
	assert.Equal(t, []Priority{PriorityHigh, PriorityMedium, PriorityLow}, priorities)
	assert.Equal(t, "protect", ev.Recommendations[1].Type)
}

func TestEvaluateLastWatered(t *testing.T) {
	r := reading(50, 25, 55, 50)
	older := time.Date(2025, 5, 28, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)
	ev, ok := Evaluate(Input{
		Reading: &r,
		CareLog: []model.CareEvent{
			{Action: "watered", Timestamp: older},
			{Action: "fertilized", Timestamp: newer.Add(time.Hour)},
			{Action: "Watered", Timestamp: newer},
		},
	})
	require.True(t, ok)
	require.NotNil(t, ev.LastWatered)
	assert.True(t, newer.Equal(*ev.LastWatered))
}

func TestTrends(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	history := model.SensorHistory{
		{SoilMoisture: 50, Temperature: 22, Humidity: 50, Light: 60, Timestamp: t0.Add(time.Hour)},
		{SoilMoisture: 60, Temperature: 22.5, Humidity: 40, Light: 62, Timestamp: t0},
	}
	got := TrendsOf(history)
	assert.Equal(t, Falling, got.SoilMoisture)
	assert.Equal(t, Stable, got.Temperature)
	assert.Equal(t, Rising, got.Humidity)
	assert.Equal(t, Stable, got.Light)

	assert.Equal(t, Stable, TrendsOf(history[:1]).SoilMoisture)
}

func TestScores(t *testing.T) {
	ideal := ScoresOf(reading(50, 25, 55, 50))
	assert.Equal(t, Scores{Moisture: 100, Temperature: 100, Humidity: 100, Light: 100, Overall: 100}, ideal)

	dry := ScoresOf(reading(10, 25, 55, 50))
	assert.Equal(t, 25, dry.Moisture)
	assert.Equal(t, 70, dry.Overall)

	scorched := ScoresOf(reading(50, 45, 55, 100))
	assert.Equal(t, 0, scorched.Temperature)
	assert.Equal(t, 0, scorched.Light)
}

func TestScenarios(t *testing.T) {
	assert.Equal(t, []string{"cold", "drought", "hot", "ideal", "overwatered"}, Scenarios())

	r, err := Scenario("Drought")
	require.NoError(t, err)
	assert.Equal(t, Thirsty, Status(r))

	r, err = Scenario("cold")
	require.NoError(t, err)
	assert.Equal(t, Cold, Status(r))

	_, err = Scenario("monsoon")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestWeatherTip(t *testing.T) {
	assert.Empty(t, WeatherTip(nil))
	assert.Contains(t, WeatherTip(&model.Forecast{Temperature: ptr(31)}), "hot")
	assert.Contains(t, WeatherTip(&model.Forecast{Temperature: ptr(12)}), "cool")
	assert.Contains(t, WeatherTip(&model.Forecast{Temperature: ptr(20), Condition: "Rain"}), "rainy")
	assert.Contains(t, WeatherTip(&model.Forecast{Temperature: ptr(20), Condition: "Sunny"}), "sunny")
	assert.Contains(t, WeatherTip(&model.Forecast{Condition: "Cloudy"}), "moderate")
}
