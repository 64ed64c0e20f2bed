package ecology

import (
	"math"
	"sort"

	"basilcare/plant-hub/internal/model"
)

// Trend describes the direction of a parameter between the two latest readings.
type Trend string

const (
	Stable  Trend = "stable"
	Rising  Trend = "rising"
	Falling Trend = "falling"
)

// Trends holds one Trend per parameter.
type Trends struct {
	SoilMoisture Trend `json:"soilMoisture"`
	Temperature  Trend `json:"temperature"`
	Humidity     Trend `json:"humidity"`
	Light        Trend `json:"light"`
}

// Minimum change treated as movement.
const (
	moistureTrendStep    = 3
	temperatureTrendStep = 1
	humidityTrendStep    = 5
	lightTrendStep       = 5
)

// TrendsOf compares the two most recent readings in history. With fewer than
// two readings everything is stable.
func TrendsOf(history model.SensorHistory) Trends {
	if len(history) < 2 {
		return Trends{SoilMoisture: Stable, Temperature: Stable, Humidity: Stable, Light: Stable}
	}
	sorted := make(model.SensorHistory, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	latest, previous := sorted[len(sorted)-1], sorted[len(sorted)-2]
	return Trends{
		SoilMoisture: trend(latest.SoilMoisture, previous.SoilMoisture, moistureTrendStep),
		Temperature:  trend(latest.Temperature, previous.Temperature, temperatureTrendStep),
		Humidity:     trend(latest.Humidity, previous.Humidity, humidityTrendStep),
		Light:        trend(latest.Light, previous.Light, lightTrendStep),
	}
}

func trend(current, previous, step float64) Trend {
	if math.IsNaN(current) || math.IsNaN(previous) {
		return Stable
	}
	diff := current - previous
	if math.Abs(diff) < step {
		return Stable
	}
	if diff > 0 {
		return Rising
	}
	return Falling
}
