package ecology

import (
	"math"

	"basilcare/plant-hub/internal/model"
)

const (
	// SoilCoefficient is k for potting mix.
	SoilCoefficient = 0.1
	// BaseTemperature is the minimum growth temperature in Celsius.
	BaseTemperature = 10.0
	// CriticalMoisture is the level at which watering is due.
	CriticalMoisture = 30.0
)

// DepletionRate models daily soil moisture change in percentage points:
// -k * (T - Tbase) * (1 - H/100) * 24. It is negative while the plant is
// drying out and exactly zero at the base temperature.
func DepletionRate(r model.SensorReading) float64 {
	return -SoilCoefficient * (r.Temperature - BaseTemperature) * (1 - r.Humidity/100) * 24
}

// DaysUntilWaterNeeded projects how long moisture takes to fall to
// CriticalMoisture at the given rate. ok is false when the rate is zero or
// the projection is not a finite number.
func DaysUntilWaterNeeded(moisture, rate float64) (days float64, ok bool) {
	speed := math.Abs(rate)
	if speed == 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return 0, false
	}
	days = (moisture - CriticalMoisture) / speed
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return 0, false
	}
	return math.Max(0, days), true
}
