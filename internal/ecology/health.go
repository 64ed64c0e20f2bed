// Package ecology derives plant status, per-parameter environmental health,
// a moisture depletion projection and ranked care recommendations from sensor
// readings. Every function is pure and safe for concurrent use.
package ecology

import "basilcare/plant-hub/internal/model"

// Level classifies a single environmental parameter.
type Level string

const (
	Low     Level = "low"
	Optimal Level = "optimal"
	High    Level = "high"
)

// Parameter names one of the four sensed quantities.
type Parameter string

const (
	Moisture    Parameter = "moisture"
	Temperature Parameter = "temperature"
	Humidity    Parameter = "humidity"
	Light       Parameter = "light"
)

// Band is the inclusive optimal range of a parameter.
type Band struct {
	Min float64
	Max float64
}

var bands = map[Parameter]Band{
	Moisture:    {Min: 30, Max: 75},
	Temperature: {Min: 21, Max: 30},
	Humidity:    {Min: 40, Max: 70},
	Light:       {Min: 30, Max: 80},
}

// OptimalBand returns the optimal range for p.
func OptimalBand(p Parameter) (Band, bool) {
	b, ok := bands[p]
	return b, ok
}

// Classify maps value onto low/optimal/high for parameter p. Bounds are
// inclusive on the optimal side. Unknown parameters classify as optimal.
func Classify(p Parameter, value float64) Level {
	b, ok := OptimalBand(p)
	if !ok {
		return Optimal
	}
	switch {
	case value < b.Min:
		return Low
	case value > b.Max:
		return High
	default:
		return Optimal
	}
}

// EnvironmentalHealth is the per-parameter classification of one reading.
type EnvironmentalHealth struct {
	Moisture    Level `json:"moisture"`
	Temperature Level `json:"temperature"`
	Humidity    Level `json:"humidity"`
	Light       Level `json:"light"`
}

// Health classifies every parameter of r.
func Health(r model.SensorReading) EnvironmentalHealth {
	return EnvironmentalHealth{
		Moisture:    Classify(Moisture, r.SoilMoisture),
		Temperature: Classify(Temperature, r.Temperature),
		Humidity:    Classify(Humidity, r.Humidity),
		Light:       Classify(Light, r.Light),
	}
}
