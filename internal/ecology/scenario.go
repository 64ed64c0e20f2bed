package ecology

import (
	"errors"
	"sort"
	"strings"

	"basilcare/plant-hub/internal/model"
)

// ErrUnknownScenario is returned by Scenario for names not in the preset list.
var ErrUnknownScenario = errors.New("unknown scenario")

var scenarios = map[string]model.SensorReading{
	"drought":     {SoilMoisture: 15, Temperature: 23.9, Humidity: 30, Light: 70},
	"overwatered": {SoilMoisture: 90, Temperature: 22.2, Humidity: 60, Light: 60},
	"cold":        {SoilMoisture: 55, Temperature: 10, Humidity: 40, Light: 40},
	"hot":         {SoilMoisture: 30, Temperature: 32.2, Humidity: 30, Light: 85},
	"ideal":       {SoilMoisture: 50, Temperature: 21.1, Humidity: 55, Light: 60},
}

// Scenarios lists the simulator preset names in alphabetical order.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Scenario returns the preset reading for name.
func Scenario(name string) (model.SensorReading, error) {
	r, ok := scenarios[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return model.SensorReading{}, ErrUnknownScenario
	}
	return r, nil
}
