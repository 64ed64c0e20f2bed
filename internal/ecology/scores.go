package ecology

import (
	"math"

	"basilcare/plant-hub/internal/model"
)

// Scores rates each parameter from 0 (harmful) to 100 (ideal).
type Scores struct {
	Moisture    int `json:"moisture"`
	Temperature int `json:"temperature"`
	Humidity    int `json:"humidity"`
	Light       int `json:"light"`
	Overall     int `json:"overall"`
}

// Overall weighting; water matters most.
const (
	moistureWeight    = 0.4
	temperatureWeight = 0.3
	humidityWeight    = 0.15
	lightWeight       = 0.15
)

// ScoresOf computes piecewise-linear health scores for r.
func ScoresOf(r model.SensorReading) Scores {
	m := moistureScore(r.SoilMoisture)
	t := temperatureScore(r.Temperature)
	h := humidityScore(r.Humidity)
	l := lightScore(r.Light)
	return Scores{
		Moisture:    round(m),
		Temperature: round(t),
		Humidity:    round(h),
		Light:       round(l),
		Overall:     round(m*moistureWeight + t*temperatureWeight + h*humidityWeight + l*lightWeight),
	}
}

func temperatureScore(v float64) float64 {
	switch {
	case v < 10:
		return math.Max(0, (v+10)*5)
	case v < 20:
		return 50 + (v-10)*5
	case v <= 30:
		return 100
	case v < 35:
		return 100 - (v-30)*10
	default:
		return math.Max(0, 100-(v-35)*20)
	}
}

func moistureScore(v float64) float64 {
	switch {
	case v < 20:
		return math.Max(0, v*2.5)
	case v < 30:
		return 50 + (v-20)*5
	case v <= 70:
		return 100
	case v < 80:
		return 100 - (v-70)*5
	default:
		return math.Max(0, 100-(v-80)*10)
	}
}

func humidityScore(v float64) float64 {
	switch {
	case v < 30:
		return math.Max(0, v*10/3)
	case v < 40:
		return 100 - (40-v)*2
	case v <= 70:
		return 100
	case v < 80:
		return 100 - (v-70)*2
	default:
		return math.Max(0, 100-(v-80)*5)
	}
}

func lightScore(v float64) float64 {
	switch {
	case v < 20:
		return math.Max(0, v*5)
	case v <= 80:
		return 100
	default:
		return math.Max(0, 100-(v-80)*5)
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
