package ecology

import "basilcare/plant-hub/internal/model"

// PlantStatus is the single aggregate label for the whole plant.
type PlantStatus string

const (
	Healthy     PlantStatus = "healthy"
	Thirsty     PlantStatus = "thirsty"
	Cold        PlantStatus = "cold"
	Hot         PlantStatus = "hot"
	Overwatered PlantStatus = "overwatered"
	Stressed    PlantStatus = "stressed"
)

// CoarseStatus applies the interaction rules (dryness combined with heat,
// wetness combined with humidity or cold) in fixed order. Its result only
// selects the status-driven recommendation; RefineStatus is what callers see.
func CoarseStatus(r model.SensorReading) PlantStatus {
	m, t, h := r.SoilMoisture, r.Temperature, r.Humidity
	switch {
	case m < 30 || (t > 32 && h < 40):
		return Thirsty
	case m > 75 && (h > 75 || t < 20):
		return Overwatered
	case m >= 40 && m <= 70 && t >= 21 && t <= 30 && h >= 40 && h <= 70:
		return Healthy
	default:
		return Stressed
	}
}

// RefineStatus derives the exposed status from the per-parameter levels:
// water first, then temperature, then excess water.
func RefineStatus(h EnvironmentalHealth) PlantStatus {
	switch {
	case h.Moisture == Low:
		return Thirsty
	case h.Temperature == Low:
		return Cold
	case h.Temperature == High:
		return Hot
	case h.Moisture == High:
		return Overwatered
	default:
		return Healthy
	}
}

// ResolveStatus combines both passes into the exposed status. The refined
// status wins, except that soil the coarse pass calls overwatered stays
// overwatered when the refined pass only sees cold.
func ResolveStatus(coarse, refined PlantStatus) PlantStatus {
	if coarse == Overwatered && refined == Cold {
		return Overwatered
	}
	return refined
}

// Status is the exposed status for r.
func Status(r model.SensorReading) PlantStatus {
	return ResolveStatus(CoarseStatus(r), RefineStatus(Health(r)))
}
