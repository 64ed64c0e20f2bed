package ecology

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"basilcare/plant-hub/internal/model"
)

// Priority ranks a recommendation's urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is a single care action for the plant owner.
type Recommendation struct {
	Type     string   `json:"type"`
	Text     string   `json:"text"`
	Timing   string   `json:"timing,omitempty"`
	Priority Priority `json:"priority"`
}

// Recommend builds the care list for reading r. coarse selects the
// status-driven entry; health adds one entry per non-optimal temperature,
// humidity or light level. days is the watering projection and is only used
// for the water timing.
func Recommend(r model.SensorReading, coarse PlantStatus, health EnvironmentalHealth, days float64, daysKnown bool) []Recommendation {
	m, t, h := num(r.SoilMoisture), num(r.Temperature), num(r.Humidity)

	var recs []Recommendation

	switch coarse {
	case Thirsty:
		recs = append(recs, Recommendation{
			Type:     "water",
			Text:     fmt.Sprintf("Soil is dry (%s%%). Water thoroughly.", m),
			Timing:   waterTiming(days, daysKnown),
			Priority: PriorityHigh,
		})
	case Overwatered:
		recs = append(recs, Recommendation{
			Type:     "drain",
			Text:     fmt.Sprintf("Soil is very wet (%s%%) and humidity is high. Improve drainage.", m),
			Priority: PriorityHigh,
		})
	case Stressed:
		recs = append(recs, Recommendation{
			Type:     "adjust",
			Text:     fmt.Sprintf("Conditions are not ideal. Moisture: %s%%, Temp: %s°C, Humidity: %s%%.", m, t, h),
			Priority: PriorityMedium,
		})
	}

	switch health.Temperature {
	case Low:
		recs = append(recs, Recommendation{
			Type:     "move",
			Text:     fmt.Sprintf("Move plant to warmer area. Current temperature is %s°C.", t),
			Priority: PriorityMedium,
		})
	case High:
		recs = append(recs, Recommendation{
			Type:     "shade",
			Text:     fmt.Sprintf("Too hot (%s°C). Shade the plant or move it.", t),
			Priority: PriorityMedium,
		})
	}

	switch health.Humidity {
	case Low:
		recs = append(recs, Recommendation{
			Type:     "mist",
			Text:     fmt.Sprintf("Humidity low at %s%%. Mist the plant or use humidifier.", h),
			Priority: PriorityLow,
		})
	case High:
		recs = append(recs, Recommendation{
			Type:     "air",
			Text:     fmt.Sprintf("Humidity high (%s%%). Ensure good airflow.", h),
			Priority: PriorityLow,
		})
	}

	switch health.Light {
	case Low:
		recs = append(recs, Recommendation{
			Type:     "light",
			Text:     fmt.Sprintf("Light level too low (%s%%). Move to a brighter spot.", num(r.Light)),
			Priority: PriorityMedium,
		})
	case High:
		recs = append(recs, Recommendation{
			Type:     "shade",
			Text:     fmt.Sprintf("Light is too intense (%s%%). Consider filtered sunlight.", num(r.Light)),
			Priority: PriorityMedium,
		})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Type:     "maintain",
			Text:     "All conditions are optimal. Keep regular care routine.",
			Priority: PriorityLow,
		})
	}

	return recs
}

// SortByUrgency orders recs high > medium > low, keeping insertion order
// within a priority.
func SortByUrgency(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.rank() < recs[j].Priority.rank()
	})
}

func waterTiming(days float64, known bool) string {
	if !known || days <= 0 {
		return "Today"
	}
	n := int(math.Ceil(days))
	if n == 1 {
		return "In 1 day"
	}
	return fmt.Sprintf("In %d days", n)
}

// num renders a sensor value with at most one decimal.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
