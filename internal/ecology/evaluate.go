package ecology

import (
	"math"
	"strings"
	"time"

	"basilcare/plant-hub/internal/model"
)

// Input bundles everything one evaluation looks at.
type Input struct {
	Reading  *model.SensorReading
	History  model.SensorHistory
	CareLog  []model.CareEvent
	Forecast *model.Forecast
}

// Evaluation is the derived view of a plant at one reading.
type Evaluation struct {
	Reading               model.SensorReading `json:"reading"`
	Status                PlantStatus         `json:"plantStatus"`
	ConditionStatus       PlantStatus         `json:"conditionStatus"`
	Health                EnvironmentalHealth `json:"environmentalHealth"`
	MoistureDepletionRate float64             `json:"moistureDepletionRate"`
	DaysUntilWaterNeeded  *float64            `json:"daysUntilWaterNeeded"`
	Recommendations       []Recommendation    `json:"careRecommendations"`
	Trends                Trends              `json:"trends"`
	Scores                Scores              `json:"healthScores"`
	LastWatered           *time.Time          `json:"lastWatered,omitempty"`
}

// Evaluate runs the full model. It returns false, and a zero Evaluation, when
// in.Reading is nil; callers keep whatever they derived before.
func Evaluate(in Input) (Evaluation, bool) {
	if in.Reading == nil {
		return Evaluation{}, false
	}
	r := *in.Reading

	health := Health(r)
	coarse := CoarseStatus(r)
	rate := DepletionRate(r)
	days, known := DaysUntilWaterNeeded(r.SoilMoisture, rate)

	recs := AdjustForWeather(Recommend(r, coarse, health, days, known), in.Forecast)
	SortByUrgency(recs)

	ev := Evaluation{
		Reading: r,
		// The refined status is authoritative apart from the overwatered
		// interaction; coarse otherwise only chose the recommendation.
		Status:                ResolveStatus(coarse, RefineStatus(health)),
		ConditionStatus:       coarse,
		Health:                health,
		MoistureDepletionRate: math.Abs(rate),
		Recommendations:       recs,
		Trends:                TrendsOf(in.History),
		Scores:                ScoresOf(r),
		LastWatered:           lastWatered(in.CareLog),
	}
	if known {
		d := math.Round(days*10) / 10
		ev.DaysUntilWaterNeeded = &d
	}
	return ev, true
}

func lastWatered(log []model.CareEvent) *time.Time {
	var latest *time.Time
	for i := range log {
		if !strings.EqualFold(log[i].Action, "watered") {
			continue
		}
		if latest == nil || log[i].Timestamp.After(*latest) {
			ts := log[i].Timestamp
			latest = &ts
		}
	}
	return latest
}
