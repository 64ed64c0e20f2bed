package activity

import (
	"math"
	"sort"
	"time"

	"basilcare/plant-hub/internal/model"
)

const (
	// WateringWindow is the longest gap between two readings that can still
	// reveal a watering.
	WateringWindow = 2 * time.Hour
	// WateringJump is the minimum moisture rise, in percentage points.
	WateringJump = 5.0
	// DedupWindow collapses repeats of the same kind closer than this.
	DedupWindow = 3 * time.Hour

	// Result caps: before and after deduplication.
	rawLimit  = 10
	MaxResult = 8
)

// Detect scans history and merges the inferred events with careLog. The
// result is newest first, deduplicated and holds at most MaxResult entries.
// history need not be sorted; neither argument is modified.
func Detect(history model.SensorHistory, careLog []model.CareEvent) []Activity {
	sorted := make(model.SensorHistory, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var found []Activity
	found = append(found, detectWatering(sorted)...)
	for _, r := range sorted {
		found = append(found, scanReading(r)...)
	}
	for _, ev := range careLog {
		found = append(found, Activity{
			Kind:      Kind(ev.Action),
			Timestamp: ev.Timestamp,
			Severity:  Manual,
			Details:   ManualDetails{EventID: ev.ID, Action: ev.Action, Notes: ev.Notes},
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Timestamp.After(found[j].Timestamp)
	})
	if len(found) > rawLimit {
		found = found[:rawLimit]
	}

	kept := dedup(found)
	if len(kept) > MaxResult {
		kept = kept[:MaxResult]
	}
	return kept
}

func detectWatering(sorted model.SensorHistory) []Activity {
	var out []Activity
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Timestamp.Sub(prev.Timestamp) > WateringWindow {
			continue
		}
		increase := cur.SoilMoisture - prev.SoilMoisture
		if increase < WateringJump {
			continue
		}
		out = append(out, Activity{
			Kind:      WateringDetected,
			Timestamp: cur.Timestamp,
			Severity:  Positive,
			Details: WateringDetails{
				Increase: math.Round(increase*10) / 10,
				Before:   prev.SoilMoisture,
				After:    cur.SoilMoisture,
			},
		})
	}
	return out
}

func scanReading(r model.SensorReading) []Activity {
	var out []Activity

	temp := TemperatureDetails{Temperature: r.Temperature}
	switch {
	case r.Temperature < 10:
		out = append(out, Activity{Kind: ColdStress, Timestamp: r.Timestamp, Severity: Danger, Details: temp})
	case r.Temperature > 35:
		out = append(out, Activity{Kind: HeatStress, Timestamp: r.Timestamp, Severity: Danger, Details: temp})
	case r.Temperature < 20 || r.Temperature > 30:
		out = append(out, Activity{Kind: TempSuboptimal, Timestamp: r.Timestamp, Severity: Warning, Details: temp})
	}

	moist := MoistureDetails{Moisture: r.SoilMoisture}
	switch {
	case r.SoilMoisture < 25:
		out = append(out, Activity{Kind: DroughtStress, Timestamp: r.Timestamp, Severity: Danger, Details: moist})
	case r.SoilMoisture < 30:
		out = append(out, Activity{Kind: SoilDry, Timestamp: r.Timestamp, Severity: Warning, Details: moist})
	}

	if r.SoilMoisture > 75 {
		out = append(out, Activity{Kind: Overwatered, Timestamp: r.Timestamp, Severity: Warning, Details: moist})
	}

	return out
}

// dedup walks activities in order and drops any whose kind was already kept
// within DedupWindow.
func dedup(activities []Activity) []Activity {
	kept := make([]Activity, 0, len(activities))
	for _, a := range activities {
		duplicate := false
		for _, k := range kept {
			if k.Kind == a.Kind && absDuration(k.Timestamp.Sub(a.Timestamp)) < DedupWindow {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, a)
		}
	}
	return kept
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
