package ecology

import (
	"strings"

	"basilcare/plant-hub/internal/model"
)

const (
	// ProtectAbove is the outdoor temperature (Celsius) that triggers a protect recommendation.
	ProtectAbove = 29.0

	waitForRain = "Consider waiting until after the rain forecast for tomorrow."
	protectText = "High outdoor temperatures forecast. Keep plant away from hot windows."
)

// AdjustForWeather applies the forecast to recs and returns a new slice; recs
// is not modified. A water recommendation gets a wait timing when rain is due
// tomorrow, and a protect recommendation is added once when it is hot outside.
// A nil forecast, or one missing the relevant field, leaves that step out.
// Applying it repeatedly with the same forecast gives the same result.
func AdjustForWeather(recs []Recommendation, f *model.Forecast) []Recommendation {
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	if f == nil {
		return out
	}

	if rainTomorrow(f.Days) {
		for i := range out {
			if out[i].Type == "water" {
				out[i].Timing = waitForRain
				break
			}
		}
	}

	if f.Temperature != nil && *f.Temperature > ProtectAbove && !hasType(out, "protect") {
		out = append(out, Recommendation{
			Type:     "protect",
			Text:     protectText,
			Priority: PriorityMedium,
		})
	}

	return out
}

func rainTomorrow(days []model.ForecastDay) bool {
	for _, d := range days {
		if strings.EqualFold(strings.TrimSpace(d.Day), "tomorrow") && isRainy(d.Condition) {
			return true
		}
	}
	return false
}

func isRainy(condition string) bool {
	c := strings.ToLower(condition)
	return strings.Contains(c, "rain") || strings.Contains(c, "shower") || strings.Contains(c, "drizzle") || strings.Contains(c, "thunderstorm")
}

func hasType(recs []Recommendation, typ string) bool {
	for _, r := range recs {
		if r.Type == typ {
			return true
		}
	}
	return false
}

const (
	hotOutside  = 29.4
	coolOutside = 15.6
)

// WeatherTip turns current outdoor conditions into one line of advice.
func WeatherTip(f *model.Forecast) string {
	if f == nil {
		return ""
	}
	cond := strings.ToLower(f.Condition)
	switch {
	case f.Temperature != nil && *f.Temperature > hotOutside:
		return "It's quite hot today! Consider moving your plant away from direct sunlight and check water more frequently."
	case f.Temperature != nil && *f.Temperature < coolOutside:
		return "Temperatures are cool today. Make sure your plant is away from cold drafts and avoid watering with cold water."
	case isRainy(cond):
		return "It's rainy today, which means higher humidity. Indoor plants might need less water than usual."
	case strings.Contains(cond, "sunny") || strings.Contains(cond, "clear"):
		return "It's sunny today! Good time to give your plant some indirect natural light, but avoid direct harsh sunlight."
	default:
		return "Today's weather is moderate. Perfect conditions to maintain your regular plant care routine."
	}
}
