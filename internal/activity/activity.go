// Package activity infers care and stress events from a sensor history and
// merges them with manually logged care events into a short timeline.
package activity

import (
	"encoding/json"
	"time"
)

// Kind is the activity type tag.
type Kind string

const (
	WateringDetected Kind = "watering_detected"
	ColdStress       Kind = "cold_stress"
	HeatStress       Kind = "heat_stress"
	TempSuboptimal   Kind = "temp_suboptimal"
	DroughtStress    Kind = "drought_stress"
	SoilDry          Kind = "soil_dry"
	Overwatered      Kind = "overwatered"
)

// Severity grades an activity for display.
type Severity string

const (
	Positive Severity = "positive"
	Warning  Severity = "warning"
	Danger   Severity = "danger"
	Manual   Severity = "manual"
)

// Details is the kind-specific payload of an Activity. The concrete types are
// WateringDetails, TemperatureDetails, MoistureDetails and ManualDetails.
type Details interface {
	isDetails()
}

// WateringDetails describes a detected moisture jump.
type WateringDetails struct {
	Increase float64 `json:"increase"`
	Before   float64 `json:"before"`
	After    float64 `json:"after"`
}

// TemperatureDetails carries the offending temperature in Celsius.
type TemperatureDetails struct {
	Temperature float64 `json:"temperature"`
}

// MoistureDetails carries the offending soil moisture.
type MoistureDetails struct {
	Moisture float64 `json:"moisture"`
}

// ManualDetails echoes a logged care event.
type ManualDetails struct {
	EventID string `json:"eventId,omitempty"`
	Action  string `json:"action"`
	Notes   string `json:"notes,omitempty"`
}

func (WateringDetails) isDetails()    {}
func (TemperatureDetails) isDetails() {}
func (MoistureDetails) isDetails()    {}
func (ManualDetails) isDetails()      {}

// Activity is one entry on the care timeline.
type Activity struct {
	Kind      Kind
	Timestamp time.Time
	Severity  Severity
	Details   Details
}

// MarshalJSON flattens the activity with its details under "details".
func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      Kind      `json:"type"`
		Timestamp time.Time `json:"timestamp"`
		Severity  Severity  `json:"severity"`
		Details   Details   `json:"details"`
	}{a.Kind, a.Timestamp, a.Severity, a.Details})
}
