package model

import "time"

// SensorReading is a single snapshot of the plant's environment.
// Temperature is always degrees Celsius; the other fields are percentages.
type SensorReading struct {
	SoilMoisture float64   `json:"soilMoisture"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Light        float64   `json:"light"`
	Timestamp    time.Time `json:"timestamp"`
}

// SensorHistory is a set of readings unique by timestamp. Producers are not
// required to keep it sorted.
type SensorHistory []SensorReading

// StoredSensorReading extends SensorReading with database metadata.
type StoredSensorReading struct {
	SensorReading
	PlantID    string    `json:"plantId"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// CareEvent is a manually logged care action such as "watered" or "pruned".
type CareEvent struct {
	ID        string    `json:"id"`
	PlantID   string    `json:"plantId"`
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ForecastDay is one entry of a weather forecast. Day is "today", "tomorrow"
// or any other provider label.
type ForecastDay struct {
	Day         string  `json:"day"`
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
}

// Forecast is the weather collaborator's view of current and upcoming conditions.
// A nil Temperature means the provider did not report one.
type Forecast struct {
	Temperature *float64      `json:"temperature"`
	Condition   string        `json:"condition,omitempty"`
	Humidity    *float64      `json:"humidity,omitempty"`
	Days        []ForecastDay `json:"forecast"`
}

// IngestionError captures a payload that failed validation.
type IngestionError struct {
	PlantID string `json:"plantId"`
	Source  string `json:"source"`
	Payload string `json:"payload"`
	Error   string `json:"error"`
}

// AppConfigEntry represents a persisted configuration key/value pair.
type AppConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
