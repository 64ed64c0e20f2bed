package model

import (
	"fmt"
	"strings"
)

// TemperatureUnit names the unit a collaborator reports temperatures in.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "celsius"
	Fahrenheit TemperatureUnit = "fahrenheit"
)

// ParseTemperatureUnit accepts "c", "celsius", "f", "fahrenheit" (any case).
// An empty string yields Celsius.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c", "celsius", "metric":
		return Celsius, nil
	case "f", "fahrenheit", "imperial":
		return Fahrenheit, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// FahrenheitToCelsius converts a Fahrenheit temperature to Celsius.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// ToCelsius converts v from unit u to Celsius.
func ToCelsius(v float64, u TemperatureUnit) float64 {
	if u == Fahrenheit {
		return FahrenheitToCelsius(v)
	}
	return v
}
