package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilcare/plant-hub/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLANTCARE_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2*time.Second, cfg.DebounceInterval)
	assert.Equal(t, model.Celsius, cfg.HubTempUnit)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLANTCARE_CONFIG_FILE", "")
	t.Setenv("PLANTCARE_HTTP_PORT", "9000")
	t.Setenv("PLANTCARE_MQTT_TOPIC_PREFIX", "/garden/")
	t.Setenv("PLANTCARE_HUB_TEMP_UNIT", "F")
	t.Setenv("PLANTCARE_WEATHER_UNITS", "imperial")
	t.Setenv("PLANTCARE_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PLANTCARE_DEBOUNCE_INTERVAL", "500ms")
	t.Setenv("PLANTCARE_MDNS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "garden", cfg.MQTTTopicPrefix)
	assert.Equal(t, model.Fahrenheit, cfg.HubTempUnit)
	assert.Equal(t, model.Fahrenheit, cfg.WeatherUnits)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceInterval)
	assert.False(t, cfg.MDNSEnabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plantcare.yaml")
	body := []byte(`
http_port: 8181
hub_url: http://hub.local/api/sensors
hub_poll_interval: 10s
hub_temp_unit: F
history_days: 14
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("PLANTCARE_CONFIG_FILE", path)
	t.Setenv("PLANTCARE_HTTP_PORT", "8282")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8282, cfg.HTTPPort, "environment wins over file")
	assert.Equal(t, "http://hub.local/api/sensors", cfg.HubURL)
	assert.Equal(t, 10*time.Second, cfg.HubPollInterval)
	assert.Equal(t, model.Fahrenheit, cfg.HubTempUnit)
	assert.Equal(t, 14, cfg.HistoryDays)
	assert.Equal(t, defaultDatabasePath, cfg.DatabasePath, "unset keys keep defaults")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PLANTCARE_HTTP_PORT":         "eighty",
		"PLANTCARE_HUB_TEMP_UNIT":     "kelvin",
		"PLANTCARE_DEBOUNCE_INTERVAL": "soon",
		"PLANTCARE_HISTORY_DAYS":      "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("PLANTCARE_CONFIG_FILE", "")
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PLANTCARE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestApplyPersisted(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyPersisted(map[string]string{
		"hub_temp_unit":     "fahrenheit",
		"weather_units":     "celsius",
		"debounce_interval": "5s",
		"history_days":      "14",
		"unrelated":         "ignored",
	}))
	assert.Equal(t, model.Fahrenheit, cfg.HubTempUnit)
	assert.Equal(t, 5*time.Second, cfg.DebounceInterval)
	assert.Equal(t, 14, cfg.HistoryDays)

	before := cfg
	assert.Error(t, cfg.ApplyPersisted(map[string]string{"history_days": "fortnight"}))
	assert.Error(t, cfg.ApplyPersisted(map[string]string{"debounce_interval": "1s", "history_days": "0"}))
	assert.Equal(t, before, cfg, "rejected values leave the config unchanged")
}
