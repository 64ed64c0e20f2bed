package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"basilcare/plant-hub/internal/model"
)

// Config lists the tunable parameters for the plant hub server.
type Config struct {
	HTTPPort     int    `yaml:"http_port"`
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	MQTTBrokerURL   string `yaml:"mqtt_broker_url"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`
	MQTTClientID    string `yaml:"mqtt_client_id"`

	HubURL           string                `yaml:"hub_url"`
	HubPlantID       string                `yaml:"hub_plant_id"`
	HubPollInterval  time.Duration         `yaml:"hub_poll_interval"`
	HubTempUnit      model.TemperatureUnit `yaml:"hub_temp_unit"`
	HubLightFallback bool                  `yaml:"hub_light_fallback"`

	WeatherURL   string                `yaml:"weather_url"`
	WeatherUnits model.TemperatureUnit `yaml:"weather_units"`

	BreakerMaxFailures  uint32        `yaml:"breaker_max_failures"`
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	MDNSEnabled      bool          `yaml:"mdns_enabled"`
	DebounceInterval time.Duration `yaml:"debounce_interval"`
	HistoryDays      int           `yaml:"history_days"`
}

const (
	defaultHTTPPort            = 8080
	defaultDatabasePath        = "data/plantcare.db"
	defaultLogLevel            = "info"
	defaultMQTTTopicPrefix     = "plants"
	defaultMQTTClientID        = "plant-hub"
	defaultHubPlantID          = "default"
	defaultHubPollInterval     = 30 * time.Second
	defaultBreakerMaxFailures  = 3
	defaultBreakerResetTimeout = 30 * time.Second
	defaultKafkaTopic          = "plant-status"
	defaultDebounceInterval    = 2 * time.Second
	defaultHistoryDays         = 7
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:            defaultHTTPPort,
		DatabasePath:        defaultDatabasePath,
		LogLevel:            defaultLogLevel,
		MQTTTopicPrefix:     defaultMQTTTopicPrefix,
		MQTTClientID:        defaultMQTTClientID,
		HubPlantID:          defaultHubPlantID,
		HubPollInterval:     defaultHubPollInterval,
		HubTempUnit:         model.Celsius,
		HubLightFallback:    true,
		WeatherUnits:        model.Celsius,
		BreakerMaxFailures:  defaultBreakerMaxFailures,
		BreakerResetTimeout: defaultBreakerResetTimeout,
		KafkaTopic:          defaultKafkaTopic,
		MDNSEnabled:         true,
		DebounceInterval:    defaultDebounceInterval,
		HistoryDays:         defaultHistoryDays,
	}
}

// Load derives configuration from defaults, an optional YAML file named by
// PLANTCARE_CONFIG_FILE, and PLANTCARE_* environment variables, in that
// order of precedence.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PLANTCARE_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.normalizeUnits(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// normalizeUnits maps aliases such as "F" or "imperial" read from the file
// onto the canonical unit constants.
func (c *Config) normalizeUnits() error {
	hub, err := model.ParseTemperatureUnit(string(c.HubTempUnit))
	if err != nil {
		return fmt.Errorf("hub temp unit: %w", err)
	}
	weather, err := model.ParseTemperatureUnit(string(c.WeatherUnits))
	if err != nil {
		return fmt.Errorf("weather units: %w", err)
	}
	c.HubTempUnit, c.WeatherUnits = hub, weather
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PLANTCARE_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_HTTP_PORT: %w", err)
		}
		c.HTTPPort = port
	}

	if v := os.Getenv("PLANTCARE_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}

	if v := os.Getenv("PLANTCARE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("PLANTCARE_MQTT_BROKER_URL"); v != "" {
		c.MQTTBrokerURL = v
	}

	if v := os.Getenv("PLANTCARE_MQTT_TOPIC_PREFIX"); v != "" {
		c.MQTTTopicPrefix = strings.Trim(v, "/")
	}

	if v := os.Getenv("PLANTCARE_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	if v := os.Getenv("PLANTCARE_HUB_URL"); v != "" {
		c.HubURL = v
	}

	if v := os.Getenv("PLANTCARE_HUB_PLANT_ID"); v != "" {
		c.HubPlantID = v
	}

	if v := os.Getenv("PLANTCARE_HUB_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_HUB_POLL_INTERVAL: %w", err)
		}
		c.HubPollInterval = d
	}

	if v := os.Getenv("PLANTCARE_HUB_TEMP_UNIT"); v != "" {
		u, err := model.ParseTemperatureUnit(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_HUB_TEMP_UNIT: %w", err)
		}
		c.HubTempUnit = u
	}

	if v := os.Getenv("PLANTCARE_HUB_LIGHT_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_HUB_LIGHT_FALLBACK: %w", err)
		}
		c.HubLightFallback = b
	}

	if v := os.Getenv("PLANTCARE_WEATHER_URL"); v != "" {
		c.WeatherURL = v
	}

	if v := os.Getenv("PLANTCARE_WEATHER_UNITS"); v != "" {
		u, err := model.ParseTemperatureUnit(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_WEATHER_UNITS: %w", err)
		}
		c.WeatherUnits = u
	}

	if v := os.Getenv("PLANTCARE_BREAKER_MAX_FAILURES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_BREAKER_MAX_FAILURES: %w", err)
		}
		c.BreakerMaxFailures = uint32(n)
	}

	if v := os.Getenv("PLANTCARE_BREAKER_RESET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_BREAKER_RESET_TIMEOUT: %w", err)
		}
		c.BreakerResetTimeout = d
	}

	if v := os.Getenv("PLANTCARE_KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitList(v)
	}

	if v := os.Getenv("PLANTCARE_KAFKA_TOPIC"); v != "" {
		c.KafkaTopic = v
	}

	if v := os.Getenv("PLANTCARE_MDNS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_MDNS_ENABLED: %w", err)
		}
		c.MDNSEnabled = b
	}

	if v := os.Getenv("PLANTCARE_DEBOUNCE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_DEBOUNCE_INTERVAL: %w", err)
		}
		c.DebounceInterval = d
	}

	if v := os.Getenv("PLANTCARE_HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PLANTCARE_HISTORY_DAYS: %w", err)
		}
		c.HistoryDays = n
	}

	return nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTPPort)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if _, err := model.ParseTemperatureUnit(string(c.HubTempUnit)); err != nil {
		return fmt.Errorf("hub temp unit: %w", err)
	}
	if _, err := model.ParseTemperatureUnit(string(c.WeatherUnits)); err != nil {
		return fmt.Errorf("weather units: %w", err)
	}
	if c.HubURL != "" && c.HubPollInterval <= 0 {
		return fmt.Errorf("hub poll interval must be positive")
	}
	if c.DebounceInterval < 0 {
		return fmt.Errorf("debounce interval must not be negative")
	}
	if c.HistoryDays <= 0 {
		return fmt.Errorf("history days must be positive")
	}
	return nil
}

// ApplyPersisted overlays settings saved through the config API. They take
// precedence over the file and the environment. Unknown keys are ignored. The
// receiver is left untouched when any value is invalid.
func (c *Config) ApplyPersisted(entries map[string]string) error {
	next := *c

	for key, value := range entries {
		switch key {
		case "hub_temp_unit":
			u, err := model.ParseTemperatureUnit(value)
			if err != nil {
				return fmt.Errorf("persisted hub_temp_unit: %w", err)
			}
			next.HubTempUnit = u
		case "weather_units":
			u, err := model.ParseTemperatureUnit(value)
			if err != nil {
				return fmt.Errorf("persisted weather_units: %w", err)
			}
			next.WeatherUnits = u
		case "debounce_interval":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("persisted debounce_interval: %w", err)
			}
			next.DebounceInterval = d
		case "history_days":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("persisted history_days: %w", err)
			}
			next.HistoryDays = n
		}
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// KafkaEnabled reports whether status events should be published to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
