package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"golang.org/x/sync/errgroup"

	"basilcare/plant-hub/internal/breaker"
	"basilcare/plant-hub/internal/config"
	"basilcare/plant-hub/internal/events"
	"basilcare/plant-hub/internal/hub"
	"basilcare/plant-hub/internal/model"
	"basilcare/plant-hub/internal/mqttclient"
	"basilcare/plant-hub/internal/store"
	"basilcare/plant-hub/internal/weather"
)

// App wires together the plant hub services and manages their lifecycle.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	store     *store.Store
	weather   weather.Provider
	publisher events.Publisher
	mqtt      *mqttclient.Subscriber
	mdns      *zeroconf.Server

	debounce *debouncer

	mu          sync.RWMutex
	evaluations map[string]cachedEvaluation
}

// New constructs a new application instance.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger, evaluations: make(map[string]cachedEvaluation)}
}

// attach installs the collaborators Run would otherwise build.
func (a *App) attach(s *store.Store, w weather.Provider, p events.Publisher) {
	a.store = s
	a.weather = w
	a.publisher = p
	a.debounce = newDebouncer(a.cfg.DebounceInterval, a.reevaluate)
}

// Run starts all configured services and blocks until the context is cancelled or an error occurs.
func (a *App) Run(ctx context.Context) error {
	db, err := store.Open(a.cfg.DatabasePath)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}

	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.logger.Error("close store", "error", cerr)
		}
	}()

	a.applyPersistedConfig(ctx, db)

	var publisher events.Publisher = events.Nop{}
	if a.cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic, a.logger)
		a.logger.Info("status events enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			a.logger.Error("close status publisher", "error", cerr)
		}
	}()

	a.attach(db, a.buildWeather(), publisher)
	defer a.debounce.Stop()

	if a.cfg.MQTTBrokerURL != "" {
		a.mqtt = mqttclient.New(mqttclient.Options{
			BrokerURL:   a.cfg.MQTTBrokerURL,
			ClientID:    a.cfg.MQTTClientID,
			TopicPrefix: a.cfg.MQTTTopicPrefix,
		}, a.handleMQTTMessage, a.logger)
		if err := a.mqtt.Start(ctx); err != nil {
			return err
		}
		defer a.mqtt.Stop()
	}

	if a.cfg.MDNSEnabled {
		if err := a.startMDNS(a.cfg.HTTPPort); err != nil {
			a.logger.Warn("mDNS advertisement unavailable", "error", err)
		}
		defer a.stopMDNS()
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	})

	if a.cfg.HubURL != "" {
		poller := &hub.Poller{
			URL:      a.cfg.HubURL,
			PlantID:  a.cfg.HubPlantID,
			Interval: a.cfg.HubPollInterval,
			Decoder:  hub.Decoder{Unit: a.cfg.HubTempUnit, LightFallback: a.cfg.HubLightFallback},
			Client:   breaker.NewHTTPClient("hub", a.breakerConfig(), nil, a.logger),
			Sink: func(ctx context.Context, plantID string, r model.SensorReading) error {
				return a.ingestReading(ctx, plantID, "hub", r)
			},
			OnError: func(ctx context.Context, plantID string, payload []byte, err error) {
				a.recordIngestionError(ctx, plantID, "hub", payload, err)
			},
			Logger: a.logger,
		}
		g.Go(func() error { return poller.Run(gctx) })
	}

	return g.Wait()
}

// applyPersistedConfig loads settings saved through POST /api/config. A bad
// saved value is logged and the loaded configuration is kept.
func (a *App) applyPersistedConfig(ctx context.Context, s *store.Store) {
	entries, err := s.AppConfig(ctx)
	if err != nil {
		a.logger.Warn("failed to read persisted config", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	if err := a.cfg.ApplyPersisted(entries); err != nil {
		a.logger.Warn("ignoring persisted config", "error", err)
		return
	}
	a.logger.Info("applied persisted config", "keys", len(entries))
}

func (a *App) breakerConfig() breaker.Config {
	return breaker.Config{MaxFailures: a.cfg.BreakerMaxFailures, ResetTimeout: a.cfg.BreakerResetTimeout}
}

func (a *App) buildWeather() weather.Provider {
	if a.cfg.WeatherURL == "" {
		return weather.NewStaticProvider(nil)
	}
	client := breaker.NewHTTPClient("weather", a.breakerConfig(), nil, a.logger)
	return weather.NewHTTPProvider(a.cfg.WeatherURL, a.cfg.WeatherUnits, client)
}

// ingestReading persists a reading and schedules a re-evaluation of its plant.
func (a *App) ingestReading(ctx context.Context, plantID, source string, r model.SensorReading) error {
	if plantID == "" {
		return errors.New("missing plant id")
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	storeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.store.InsertSensorReading(storeCtx, plantID, source, r); err != nil {
		return err
	}

	a.logger.Info("ingested sensor reading", "plant", plantID, "source", source,
		"moisture", r.SoilMoisture, "temperature", r.Temperature)
	a.debounce.Trigger(plantID)
	return nil
}

func (a *App) handleMQTTMessage(ctx context.Context, msg mqttclient.Message) {
	switch msg.Kind {
	case mqttclient.KindReadings:
		a.handleReadingMessage(ctx, msg)
	case mqttclient.KindCare:
		a.handleCareMessage(ctx, msg)
	}
}

func (a *App) handleReadingMessage(ctx context.Context, msg mqttclient.Message) {
	reading, err := decodeReading(msg.Payload)
	if err != nil {
		a.logger.Warn("mqtt payload decode failed", "topic", msg.Topic, "error", err)
		a.recordIngestionError(ctx, msg.PlantID, "mqtt", msg.Payload, err)
		return
	}

	if err := a.ingestReading(ctx, msg.PlantID, "mqtt", reading); err != nil {
		a.logger.Error("failed to persist sensor reading", "plant", msg.PlantID, "error", err)
		a.recordIngestionError(ctx, msg.PlantID, "mqtt", msg.Payload, err)
	}
}

func (a *App) handleCareMessage(ctx context.Context, msg mqttclient.Message) {
	event, err := decodeCareEvent(msg.Payload)
	if err != nil {
		a.logger.Warn("care event decode failed", "topic", msg.Topic, "error", err)
		a.recordIngestionError(ctx, msg.PlantID, "mqtt", msg.Payload, err)
		return
	}
	event.PlantID = msg.PlantID

	if _, err := a.logCareEvent(ctx, event); err != nil {
		a.logger.Error("failed to persist care event", "plant", msg.PlantID, "error", err)
		a.recordIngestionError(ctx, msg.PlantID, "mqtt", msg.Payload, err)
	}
}

func (a *App) logCareEvent(ctx context.Context, event model.CareEvent) (model.CareEvent, error) {
	storeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stored, err := a.store.InsertCareEvent(storeCtx, event)
	if err != nil {
		return model.CareEvent{}, err
	}

	a.logger.Info("logged care event", "plant", stored.PlantID, "action", stored.Action, "id", stored.ID)
	a.debounce.Trigger(stored.PlantID)
	return stored, nil
}

// readingPayload is the wire form of a reading. Missing measurements default
// to zero; unit names the temperature unit and defaults to Celsius.
type readingPayload struct {
	SoilMoisture *float64 `json:"soilMoisture"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	Light        *float64 `json:"light"`
	Timestamp    string   `json:"timestamp"`
	Unit         string   `json:"unit"`
}

func decodeReading(raw []byte) (model.SensorReading, error) {
	var p readingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.SensorReading{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.SoilMoisture == nil && p.Temperature == nil && p.Humidity == nil && p.Light == nil {
		return model.SensorReading{}, errors.New("reading has no measurements")
	}

	unit, err := model.ParseTemperatureUnit(p.Unit)
	if err != nil {
		return model.SensorReading{}, err
	}

	r := model.SensorReading{
		SoilMoisture: deref(p.SoilMoisture),
		Temperature:  model.ToCelsius(deref(p.Temperature), unit),
		Humidity:     deref(p.Humidity),
		Light:        deref(p.Light),
	}

	if p.Timestamp != "" {
		ts, err := parseTimestamp(p.Timestamp)
		if err != nil {
			return model.SensorReading{}, err
		}
		r.Timestamp = ts
	}
	return r, nil
}

type carePayload struct {
	Action    string `json:"action"`
	Notes     string `json:"notes"`
	Timestamp string `json:"timestamp"`
}

func decodeCareEvent(raw []byte) (model.CareEvent, error) {
	var p carePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.CareEvent{}, fmt.Errorf("decode payload: %w", err)
	}

	action := strings.ToLower(strings.TrimSpace(p.Action))
	if action == "" {
		return model.CareEvent{}, errors.New("care event action is required")
	}

	e := model.CareEvent{Action: action, Notes: strings.TrimSpace(p.Notes)}
	if p.Timestamp != "" {
		ts, err := parseTimestamp(p.Timestamp)
		if err != nil {
			return model.CareEvent{}, err
		}
		e.Timestamp = ts
	}
	return e, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return ts.UTC(), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (a *App) recordIngestionError(ctx context.Context, plantID, source string, payload []byte, cause error) {
	if a.store == nil {
		return
	}

	recCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	entry := model.IngestionError{
		PlantID: plantID,
		Source:  source,
		Payload: truncateString(string(payload), 4096),
		Error:   cause.Error(),
	}

	if err := a.store.InsertIngestionError(recCtx, entry); err != nil {
		a.logger.Error("failed to persist ingestion error", "error", err)
	}
}

func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
