package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"basilcare/plant-hub/internal/activity"
	"basilcare/plant-hub/internal/ecology"
	"basilcare/plant-hub/internal/model"
)

func (a *App) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet)

	r.HandleFunc("/api/plants/{plantID}/readings", a.handleRecentReadings).Methods(http.MethodGet)
	r.HandleFunc("/api/plants/{plantID}/readings", a.handlePostReading).Methods(http.MethodPost)
	r.HandleFunc("/api/plants/{plantID}/evaluation", a.handleEvaluation).Methods(http.MethodGet)
	r.HandleFunc("/api/plants/{plantID}/activities", a.handleActivities).Methods(http.MethodGet)
	r.HandleFunc("/api/plants/{plantID}/care", a.handleListCare).Methods(http.MethodGet)
	r.HandleFunc("/api/plants/{plantID}/care", a.handlePostCare).Methods(http.MethodPost)
	r.HandleFunc("/api/evaluate", a.handleEvaluate).Methods(http.MethodPost)
	r.HandleFunc("/api/simulator/scenarios", a.handleScenarios).Methods(http.MethodGet)
	r.HandleFunc("/api/simulator/scenarios/{name}", a.handleScenario).Methods(http.MethodGet)
	r.HandleFunc("/api/weather", a.handleWeather).Methods(http.MethodGet)
	r.HandleFunc("/api/config", a.serveConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config", a.updateConfig).Methods(http.MethodPost)
	r.HandleFunc("/api/export/readings", a.handleExportReadings).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/wipe", a.handleWipeDatabase).Methods(http.MethodPost)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelError)),
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return recovery(cors(r))
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		a.logger.Warn("readiness: store unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}

	if a.mqtt != nil && !a.mqtt.Connected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "mqtt disconnected"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *App) handleRecentReadings(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]

	var sinceOpt *time.Time
	if since := r.URL.Query().Get("since"); since != "" {
		if ts, err := parseTimestamp(since); err == nil {
			sinceOpt = &ts
		}
	}

	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			if parsed > 0 && parsed <= 250 {
				limit = parsed
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	readings, err := a.store.RecentSensorReadings(ctx, plantID, limit, sinceOpt)
	if err != nil {
		a.logger.Error("failed to load recent readings", "plant", plantID, "error", err)
		http.Error(w, "failed to load readings", http.StatusInternalServerError)
		return
	}
	if readings == nil {
		readings = []model.StoredSensorReading{}
	}

	writeJSON(w, http.StatusOK, struct {
		PlantID  string                      `json:"plantId"`
		Readings []model.StoredSensorReading `json:"readings"`
	}{plantID, readings})
}

func (a *App) handlePostReading(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]

	body, err := readBody(w, r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	reading, err := decodeReading(body)
	if err != nil {
		a.recordIngestionError(r.Context(), plantID, "http", body, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := a.ingestReading(r.Context(), plantID, "http", reading); err != nil {
		a.logger.Error("failed to persist sensor reading", "plant", plantID, "error", err)
		a.recordIngestionError(r.Context(), plantID, "http", body, err)
		http.Error(w, "failed to persist reading", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *App) handleEvaluation(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, ok, err := a.evaluatePlant(ctx, plantID, queryDays(r))
	if err != nil {
		a.logger.Error("evaluation failed", "plant", plantID, "error", err)
		http.Error(w, "failed to evaluate plant", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no readings for plant", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		PlantID string `json:"plantId"`
		cachedEvaluation
	}{plantID, result})
}

func (a *App) handleActivities(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]
	since := a.historyWindow(queryDays(r))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	history, err := a.store.SensorHistory(ctx, plantID, since)
	if err != nil {
		a.logger.Error("failed to load history", "plant", plantID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	careLog, err := a.store.CareEvents(ctx, plantID, since)
	if err != nil {
		a.logger.Error("failed to load care log", "plant", plantID, "error", err)
		http.Error(w, "failed to load care log", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		PlantID    string              `json:"plantId"`
		Activities []activity.Activity `json:"activities"`
	}{plantID, activity.Detect(history, careLog)})
}

func (a *App) handleListCare(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	careLog, err := a.store.CareEvents(ctx, plantID, a.historyWindow(queryDays(r)))
	if err != nil {
		a.logger.Error("failed to load care log", "plant", plantID, "error", err)
		http.Error(w, "failed to load care log", http.StatusInternalServerError)
		return
	}
	if careLog == nil {
		careLog = []model.CareEvent{}
	}

	writeJSON(w, http.StatusOK, struct {
		PlantID string            `json:"plantId"`
		Events  []model.CareEvent `json:"events"`
	}{plantID, careLog})
}

func (a *App) handlePostCare(w http.ResponseWriter, r *http.Request) {
	plantID := mux.Vars(r)["plantID"]

	body, err := readBody(w, r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	event, err := decodeCareEvent(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	event.PlantID = plantID

	stored, err := a.logCareEvent(r.Context(), event)
	if err != nil {
		a.logger.Error("failed to persist care event", "plant", plantID, "error", err)
		http.Error(w, "failed to persist care event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}

// handleEvaluate runs the model on a caller-supplied reading without touching
// stored state.
func (a *App) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reading  *model.SensorReading `json:"reading"`
		History  model.SensorHistory  `json:"history"`
		CareLog  []model.CareEvent    `json:"careLog"`
		Forecast *model.Forecast      `json:"forecast"`
		Weather  bool                 `json:"useWeather"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if req.Forecast == nil && req.Weather {
		req.Forecast = a.forecast(r.Context())
	}

	ev, ok := ecology.Evaluate(ecology.Input{
		Reading:  req.Reading,
		History:  req.History,
		CareLog:  req.CareLog,
		Forecast: req.Forecast,
	})
	if !ok {
		http.Error(w, "reading is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, ev)
}

func (a *App) handleScenarios(w http.ResponseWriter, r *http.Request) {
	type scenario struct {
		Name    string              `json:"name"`
		Reading model.SensorReading `json:"reading"`
	}

	names := ecology.Scenarios()
	out := make([]scenario, 0, len(names))
	for _, name := range names {
		reading, err := ecology.Scenario(name)
		if err != nil {
			continue
		}
		out = append(out, scenario{Name: name, Reading: reading})
	}

	writeJSON(w, http.StatusOK, struct {
		Scenarios []scenario `json:"scenarios"`
	}{out})
}

func (a *App) handleScenario(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	reading, err := ecology.Scenario(name)
	if errors.Is(err, ecology.ErrUnknownScenario) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "failed to load scenario", http.StatusInternalServerError)
		return
	}

	reading.Timestamp = time.Now().UTC()
	ev, _ := ecology.Evaluate(ecology.Input{Reading: &reading})

	writeJSON(w, http.StatusOK, struct {
		Name       string             `json:"name"`
		Evaluation ecology.Evaluation `json:"evaluation"`
	}{strings.ToLower(name), ev})
}

func (a *App) handleWeather(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	f := a.forecast(ctx)
	if f == nil {
		http.Error(w, "weather unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Forecast *model.Forecast `json:"weather"`
		Tip      string          `json:"careTip"`
	}{f, ecology.WeatherTip(f)})
}

func (a *App) serveConfig(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	persisted, err := a.store.AppConfig(ctx)
	if err != nil {
		a.logger.Error("failed to load app config", "error", err)
		http.Error(w, "failed to load config", http.StatusInternalServerError)
		return
	}

	active := map[string]any{
		"http_port":         a.cfg.HTTPPort,
		"database_path":     a.cfg.DatabasePath,
		"log_level":         a.cfg.LogLevel,
		"mqtt_broker_url":   a.cfg.MQTTBrokerURL,
		"mqtt_topic_prefix": a.cfg.MQTTTopicPrefix,
		"hub_url":           a.cfg.HubURL,
		"hub_plant_id":      a.cfg.HubPlantID,
		"hub_poll_interval": a.cfg.HubPollInterval.String(),
		"hub_temp_unit":     a.cfg.HubTempUnit,
		"weather_url":       a.cfg.WeatherURL,
		"weather_units":     a.cfg.WeatherUnits,
		"kafka_enabled":     a.cfg.KafkaEnabled(),
		"debounce_interval": a.cfg.DebounceInterval.String(),
		"history_days":      a.cfg.HistoryDays,
	}

	writeJSON(w, http.StatusOK, struct {
		Active    map[string]any    `json:"active"`
		Persisted map[string]string `json:"persisted"`
	}{active, persisted})
}

func (a *App) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HubTempUnit      *string `json:"hub_temp_unit"`
		WeatherUnits     *string `json:"weather_units"`
		DebounceInterval *string `json:"debounce_interval"`
		HistoryDays      *int    `json:"history_days"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	var updates []model.AppConfigEntry

	if req.HubTempUnit != nil {
		u, err := model.ParseTemperatureUnit(*req.HubTempUnit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		updates = append(updates, model.AppConfigEntry{Key: "hub_temp_unit", Value: string(u)})
	}
	if req.WeatherUnits != nil {
		u, err := model.ParseTemperatureUnit(*req.WeatherUnits)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		updates = append(updates, model.AppConfigEntry{Key: "weather_units", Value: string(u)})
	}
	if req.DebounceInterval != nil {
		d, err := time.ParseDuration(*req.DebounceInterval)
		if err != nil || d < 0 {
			http.Error(w, "debounce_interval must be a non-negative duration", http.StatusBadRequest)
			return
		}
		updates = append(updates, model.AppConfigEntry{Key: "debounce_interval", Value: d.String()})
	}
	if req.HistoryDays != nil {
		if *req.HistoryDays < 1 || *req.HistoryDays > 365 {
			http.Error(w, "history_days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		updates = append(updates, model.AppConfigEntry{Key: "history_days", Value: strconv.Itoa(*req.HistoryDays)})
	}

	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no supported fields provided"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, u := range updates {
		if err := a.store.UpsertAppConfig(ctx, u.Key, u.Value); err != nil {
			a.logger.Error("failed to update config", "key", u.Key, "error", err)
			http.Error(w, "failed to persist config", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Updates         []model.AppConfigEntry `json:"updates"`
		RequiresRestart bool                   `json:"requires_restart"`
	}{updates, true})
}

func (a *App) handleExportReadings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	readings, err := a.store.AllSensorReadings(ctx)
	if err != nil {
		a.logger.Error("export: failed to load readings", "error", err)
		http.Error(w, "failed to load readings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=plant_readings.csv")

	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write([]string{
		"recorded_at",
		"received_at",
		"plant_id",
		"source",
		"soil_moisture",
		"temperature_c",
		"humidity",
		"light",
		"status",
	}); err != nil {
		a.logger.Error("export: failed to write header", "error", err)
		return
	}

	for _, reading := range readings {
		row := []string{
			reading.Timestamp.UTC().Format(time.RFC3339Nano),
			reading.ReceivedAt.UTC().Format(time.RFC3339Nano),
			reading.PlantID,
			reading.Source,
			formatFloat(reading.SoilMoisture),
			formatFloat(reading.Temperature),
			formatFloat(reading.Humidity),
			formatFloat(reading.Light),
			string(ecology.Status(reading.SensorReading)),
		}
		if err := csvWriter.Write(row); err != nil {
			a.logger.Error("export: failed to write row", "error", err)
			return
		}
	}

	if err := csvWriter.Error(); err != nil {
		a.logger.Error("export: writer error", "error", err)
	}
}

func (a *App) handleWipeDatabase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm string `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if strings.ToLower(strings.TrimSpace(body.Confirm)) != "wipe" {
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.store.WipeData(ctx); err != nil {
		a.logger.Error("wipe: failed", "error", err)
		http.Error(w, "failed to wipe data", http.StatusInternalServerError)
		return
	}
	a.clearEvaluations()

	a.logger.Warn("wipe: all telemetry cleared")
	w.WriteHeader(http.StatusNoContent)
}

func queryDays(r *http.Request) int {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > 365 {
		return 0
	}
	return days
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
