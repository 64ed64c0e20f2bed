package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"basilcare/plant-hub/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

var errNotInitialized = errors.New("store not initialized")

// Store wraps the SQLite database connection and schema lifecycle.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errNotInitialized
	}
	return s.db.PingContext(ctx)
}

// InitSchema ensures baseline tables exist.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plant_id TEXT NOT NULL,
			soil_moisture REAL NOT NULL,
			temperature REAL NOT NULL,
			humidity REAL NOT NULL,
			light REAL NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL,
			received_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
			UNIQUE (plant_id, recorded_at)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_readings_plant_time ON sensor_readings(plant_id, recorded_at);`,
		`CREATE TABLE IF NOT EXISTS care_events (
			id TEXT PRIMARY KEY,
			plant_id TEXT NOT NULL,
			action TEXT NOT NULL,
			notes TEXT,
			occurred_at TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_care_events_plant_time ON care_events(plant_id, occurred_at);`,
		`CREATE TABLE IF NOT EXISTS ingestion_errors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plant_id TEXT,
			source TEXT,
			payload TEXT,
			error TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);`,
		`CREATE TABLE IF NOT EXISTS app_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// InsertSensorReading persists a reading for plantID. A second reading with
// the same plant and timestamp replaces the first, keeping history unique by
// timestamp.
func (s *Store) InsertSensorReading(ctx context.Context, plantID, source string, r model.SensorReading) error {
	if s.db == nil {
		return errNotInitialized
	}

	recordedAt := r.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sensor_readings (plant_id, soil_moisture, temperature, humidity, light, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(plant_id, recorded_at) DO UPDATE SET
			soil_moisture = excluded.soil_moisture,
			temperature = excluded.temperature,
			humidity = excluded.humidity,
			light = excluded.light,
			source = excluded.source;`,
		plantID,
		r.SoilMoisture,
		r.Temperature,
		r.Humidity,
		r.Light,
		source,
		formatTime(recordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sensor reading: %w", err)
	}

	return nil
}

const readingColumns = `plant_id, soil_moisture, temperature, humidity, light, source, recorded_at, received_at`

// RecentSensorReadings returns the newest readings for plantID, newest first.
func (s *Store) RecentSensorReadings(ctx context.Context, plantID string, limit int, since *time.Time) ([]model.StoredSensorReading, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	if limit <= 0 {
		limit = 25
	}

	query := `SELECT ` + readingColumns + ` FROM sensor_readings WHERE plant_id = ?`
	args := []interface{}{plantID}
	if since != nil {
		query += ` AND recorded_at > ?`
		args = append(args, formatTime(*since))
	}
	query += ` ORDER BY recorded_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("query recent sensor readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// LatestSensorReading returns the most recent reading for plantID or ErrNotFound.
func (s *Store) LatestSensorReading(ctx context.Context, plantID string) (model.StoredSensorReading, error) {
	readings, err := s.RecentSensorReadings(ctx, plantID, 1, nil)
	if err != nil {
		return model.StoredSensorReading{}, err
	}
	if len(readings) == 0 {
		return model.StoredSensorReading{}, ErrNotFound
	}
	return readings[0], nil
}

// SensorHistory returns readings for plantID recorded at or after since,
// oldest first.
func (s *Store) SensorHistory(ctx context.Context, plantID string, since time.Time) (model.SensorHistory, error) {
	stored, err := s.sensorReadingsSince(ctx, plantID, since)
	if err != nil {
		return nil, err
	}
	history := make(model.SensorHistory, 0, len(stored))
	for _, r := range stored {
		history = append(history, r.SensorReading)
	}
	return history, nil
}

func (s *Store) sensorReadingsSince(ctx context.Context, plantID string, since time.Time) ([]model.StoredSensorReading, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+readingColumns+`
		 FROM sensor_readings
		 WHERE plant_id = ? AND recorded_at >= ?
		 ORDER BY recorded_at ASC;`,
		plantID,
		formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query sensor history: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// AllSensorReadings returns every stored reading ordered by recorded time.
func (s *Store) AllSensorReadings(ctx context.Context) ([]model.StoredSensorReading, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+readingColumns+`
		 FROM sensor_readings
		 ORDER BY recorded_at ASC;`)
	if err != nil {
		return nil, fmt.Errorf("query sensor readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]model.StoredSensorReading, error) {
	var readings []model.StoredSensorReading
	for rows.Next() {
		var (
			r             model.StoredSensorReading
			recordedAtStr string
			receivedAtStr string
		)
		if err := rows.Scan(
			&r.PlantID,
			&r.SoilMoisture,
			&r.Temperature,
			&r.Humidity,
			&r.Light,
			&r.Source,
			&recordedAtStr,
			&receivedAtStr,
		); err != nil {
			return nil, fmt.Errorf("scan sensor reading: %w", err)
		}
		r.Timestamp = parseTime(recordedAtStr)
		r.ReceivedAt = parseTime(receivedAtStr)
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensor readings: %w", err)
	}

	return readings, nil
}

// InsertCareEvent stores a manual care event. An empty ID is replaced with a
// new UUID and a zero timestamp with the current time; the stored event is
// returned.
func (s *Store) InsertCareEvent(ctx context.Context, e model.CareEvent) (model.CareEvent, error) {
	if s.db == nil {
		return model.CareEvent{}, errNotInitialized
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO care_events (id, plant_id, action, notes, occurred_at) VALUES (?, ?, ?, ?, ?);`,
		e.ID,
		e.PlantID,
		e.Action,
		e.Notes,
		formatTime(e.Timestamp),
	)
	if err != nil {
		return model.CareEvent{}, fmt.Errorf("insert care event: %w", err)
	}
	return e, nil
}

// CareEvents returns the care log for plantID since the given time, newest first.
func (s *Store) CareEvents(ctx context.Context, plantID string, since time.Time) ([]model.CareEvent, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, plant_id, action, notes, occurred_at
		 FROM care_events
		 WHERE plant_id = ? AND occurred_at >= ?
		 ORDER BY occurred_at DESC;`,
		plantID,
		formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query care events: %w", err)
	}
	defer rows.Close()

	var events []model.CareEvent
	for rows.Next() {
		var (
			e     model.CareEvent
			notes sql.NullString
			ts    string
		)
		if err := rows.Scan(&e.ID, &e.PlantID, &e.Action, &notes, &ts); err != nil {
			return nil, fmt.Errorf("scan care event: %w", err)
		}
		e.Notes = notes.String
		e.Timestamp = parseTime(ts)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate care events: %w", err)
	}

	return events, nil
}

// InsertIngestionError records a payload that failed validation.
func (s *Store) InsertIngestionError(ctx context.Context, e model.IngestionError) error {
	if s.db == nil {
		return errNotInitialized
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ingestion_errors (plant_id, source, payload, error) VALUES (?, ?, ?, ?);`,
		e.PlantID,
		e.Source,
		e.Payload,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion error: %w", err)
	}
	return nil
}

// CountIngestionErrors reports how many rejected payloads are on record.
func (s *Store) CountIngestionErrors(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, errNotInitialized
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingestion_errors;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ingestion errors: %w", err)
	}
	return n, nil
}

// UpsertAppConfig stores or updates a configuration key/value pair.
func (s *Store) UpsertAppConfig(ctx context.Context, key, value string) error {
	if s.db == nil {
		return errNotInitialized
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO app_config (key, value, updated_at) VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("upsert app config: %w", err)
	}
	return nil
}

// AppConfig returns all configuration entries as a map.
func (s *Store) AppConfig(ctx context.Context) (map[string]string, error) {
	if s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_config;`)
	if err != nil {
		return nil, fmt.Errorf("query app config: %w", err)
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan app config: %w", err)
		}
		config[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate app config: %w", err)
	}

	return config, nil
}

// WipeData removes all telemetry, care and error data while preserving configuration.
func (s *Store) WipeData(ctx context.Context) error {
	if s.db == nil {
		return errNotInitialized
	}

	stmts := []string{
		`DELETE FROM sensor_readings;`,
		`DELETE FROM care_events;`,
		`DELETE FROM ingestion_errors;`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wipe data: %w", err)
		}
	}

	return nil
}

// Timestamps are stored as fixed-width UTC text so that string comparison in
// SQL orders them chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	ts, _ := time.Parse("2006-01-02T15:04:05Z07:00", s)
	return ts
}
