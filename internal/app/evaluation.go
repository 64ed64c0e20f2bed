package app

import (
	"context"
	"errors"
	"time"

	"basilcare/plant-hub/internal/ecology"
	"basilcare/plant-hub/internal/events"
	"basilcare/plant-hub/internal/model"
	"basilcare/plant-hub/internal/store"
)

type cachedEvaluation struct {
	Evaluation  ecology.Evaluation `json:"evaluation"`
	EvaluatedAt time.Time          `json:"evaluatedAt"`
}

// plantSnapshot is everything stored about a plant for one evaluation window.
type plantSnapshot struct {
	Latest   *model.SensorReading
	History  model.SensorHistory
	CareLog  []model.CareEvent
	Forecast *model.Forecast
}

func (a *App) historyWindow(days int) time.Time {
	if days <= 0 {
		days = a.cfg.HistoryDays
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

func (a *App) loadSnapshot(ctx context.Context, plantID string, days int) (plantSnapshot, error) {
	var snap plantSnapshot
	since := a.historyWindow(days)

	latest, err := a.store.LatestSensorReading(ctx, plantID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return snap, err
	default:
		snap.Latest = &latest.SensorReading
	}

	if snap.History, err = a.store.SensorHistory(ctx, plantID, since); err != nil {
		return snap, err
	}
	if snap.CareLog, err = a.store.CareEvents(ctx, plantID, since); err != nil {
		return snap, err
	}

	snap.Forecast = a.forecast(ctx)
	return snap, nil
}

// forecast returns the current forecast or nil when the provider has none.
func (a *App) forecast(ctx context.Context) *model.Forecast {
	if a.weather == nil {
		return nil
	}
	f, err := a.weather.Forecast(ctx)
	if err != nil {
		a.logger.Debug("weather unavailable", "error", err)
		return nil
	}
	return f
}

// evaluatePlant runs the ecological model over the stored state of plantID
// and caches the result. When the plant has no reading, the last cached
// evaluation is returned instead; ok is false if there is none.
func (a *App) evaluatePlant(ctx context.Context, plantID string, days int) (cachedEvaluation, bool, error) {
	snap, err := a.loadSnapshot(ctx, plantID, days)
	if err != nil {
		return cachedEvaluation{}, false, err
	}

	ev, ok := ecology.Evaluate(ecology.Input{
		Reading:  snap.Latest,
		History:  snap.History,
		CareLog:  snap.CareLog,
		Forecast: snap.Forecast,
	})
	if !ok {
		cached, found := a.cachedEvaluation(plantID)
		return cached, found, nil
	}

	result := cachedEvaluation{Evaluation: ev, EvaluatedAt: time.Now().UTC()}
	previous, hadPrevious := a.storeEvaluation(plantID, result)

	if !hadPrevious || previous.Evaluation.Status != ev.Status {
		a.publishStatusChange(ctx, plantID, previous, hadPrevious, result)
	}

	return result, true, nil
}

func (a *App) publishStatusChange(ctx context.Context, plantID string, previous cachedEvaluation, hadPrevious bool, current cachedEvaluation) {
	change := events.StatusChange{
		PlantID: plantID,
		To:      current.Evaluation.Status,
		Reading: &current.Evaluation.Reading,
		At:      current.EvaluatedAt,
	}
	if hadPrevious {
		change.From = previous.Evaluation.Status
	}

	a.logger.Info("plant status changed", "plant", plantID, "from", change.From, "to", change.To)

	if a.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.publisher.PublishStatusChange(pubCtx, change); err != nil {
		a.logger.Error("failed to publish status change", "plant", plantID, "error", err)
	}
}

// reevaluate is the debounced refresh triggered by ingestion.
func (a *App) reevaluate(plantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, ok, err := a.evaluatePlant(ctx, plantID, 0)
	if err != nil {
		a.logger.Error("re-evaluation failed", "plant", plantID, "error", err)
		return
	}
	if !ok {
		return
	}
	a.logger.Debug("plant re-evaluated", "plant", plantID, "status", result.Evaluation.Status,
		"recommendations", len(result.Evaluation.Recommendations))
}

func (a *App) cachedEvaluation(plantID string) (cachedEvaluation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ev, ok := a.evaluations[plantID]
	return ev, ok
}

func (a *App) storeEvaluation(plantID string, ev cachedEvaluation) (cachedEvaluation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	previous, ok := a.evaluations[plantID]
	a.evaluations[plantID] = ev
	return previous, ok
}

func (a *App) clearEvaluations() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluations = make(map[string]cachedEvaluation)
}
