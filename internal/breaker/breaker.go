// Package breaker guards outbound HTTP calls with a circuit breaker so a dead
// hub or weather service fails fast instead of stalling every poll.
package breaker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes when the breaker trips and how long it stays open.
type Config struct {
	MaxFailures  uint32
	ResetTimeout time.Duration
}

// HTTPClient wraps an http.Client with circuit breaker behavior. Transport
// errors and 5xx responses count as failures.
type HTTPClient struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewHTTPClient builds a breaker-guarded client. A nil httpClient gets a
// client with a 15s timeout.
func NewHTTPClient(name string, cfg Config, httpClient *http.Client, logger *slog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &HTTPClient{client: httpClient, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do sends req through the breaker. On a 5xx response the body is drained and
// an error is returned instead of the response.
func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	out, err := h.cb.Execute(func() (interface{}, error) {
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.CopyN(io.Discard, resp.Body, 512)
			resp.Body.Close()
			return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", h.cb.Name(), ErrOpen)
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

// State reports the breaker state as "closed", "half-open" or "open".
func (h *HTTPClient) State() string {
	return h.cb.State().String()
}
