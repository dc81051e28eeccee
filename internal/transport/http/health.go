package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/khangpt2k6/bullroom/internal/clock"
)

// ObserverCounter reports how many real-time observers are connected.
type ObserverCounter interface {
	Count() int
}

// Check probes one dependency for readiness.
type Check func(ctx context.Context) error

type healthResponse struct {
	Status           string    `json:"status"`
	ConnectedClients int       `json:"connectedClients"`
	Timestamp        time.Time `json:"timestamp"`
}

// HealthHandler reports liveness along with the observer count.
func HealthHandler(observers ObserverCounter, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if observers != nil {
			n = observers.Count()
		}
		writeJSON(w, http.StatusOK, healthResponse{
			Status:           "healthy",
			ConnectedClients: n,
			Timestamp:        clk.Now(),
		})
	}
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

const readyTimeout = 2 * time.Second

// ReadyHandler runs every check and answers 503 if any fails.
func ReadyHandler(checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		resp := readyResponse{Status: "ready", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		writeJSON(w, status, resp)
	}
}
