package v1

import (
	"context"
	"net/http"
	"time"

	"storefront-console/pkg/utils"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	responder
	checks map[string]Pinger
}

// NewHealthHandler builds the probes. Nil checks are skipped.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	live := make(map[string]Pinger, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checks: live}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.ok(w, map[string]string{"status": "ok"})
}

// Ready pings every dependency and answers 503 when one of them fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}
	utils.WriteJSON(w, status, report)
}
