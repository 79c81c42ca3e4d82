package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

// NamedCheck is one readiness probe. Name identifies the failing subsystem in
// the /readyz response body so an operator can tell a not-yet-ticked
// orchestrator from a dead bridge without reading logs.
type NamedCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// healthResponse is the body of both probe endpoints. Failed and Reason are
// set only on a failing readiness response.
type healthResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
	Reason string `json:"reason,omitempty"`
}

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

func writeHealth(rw http.ResponseWriter, code int, body healthResponse) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(body)
}

// HealthHandler returns the /healthz liveness handler: HTTP 200 as long as
// the process can serve at all.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthResponse{Status: healthStatusOK})
	})
}

// ReadyHandler returns the /readyz readiness handler. The first failing check
// produces HTTP 503 naming the check and its error; with no checks, or all
// passing, it returns HTTP 200. The orchestrator registers "first-tick",
// which fails until one tick has completed with measured script costs.
func ReadyHandler(checks ...NamedCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, c := range checks {
			err := c.Check(hr.Context())
			if err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthResponse{
					Status: healthStatusUnavailable,
					Failed: c.Name,
					Reason: err.Error(),
				})

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthResponse{Status: healthStatusOK})
	})
}
