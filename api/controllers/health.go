package controllers

import (
	"context"
	"net/http"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/pkg/logger"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports process liveness plus the reachability of the document
// store.
func Healthz(check func(ctx context.Context) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if check != nil {
			if err := check(r.Context()); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "health check failed", err)
				}
				resp.Status = "degraded"
				resp.Checks = map[string]string{"store": err.Error()}
				responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.Checks = map[string]string{"store": "ok"}
		}
		responses.WriteSuccess(w, resp)
	}
}
