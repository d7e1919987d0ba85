package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/api/validators"
	orderssvc "github.com/commercezen/engine/internal/orders"
	"github.com/commercezen/engine/pkg/logger"
)

// OrdersList returns the active identity's history, newest first, with
// statuses derived against the current clock. The optional limit query
// parameter caps the page size.
func OrdersList(engine *orderssvc.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := engine.Orders(r.Context())
		if limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		if list == nil {
			list = []orderssvc.Order{}
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderGet returns one order from the history.
func OrderGet(engine *orderssvc.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := engine.OrderByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
