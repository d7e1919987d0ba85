package controllers

import (
	"net/http"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/internal/recent"
	"github.com/commercezen/engine/pkg/logger"
)

// RecentlyViewed returns the resolved view history, newest first.
func RecentlyViewed(tracker *recent.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := tracker.Items(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []catalog.Product{}
		}
		responses.WriteSuccess(w, items)
	}
}
