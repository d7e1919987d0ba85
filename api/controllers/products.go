package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/internal/recent"
	"github.com/commercezen/engine/pkg/logger"
)

// ProductList returns the catalog, optionally only featured products.
func ProductList(repo *catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			products []catalog.Product
			err      error
		)
		if r.URL.Query().Get("featured") == "true" {
			products, err = repo.ListFeatured(r.Context())
		} else {
			products, err = repo.List(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// ProductGet returns one product and notes the view in the recently viewed
// history.
func ProductGet(repo *catalog.Repository, tracker *recent.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		product, err := repo.FindByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if tracker != nil {
			tracker.Record(r.Context(), product.ID)
		}
		responses.WriteSuccess(w, product)
	}
}
