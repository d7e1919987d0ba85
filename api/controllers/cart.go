package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/api/validators"
	cartsvc "github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/pkg/logger"
	"github.com/shopspring/decimal"
)

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartResponse struct {
	Items     []cartsvc.Item  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// CartGet returns the cart with its derived totals.
func CartGet(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, cartSnapshot(r, manager))
	}
}

// CartAdd resolves the product and adds it to the cart.
func CartAdd(manager *cartsvc.Manager, lookup catalog.Lookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := lookup.FindByID(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager.AddItem(r.Context(), *product, payload.Quantity)
		responses.WriteSuccess(w, cartSnapshot(r, manager))
	}
}

// CartSetQuantity replaces a line's quantity; zero removes the line.
func CartSetQuantity(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		manager.SetQuantity(r.Context(), chi.URLParam(r, "productId"), payload.Quantity)
		responses.WriteSuccess(w, cartSnapshot(r, manager))
	}
}

// CartRemove deletes a line.
func CartRemove(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.RemoveItem(r.Context(), chi.URLParam(r, "productId"))
		responses.WriteSuccess(w, cartSnapshot(r, manager))
	}
}

// CartClear empties the cart.
func CartClear(manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		manager.Clear(r.Context())
		responses.WriteSuccess(w, cartSnapshot(r, manager))
	}
}

func cartSnapshot(r *http.Request, manager *cartsvc.Manager) cartResponse {
	ctx := r.Context()
	items := manager.Items(ctx)
	if items == nil {
		items = []cartsvc.Item{}
	}
	return cartResponse{
		Items:     items,
		Total:     manager.Total(ctx),
		ItemCount: manager.ItemCount(ctx),
	}
}
