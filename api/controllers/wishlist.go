package controllers

import (
	"net/http"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/api/validators"
	"github.com/commercezen/engine/internal/catalog"
	wishlistsvc "github.com/commercezen/engine/internal/wishlist"
	"github.com/commercezen/engine/pkg/logger"
)

type wishlistToggleRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type wishlistToggleResponse struct {
	ProductID string `json:"productId"`
	Added     bool   `json:"added"`
	Count     int    `json:"count"`
}

type wishlistResponse struct {
	Items []catalog.Product `json:"items"`
	Count int               `json:"count"`
}

// WishlistToggle flips membership for the product.
func WishlistToggle(manager *wishlistsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload wishlistToggleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, err := manager.Toggle(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, wishlistToggleResponse{
			ProductID: payload.ProductID,
			Added:     added,
			Count:     manager.Count(),
		})
	}
}

// WishlistGet returns the resolved wishlist for the active identity.
func WishlistGet(manager *wishlistsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := manager.Items(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []catalog.Product{}
		}
		responses.WriteSuccess(w, wishlistResponse{Items: items, Count: manager.Count()})
	}
}
