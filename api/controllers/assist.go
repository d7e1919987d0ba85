package controllers

import (
	"net/http"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/api/validators"
	assistsvc "github.com/commercezen/engine/internal/assist"
	cartsvc "github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/pkg/logger"
)

type assistChatRequest struct {
	Message string              `json:"message" validate:"required"`
	History []assistsvc.Message `json:"history"`
}

type assistChatResponse struct {
	Reply string `json:"reply"`
}

// AssistChat answers a support question.
func AssistChat(svc *assistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload assistChatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Chat(r.Context(), payload.Message, payload.History)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assistChatResponse{Reply: reply})
	}
}

// AssistRecommendations suggests products complementing the current cart.
func AssistRecommendations(svc *assistsvc.Service, manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lines := make([]assistsvc.CartLine, 0)
		for _, item := range manager.Items(r.Context()) {
			lines = append(lines, assistsvc.CartLine{
				Name:     item.Name,
				Quantity: item.Quantity,
				Price:    item.Price,
			})
		}

		suggestions, err := svc.RecommendProducts(r.Context(), lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}
