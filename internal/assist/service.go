package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/shopspring/decimal"
)

const supportPrompt = "You are a friendly and helpful customer support agent " +
	"for CommerceZen, an online electronics store. Answer questions about " +
	"orders, shipping, returns, and products. Keep answers short and concrete."

const recommendPrompt = "You are a product recommendation engine for an " +
	"online electronics store. Given the shopper's cart, suggest up to three " +
	"complementary products. Respond with a JSON array only, where each " +
	"element has the fields name, description, price (number), and category."

// CartLine is the assistant's view of one cart entry.
type CartLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Suggestion is one recommended product shape. Suggestions are generated,
// not catalog records, so they carry no id.
type Suggestion struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

// Completer is the slice of the chat client the service needs.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Service exposes the support chat and cart-based recommendations. Failures
// surface to the caller untouched; the assistant never mutates cart, order,
// or wishlist state.
type Service struct {
	client     Completer
	maxHistory int
}

// NewService builds the assistant over a chat-completions client.
func NewService(client Completer, maxHistory int) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("chat client required")
	}
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &Service{client: client, maxHistory: maxHistory}, nil
}

// Chat answers a support question, carrying at most maxHistory prior turns.
func (s *Service) Chat(ctx context.Context, userInput string, history []Message) (string, error) {
	if strings.TrimSpace(userInput) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: supportPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: userInput})

	return s.client.Complete(ctx, messages)
}

// RecommendProducts suggests complementary products for the cart.
func (s *Service) RecommendProducts(ctx context.Context, lines []CartLine) ([]Suggestion, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	cartDoc, err := json.Marshal(lines)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart lines")
	}

	raw, err := s.client.Complete(ctx, []Message{
		{Role: "system", Content: recommendPrompt},
		{Role: "user", Content: string(cartDoc)},
	})
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &suggestions); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode suggestions")
	}
	return suggestions, nil
}

// extractJSONArray trims prose or code fences the model may wrap around the
// JSON payload.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
