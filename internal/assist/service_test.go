package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerStub struct {
	complete func(ctx context.Context, messages []Message) (string, error)
}

func (s *completerStub) Complete(ctx context.Context, messages []Message) (string, error) {
	return s.complete(ctx, messages)
}

func TestService_Chat(t *testing.T) {
	ctx := context.Background()

	t.Run("requires input", func(t *testing.T) {
		service, err := NewService(&completerStub{}, 0)
		require.NoError(t, err)

		_, err = service.Chat(ctx, "   ", nil)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("prepends the system prompt and appends the question", func(t *testing.T) {
		var got []Message
		service, err := NewService(&completerStub{
			complete: func(_ context.Context, messages []Message) (string, error) {
				got = messages
				return "happy to help", nil
			},
		}, 0)
		require.NoError(t, err)

		answer, err := service.Chat(ctx, "where is my order?", []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		})
		require.NoError(t, err)
		assert.Equal(t, "happy to help", answer)

		require.Len(t, got, 4)
		assert.Equal(t, "system", got[0].Role)
		assert.Equal(t, "hi", got[1].Content)
		assert.Equal(t, "where is my order?", got[3].Content)
	})

	t.Run("bounds the history", func(t *testing.T) {
		var got []Message
		service, err := NewService(&completerStub{
			complete: func(_ context.Context, messages []Message) (string, error) {
				got = messages
				return "ok", nil
			},
		}, 2)
		require.NoError(t, err)

		history := []Message{
			{Role: "user", Content: "one"},
			{Role: "assistant", Content: "two"},
			{Role: "user", Content: "three"},
		}
		_, err = service.Chat(ctx, "now", history)
		require.NoError(t, err)

		require.Len(t, got, 4) // system + 2 history + question
		assert.Equal(t, "two", got[1].Content)
		assert.Equal(t, "three", got[2].Content)
	})
}

func TestService_RecommendProducts(t *testing.T) {
	ctx := context.Background()
	lines := []CartLine{{Name: "Quantum Laptop", Quantity: 1, Price: decimal.NewFromInt(1200)}}

	t.Run("requires cart lines", func(t *testing.T) {
		service, err := NewService(&completerStub{}, 0)
		require.NoError(t, err)

		_, err = service.RecommendProducts(ctx, nil)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("decodes plain suggestions", func(t *testing.T) {
		service, err := NewService(&completerStub{
			complete: func(_ context.Context, _ []Message) (string, error) {
				return `[{"name":"Laptop Sleeve","description":"Padded 14 inch sleeve","price":39.99,"category":"Accessories"}]`, nil
			},
		}, 0)
		require.NoError(t, err)

		suggestions, err := service.RecommendProducts(ctx, lines)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, "Laptop Sleeve", suggestions[0].Name)
		assert.True(t, suggestions[0].Price.Equal(decimal.NewFromFloat(39.99)))
	})

	t.Run("tolerates code fences around the payload", func(t *testing.T) {
		service, err := NewService(&completerStub{
			complete: func(_ context.Context, _ []Message) (string, error) {
				return "```json\n[{\"name\":\"USB Hub\",\"description\":\"7 ports\",\"price\":25,\"category\":\"Accessories\"}]\n```", nil
			},
		}, 0)
		require.NoError(t, err)

		suggestions, err := service.RecommendProducts(ctx, lines)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, "USB Hub", suggestions[0].Name)
	})

	t.Run("surfaces malformed payloads", func(t *testing.T) {
		service, err := NewService(&completerStub{
			complete: func(_ context.Context, _ []Message) (string, error) {
				return "I would recommend a nice mouse.", nil
			},
		}, 0)
		require.NoError(t, err)

		_, err = service.RecommendProducts(ctx, lines)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	})
}

func TestClient_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an api key", func(t *testing.T) {
		_, err := NewClient("   ")
		assert.Error(t, err)
	})

	t.Run("round trips a completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req struct {
				Model    string    `json:"model"`
				Messages []Message `json:"messages"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-model", req.Model)
			require.Len(t, req.Messages, 1)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": Message{Role: "assistant", Content: "pong"}},
				},
			})
		}))
		defer server.Close()

		client, err := NewClient("test-key", WithBaseURL(server.URL), WithModel("test-model"))
		require.NoError(t, err)

		answer, err := client.Complete(ctx, []Message{{Role: "user", Content: "ping"}})
		require.NoError(t, err)
		assert.Equal(t, "pong", answer)
	})

	t.Run("maps upstream failures to dependency errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewClient("test-key", WithBaseURL(server.URL))
		require.NoError(t, err)

		_, err = client.Complete(ctx, []Message{{Role: "user", Content: "ping"}})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	})

	t.Run("rejects an empty conversation", func(t *testing.T) {
		client, err := NewClient("test-key")
		require.NoError(t, err)

		_, err = client.Complete(ctx, nil)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})
}
