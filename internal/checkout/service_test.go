package checkout

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/commercezen/engine/internal/cart"
	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/internal/orders"
	"github.com/commercezen/engine/pkg/config"
	"github.com/commercezen/engine/pkg/enums"
	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/sessionstore"
	"github.com/commercezen/engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service  *Service
	provider *identity.Provider
	cart     *cart.Manager
	engine   *orders.Engine
	repo     *orders.Repo
	sessions sessionstore.Store
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	provider := identity.NewProvider()
	provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})

	cartManager, err := cart.NewManager(cart.ManagerParams{
		ProfileID: "profile-1",
		Store:     kvstore.NewMemoryStore(),
	})
	require.NoError(t, err)

	repo, err := orders.NewRepo(kvstore.NewMemoryStore(), nil)
	require.NoError(t, err)
	engine, err := orders.NewEngine(orders.EngineParams{
		Provider: provider,
		Repo:     repo,
		Policy:   orders.DefaultDeliveryPolicy(),
		Interval: time.Hour,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	sessions := sessionstore.NewMemoryStore()
	service, err := NewService(ServiceParams{
		Provider: provider,
		Cart:     cartManager,
		Engine:   engine,
		Sessions: sessions,
		Payment:  config.PaymentConfig{DeclinePrefix: "0000", PendingTTL: 30 * time.Minute},
		Delivery: config.DeliveryConfig{MinDays: 6, MaxDays: 6},
		Now:      func() time.Time { return now },
		Rand:     rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	return &fixture{
		service:  service,
		provider: provider,
		cart:     cartManager,
		engine:   engine,
		repo:     repo,
		sessions: sessions,
		now:      now,
	}
}

func (f *fixture) fillCart(ctx context.Context) {
	f.cart.AddItem(ctx, catalog.Product{ID: "p1", Name: "Product p1", Price: decimal.NewFromInt(500)}, 2)
	f.cart.AddItem(ctx, catalog.Product{ID: "p2", Name: "Product p2", Price: decimal.NewFromInt(1200)}, 1)
}

func validAddress() types.Address {
	return types.Address{
		Name:       "Alice Smith",
		Email:      "alice@example.com",
		Line1:      "1 Long Street",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "USA",
	}
}

func validCard() CardDetails {
	return CardDetails{
		Name:   "Alice Smith",
		Number: "4242 4242 4242 4242",
		Expiry: "12/28",
		CVC:    "123",
	}
}

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a logged in identity", func(t *testing.T) {
		f := newFixture(t)
		f.provider.Set(nil)

		_, err := f.service.Checkout(ctx, validAddress())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLoginRequired))
	})

	t.Run("rejects an incomplete address", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)

		address := validAddress()
		address.Email = "not-an-email"
		_, err := f.service.Checkout(ctx, address)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Checkout(ctx, validAddress())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("stages a pending order with captured prices", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)

		order, err := f.service.Checkout(ctx, validAddress())
		require.NoError(t, err)

		assert.Regexp(t, `^order_\d+_[a-z0-9]{5}$`, order.ID)
		assert.Equal(t, "alice@example.com", order.UserID)
		assert.Equal(t, enums.OrderStatusProcessing, order.Status)
		assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2200)))
		assert.Equal(t, f.now.AddDate(0, 0, 6), order.EstimatedDeliveryDate)
		require.Len(t, order.Items, 2)
		assert.True(t, order.Items[0].PriceAtPurchase.Equal(decimal.NewFromInt(500)))

		pending, err := f.service.PendingOrder(ctx)
		require.NoError(t, err)
		assert.Equal(t, order.ID, pending.ID)

		// Checkout alone commits nothing to the history.
		assert.Empty(t, f.engine.Orders(ctx))
		assert.Equal(t, 3, f.cart.ItemCount(ctx))
	})
}

func TestService_Pay(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a pending order", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Pay(ctx, validCard())
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	})

	t.Run("rejects malformed card details", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)
		_, err := f.service.Checkout(ctx, validAddress())
		require.NoError(t, err)

		card := validCard()
		card.Number = "42x"
		_, err = f.service.Pay(ctx, card)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("declined card keeps the cart and the pending order", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)
		_, err := f.service.Checkout(ctx, validAddress())
		require.NoError(t, err)

		card := validCard()
		card.Number = "0000111122223333"
		_, err = f.service.Pay(ctx, card)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined))

		assert.Equal(t, 3, f.cart.ItemCount(ctx))
		pending, err := f.service.PendingOrder(ctx)
		require.NoError(t, err)
		assert.NotNil(t, pending)
		assert.Empty(t, f.engine.Orders(ctx))
	})

	t.Run("success commits the order and clears the session", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)
		staged, err := f.service.Checkout(ctx, validAddress())
		require.NoError(t, err)

		settled, err := f.service.Pay(ctx, validCard())
		require.NoError(t, err)
		assert.Equal(t, staged.ID, settled.ID)

		history := f.engine.Orders(ctx)
		require.Len(t, history, 1)
		assert.Equal(t, staged.ID, history[0].ID)

		persisted, err := f.repo.Load(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Len(t, persisted, 1)

		assert.Zero(t, f.cart.ItemCount(ctx))
		_, err = f.service.PendingOrder(ctx)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	})

	t.Run("retry after a decline succeeds", func(t *testing.T) {
		f := newFixture(t)
		f.fillCart(ctx)
		_, err := f.service.Checkout(ctx, validAddress())
		require.NoError(t, err)

		card := validCard()
		card.Number = "0000111122223333"
		_, err = f.service.Pay(ctx, card)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentDeclined))

		_, err = f.service.Pay(ctx, validCard())
		require.NoError(t, err)
		assert.Len(t, f.engine.Orders(ctx), 1)
	})
}
