package orders

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/enums"
	"github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type engineFixture struct {
	engine   *Engine
	provider *identity.Provider
	repo     *Repo
	clock    *fakeClock
}

func newEngineFixture(t *testing.T, interval time.Duration) *engineFixture {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	provider := identity.NewProvider()
	repo, err := NewRepo(kvstore.NewMemoryStore(), nil)
	require.NoError(t, err)

	engine, err := NewEngine(EngineParams{
		Provider: provider,
		Repo:     repo,
		Policy:   DefaultDeliveryPolicy(),
		Interval: interval,
		Now:      clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, provider: provider, repo: repo, clock: clock}
}

func (f *engineFixture) placeOrder(t *testing.T, id string) Order {
	t.Helper()
	placed := f.clock.Now()
	order := testOrder(id, placed, enums.OrderStatusProcessing)
	require.NoError(t, f.engine.Add(context.Background(), order))
	return order
}

func TestEngine_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a logged in identity", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)

		err := f.engine.Add(ctx, testOrder("order_1_aaaaa", f.clock.Now(), enums.OrderStatusProcessing))
		assert.True(t, errors.IsCode(err, errors.CodeLoginRequired))
	})

	t.Run("rejects an order for another account", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)
		f.provider.Set(&identity.Identity{ID: "bob@example.com", Name: "Bob"})

		err := f.engine.Add(ctx, testOrder("order_1_aaaaa", f.clock.Now(), enums.OrderStatusProcessing))
		assert.True(t, errors.IsCode(err, errors.CodeStateConflict))
	})

	t.Run("persists immediately and prepends", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)
		f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})

		f.placeOrder(t, "order_1_aaaaa")
		f.clock.Advance(time.Hour)
		f.placeOrder(t, "order_2_bbbbb")

		list := f.engine.Orders(ctx)
		require.Len(t, list, 2)
		assert.Equal(t, "order_2_bbbbb", list[0].ID)

		persisted, err := f.repo.Load(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Len(t, persisted, 2)
	})

	t.Run("wakes the sweeper", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)
		f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
		assert.False(t, f.engine.Running())

		f.placeOrder(t, "order_1_aaaaa")
		assert.True(t, f.engine.Running())
	})
}

func TestEngine_Sweep(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, time.Hour)
	f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	f.placeOrder(t, "order_1_aaaaa")

	t.Run("no change while fresh", func(t *testing.T) {
		settled := f.engine.Sweep(ctx)
		assert.False(t, settled)
		assert.Equal(t, enums.OrderStatusProcessing, f.engine.Orders(ctx)[0].Status)
	})

	t.Run("advances and persists the derived status", func(t *testing.T) {
		f.clock.Advance(72 * time.Hour)
		settled := f.engine.Sweep(ctx)
		assert.False(t, settled)

		persisted, err := f.repo.Load(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Len(t, persisted, 1)
		assert.Equal(t, enums.OrderStatusShipped, persisted[0].Status)
	})

	t.Run("settles once delivered", func(t *testing.T) {
		f.clock.Advance(10 * 24 * time.Hour)
		settled := f.engine.Sweep(ctx)
		assert.True(t, settled)

		persisted, err := f.repo.Load(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusDelivered, persisted[0].Status)
	})
}

func TestEngine_OrdersDerivesAtReadTime(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, time.Hour)
	f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	f.placeOrder(t, "order_1_aaaaa")

	f.clock.Advance(30 * 24 * time.Hour)
	list := f.engine.Orders(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, enums.OrderStatusDelivered, list[0].Status)
}

func TestEngine_OrderByID(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, time.Hour)
	f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	f.placeOrder(t, "order_1_aaaaa")

	order, err := f.engine.OrderByID(ctx, "order_1_aaaaa")
	require.NoError(t, err)
	assert.Equal(t, "order_1_aaaaa", order.ID)

	_, err = f.engine.OrderByID(ctx, "order_9_zzzzz")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestEngine_IdentitySwap(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, time.Hour)

	alice := &identity.Identity{ID: "alice@example.com", Name: "Alice"}
	bob := &identity.Identity{ID: "bob@example.com", Name: "Bob"}

	f.provider.Set(alice)
	f.placeOrder(t, "order_1_aaaaa")

	t.Run("switching accounts swaps the history", func(t *testing.T) {
		f.provider.Set(bob)
		assert.Empty(t, f.engine.Orders(ctx))
	})

	t.Run("logout clears the working set", func(t *testing.T) {
		f.provider.Set(nil)
		assert.Empty(t, f.engine.Orders(ctx))
	})

	t.Run("logging back in restores the history", func(t *testing.T) {
		f.provider.Set(alice)
		list := f.engine.Orders(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, "order_1_aaaaa", list[0].ID)
	})
}

func TestEngine_StartStop(t *testing.T) {
	ctx := context.Background()

	t.Run("start is a no-op with a settled history", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)
		f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})

		f.engine.Start()
		assert.False(t, f.engine.Running())
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		f := newEngineFixture(t, time.Hour)
		f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
		f.placeOrder(t, "order_1_aaaaa")

		f.engine.Stop()
		f.engine.Stop()
		assert.False(t, f.engine.Running())
	})

	t.Run("loop parks itself once everything is delivered", func(t *testing.T) {
		f := newEngineFixture(t, 5*time.Millisecond)
		f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
		f.placeOrder(t, "order_1_aaaaa")
		require.True(t, f.engine.Running())

		f.clock.Advance(30 * 24 * time.Hour)
		assert.Eventually(t, func() bool {
			return !f.engine.Running()
		}, 2*time.Second, 5*time.Millisecond)

		persisted, err := f.repo.Load(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusDelivered, persisted[0].Status)
	})
}

func TestEngine_Subscribe(t *testing.T) {
	f := newEngineFixture(t, time.Hour)
	f.provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})

	var mu sync.Mutex
	var last []Order
	unsubscribe := f.engine.Subscribe(func(list []Order) {
		mu.Lock()
		defer mu.Unlock()
		last = list
	})
	defer unsubscribe()

	f.placeOrder(t, "order_1_aaaaa")

	mu.Lock()
	require.Len(t, last, 1)
	assert.Equal(t, "order_1_aaaaa", last[0].ID)
	mu.Unlock()
}
