package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/logger"
	"github.com/commercezen/engine/pkg/metrics"
)

// Subscriber receives the order snapshot after every committed change.
type Subscriber func(list []Order)

// EngineParams groups dependencies for the order engine.
type EngineParams struct {
	Provider *identity.Provider
	Repo     *Repo
	Policy   DeliveryPolicy
	Interval time.Duration
	Metrics  *metrics.DeliveryMetrics
	Logger   *logger.Logger
	// Now is the clock used to derive statuses. Defaults to time.Now.
	Now func() time.Time
}

// Engine owns the order history working set for the active identity and
// keeps derived delivery statuses fresh. While any order is still in flight
// a background sweeper re-evaluates every Interval and merge-writes the
// records it changed; the sweeper parks itself once the whole history is
// terminal and wakes again when a new order arrives.
type Engine struct {
	provider    *identity.Provider
	repo        *Repo
	policy      DeliveryPolicy
	interval    time.Duration
	metrics     *metrics.DeliveryMetrics
	logg        *logger.Logger
	now         func() time.Time
	unsubscribe func()

	mu      sync.Mutex
	scope   string
	working []Order
	dirty   map[string]bool
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	subscribers map[int]Subscriber
	nextSub     int
}

// NewEngine builds the engine, loads the active identity's history, and
// binds to identity changes. Call Close to detach and stop the sweeper.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("order repo required")
	}
	if params.Interval <= 0 {
		return nil, fmt.Errorf("re-evaluation interval must be positive, got %v", params.Interval)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		provider:    params.Provider,
		repo:        params.Repo,
		policy:      params.Policy,
		interval:    params.Interval,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         now,
		dirty:       make(map[string]bool),
		subscribers: make(map[int]Subscriber),
	}

	scope := ""
	if current, ok := params.Provider.Current(); ok {
		scope = current.ID
	}
	e.swapScope(context.Background(), scope)

	e.unsubscribe = params.Provider.Subscribe(func(current *identity.Identity) {
		next := ""
		if current != nil {
			next = current.ID
		}
		e.swapScope(context.Background(), next)
	})
	return e, nil
}

// Close detaches from identity changes and stops the sweeper.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.Stop()
}

// Add records a freshly placed order for the active identity and persists it
// immediately. The sweeper wakes so the new order's status tracks the clock.
func (e *Engine) Add(ctx context.Context, order Order) error {
	e.mu.Lock()
	if e.scope == "" {
		e.mu.Unlock()
		return errors.New(errors.CodeLoginRequired, "log in to place an order")
	}
	if order.UserID != e.scope {
		e.mu.Unlock()
		return errors.New(errors.CodeStateConflict, "order does not belong to the active account")
	}

	e.working = append([]Order{order}, e.working...)
	e.dirty[order.ID] = true
	scope := e.scope
	working := e.snapshotLocked()
	dirty := e.dirtyLocked()
	e.startLocked()
	e.mu.Unlock()

	if err := e.repo.Merge(ctx, scope, working, dirty); err != nil {
		// Keep the order dirty so the next sweep retries the write.
		if e.metrics != nil {
			e.metrics.IncMergeFailure()
		}
		if e.logg != nil {
			e.logg.Error(e.logg.WithIdentity(ctx, scope), "failed to persist new order, sweep will retry", err)
		}
	} else {
		e.clearDirty(scope, dirty)
	}

	e.notify(working)
	return nil
}

// Orders returns the active identity's history, newest first, with statuses
// derived against the current clock. Changes surfaced by the read are
// persisted by the next sweep.
func (e *Engine) Orders(ctx context.Context) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deriveLocked()
	if len(e.dirty) > 0 {
		e.startLocked()
	}
	return e.snapshotLocked()
}

// OrderByID returns one order from the active identity's history.
func (e *Engine) OrderByID(ctx context.Context, orderID string) (*Order, error) {
	for _, order := range e.Orders(ctx) {
		if order.ID == orderID {
			return &order, nil
		}
	}
	return nil, errors.New(errors.CodeNotFound, "order not found")
}

// Start launches the background sweeper. Starting a running engine, or one
// whose history is already fully delivered, is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked()
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
// Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()
	e.wg.Wait()
}

// Running reports whether the sweeper loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Sweep runs one re-evaluation pass: derive every order's status and
// merge-write the ones that changed. It reports whether the engine has
// nothing left to watch. The background loop calls this on every tick;
// callers can also invoke it directly to force a pass.
func (e *Engine) Sweep(ctx context.Context) bool {
	start := e.now()

	e.mu.Lock()
	scope := e.scope
	if scope == "" {
		e.mu.Unlock()
		return true
	}
	changed := e.deriveLocked()
	working := e.snapshotLocked()
	dirty := e.dirtyLocked()
	e.mu.Unlock()

	outcome := "clean"
	if len(dirty) > 0 {
		if err := e.repo.Merge(ctx, scope, working, dirty); err != nil {
			outcome = "error"
			if e.metrics != nil {
				e.metrics.IncMergeFailure()
			}
			if e.logg != nil {
				e.logg.Error(e.logg.WithIdentity(ctx, scope), "order sweep merge failed", err)
			}
		} else {
			outcome = "dirty"
			e.clearDirty(scope, dirty)
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveSweep(outcome, e.now().Sub(start))
	}

	if changed {
		e.notify(working)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settledLocked()
}

// Subscribe registers a listener and returns its unsubscribe function.
func (e *Engine) Subscribe(subscriber Subscriber) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = subscriber
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

func (e *Engine) startLocked() {
	if e.running || e.settledLocked() {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.loop(e.stopCh)
}

func (e *Engine) loop(stop chan struct{}) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if settled := e.Sweep(context.Background()); settled {
				e.mu.Lock()
				if e.stopCh == stop && e.running {
					e.running = false
				}
				e.mu.Unlock()
				return
			}
		}
	}
}

// swapScope flushes pending writes for the outgoing identity, then installs
// the incoming identity's persisted history. Histories of different
// identities never mix.
func (e *Engine) swapScope(ctx context.Context, scope string) {
	e.mu.Lock()
	if e.scope == scope {
		e.mu.Unlock()
		return
	}
	previous := e.scope
	pendingWorking := e.snapshotLocked()
	pendingDirty := e.dirtyLocked()
	e.mu.Unlock()

	if previous != "" && len(pendingDirty) > 0 {
		if err := e.repo.Merge(ctx, previous, pendingWorking, pendingDirty); err != nil {
			if e.metrics != nil {
				e.metrics.IncMergeFailure()
			}
			if e.logg != nil {
				e.logg.Error(e.logg.WithIdentity(ctx, previous), "failed to flush orders on identity change", err)
			}
		}
	}

	var loaded []Order
	if scope != "" {
		var err error
		loaded, err = e.repo.Load(ctx, scope)
		if err != nil {
			if e.logg != nil {
				e.logg.Error(e.logg.WithIdentity(ctx, scope), "order history load failed, starting empty", err)
			}
			loaded = nil
		}
	}

	e.mu.Lock()
	e.scope = scope
	e.working = loaded
	e.dirty = make(map[string]bool)
	snapshot := e.snapshotLocked()
	e.startLocked()
	e.mu.Unlock()

	e.notify(snapshot)
}

// deriveLocked recomputes every status and marks changed records dirty. It
// reports whether anything changed.
func (e *Engine) deriveLocked() bool {
	now := e.now()
	changed := false
	for i := range e.working {
		next := e.policy.DeriveStatus(e.working[i], now)
		if next == e.working[i].Status {
			continue
		}
		e.working[i].Status = next
		e.dirty[e.working[i].ID] = true
		changed = true
		if e.metrics != nil {
			e.metrics.IncTransition(string(next))
		}
	}
	return changed
}

// settledLocked reports whether there is nothing left to sweep: every order
// terminal and no writes pending.
func (e *Engine) settledLocked() bool {
	if len(e.dirty) > 0 {
		return false
	}
	for _, order := range e.working {
		if !order.Terminal() {
			return false
		}
	}
	return true
}

// clearDirty drops the given ids from the dirty set unless the scope moved
// on or new dirt landed on them meanwhile.
func (e *Engine) clearDirty(scope string, flushed map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scope != scope {
		return
	}
	for id := range flushed {
		delete(e.dirty, id)
	}
}

func (e *Engine) snapshotLocked() []Order {
	snapshot := make([]Order, len(e.working))
	copy(snapshot, e.working)
	return snapshot
}

func (e *Engine) dirtyLocked() map[string]bool {
	dirty := make(map[string]bool, len(e.dirty))
	for id := range e.dirty {
		dirty[id] = true
	}
	return dirty
}

func (e *Engine) notify(snapshot []Order) {
	e.mu.Lock()
	subscribers := make([]Subscriber, 0, len(e.subscribers))
	for _, subscriber := range e.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	e.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(snapshot)
	}
}
