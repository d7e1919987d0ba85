package identity

import "sync"

// Identity describes the active shopper account.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Listener receives the new identity on login and nil on logout. Listeners
// are how the wishlist and order engines learn to swap their working sets.
type Listener func(current *Identity)

// Provider tracks the active identity and fans out change notifications.
// There is exactly one active identity per engine session; switching accounts
// is a full context swap for every scoped manager, never a merge.
type Provider struct {
	mu        sync.Mutex
	current   *Identity
	listeners map[int]Listener
	nextID    int
}

// NewProvider starts with no active identity.
func NewProvider() *Provider {
	return &Provider{listeners: make(map[int]Listener)}
}

// Current returns the active identity, or false when nobody is logged in.
func (p *Provider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

// Set installs the identity (nil for logout) and notifies listeners.
// Re-setting the same identity is a no-op so managers do not reload
// needlessly.
func (p *Provider) Set(identity *Identity) {
	p.mu.Lock()
	if sameIdentity(p.current, identity) {
		p.mu.Unlock()
		return
	}
	if identity == nil {
		p.current = nil
	} else {
		copied := *identity
		p.current = &copied
	}
	notify := make([]Listener, 0, len(p.listeners))
	for _, listener := range p.listeners {
		notify = append(notify, listener)
	}
	current := p.current
	p.mu.Unlock()

	for _, listener := range notify {
		listener(current)
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (p *Provider) Subscribe(listener Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
