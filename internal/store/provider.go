package store

import (
	"context"
	"sync"
)

// Provider lazily opens a single Store on first use. Concurrent first callers
// all receive the same instance. A failed open is not cached, so the next Get
// tries again.
type Provider struct {
	opts   Options
	mu     sync.Mutex
	store  *Store
	closed bool
}

// NewProvider creates a provider that opens the store with opts on first Get
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts}
}

// Get returns the shared store, opening it if no earlier call succeeded
func (p *Provider) Get(ctx context.Context) (*Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrNotOpen
	}
	if p.store != nil {
		return p.store, nil
	}

	s, err := Open(ctx, p.opts)
	if err != nil {
		return nil, err
	}
	p.store = s
	return s, nil
}

// Close closes the store if it was opened. Later calls to Get fail with ErrNotOpen.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}
