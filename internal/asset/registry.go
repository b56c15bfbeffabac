package asset

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe in-memory index of every asset that has been
// registered via RegisterAsset, kept alongside — never instead of — the
// authoritative Property row stored on the issuer's own account. It lets
// the API layer answer "is this asset registered, and at what fee"
// without loading the issuer's full account; ProcessOrder validation
// reads the issuer's account instead.
type Registry struct {
	mu     sync.RWMutex
	assets map[Key]Property
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{assets: make(map[Key]Property)}
}

// Register adds key with the given property. Returns an error if key is
// already registered; callers update an existing entry with SetFeePercent.
func (r *Registry) Register(key Key, prop Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.assets[key]; exists {
		return fmt.Errorf("asset %+v already registered", key)
	}
	r.assets[key] = prop
	return nil
}

// Get returns the registered property for key, if any.
func (r *Registry) Get(key Key) (Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.assets[key]
	return p, ok
}

// SetFeePercent updates the fee percentage of an already-registered asset.
func (r *Registry) SetFeePercent(key Key, feePercent uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.assets[key]
	if !exists {
		return fmt.Errorf("asset %+v not registered", key)
	}
	p.FeePercent = feePercent
	r.assets[key] = p
	return nil
}

// SetIssuedAmount updates the cached issued-amount counter after a mint or
// burn, keeping the registry's view in sync with the issuer's account row.
func (r *Registry) SetIssuedAmount(key Key, issued int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.assets[key]; ok {
		p.IssuedAmount = issued
		r.assets[key] = p
	}
}

// List returns every registered asset key, in no particular order.
func (r *Registry) List() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.assets))
	for k := range r.assets {
		keys = append(keys, k)
	}
	return keys
}

// Exists reports whether key has been registered.
func (r *Registry) Exists(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.assets[key]
	return ok
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}
