package chain

import (
	"context"
	"sync"
	"time"

	"github.com/keysmith/keysmith/internal/metrics"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// DefaultDeriveTimeout bounds a single module derivation during fan-out.
// Derivations are pure CPU and finish in microseconds; the timeout exists so
// a misbehaving module cannot stall wallet creation.
const DefaultDeriveTimeout = 5 * time.Second

// DeriveFailure records one chain's failure during a fan-out derivation.
type DeriveFailure struct {
	// ChainID is the chain that failed.
	ChainID ID `json:"chain_id"`

	// Err is the typed failure cause.
	Err error `json:"-"`

	// Message is the failure cause as text, for serialized output.
	Message string `json:"error"`
}

// Registry holds the registered chain modules. Modules register once at
// startup; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[ID]Module
	order   []ID
	timeout time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[ID]Module),
		timeout: DefaultDeriveTimeout,
	}
}

// SetDeriveTimeout overrides the per-module fan-out timeout.
func (r *Registry) SetDeriveTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.timeout = d
	}
}

// Register adds a chain module. Duplicate IDs are rejected so one chain can
// never be served by two competing implementations.
func (r *Registry) Register(m Module) error {
	if m == nil {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "nil chain module",
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	if _, exists := r.modules[id]; exists {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "chain already registered",
			"chain":  id.String(),
		})
	}

	r.modules[id] = m
	r.order = append(r.order, id)
	return nil
}

// Get returns the module for a chain ID.
func (r *Registry) Get(id ID) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[id]
	if !ok {
		return nil, kserr.WithDetails(kserr.ErrUnsupportedChain, map[string]string{
			"chain": id.String(),
		})
	}
	return m, nil
}

// IsSupported reports whether a module is registered for the chain.
func (r *Registry) IsSupported(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[id]
	return ok
}

// IDs returns the registered chain IDs in registration order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, len(r.order))
	copy(ids, r.order)
	return ids
}

// All returns the registered modules in registration order.
func (r *Registry) All() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.order))
	for _, id := range r.order {
		modules = append(modules, r.modules[id])
	}
	return modules
}

// ByFamily returns the registered modules deriving on the given family, in
// registration order.
func (r *Registry) ByFamily(family Family) []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var modules []Module
	for _, id := range r.order {
		if m := r.modules[id]; m.Family() == family {
			modules = append(modules, m)
		}
	}
	return modules
}

// ValidateAddress checks an address against the chain's format rules.
func (r *Registry) ValidateAddress(id ID, address string) (bool, error) {
	m, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return m.ValidateAddress(address), nil
}

// DeriveAddresses derives the index-0 address for each requested chain
// concurrently. One chain failing never aborts the others: failures are
// collected per chain and returned alongside the successes. Results keep the
// request order. An unsupported chain appears as a failure entry, not an
// error.
func (r *Registry) DeriveAddresses(ctx context.Context, seed []byte, chainIDs []ID, account uint32) ([]Address, []DeriveFailure) {
	r.mu.RLock()
	timeout := r.timeout
	r.mu.RUnlock()

	type slot struct {
		addr *Address
		err  error
	}
	slots := make([]slot, len(chainIDs))

	var wg sync.WaitGroup
	for i, id := range chainIDs {
		m, err := r.Get(id)
		if err != nil {
			slots[i].err = err
			continue
		}

		wg.Add(1)
		go func(i int, m Module) {
			defer wg.Done()
			start := time.Now()
			slots[i].addr, slots[i].err = deriveWithTimeout(ctx, m, seed, account, timeout)
			metrics.Global.RecordDerivation(string(m.Family()), time.Since(start), slots[i].err)
		}(i, m)
	}
	wg.Wait()

	addresses := make([]Address, 0, len(chainIDs))
	var failures []DeriveFailure
	for i, id := range chainIDs {
		if slots[i].err != nil {
			failures = append(failures, DeriveFailure{
				ChainID: id,
				Err:     slots[i].err,
				Message: slots[i].err.Error(),
			})
			continue
		}
		addresses = append(addresses, *slots[i].addr)
	}
	return addresses, failures
}

// deriveWithTimeout runs one module derivation bounded by the registry
// timeout and the caller's context. The worker goroutine writes to a
// buffered channel so it can finish even after the deadline fires.
func deriveWithTimeout(ctx context.Context, m Module, seed []byte, account uint32, timeout time.Duration) (*Address, error) {
	type result struct {
		addr *Address
		err  error
	}
	done := make(chan result, 1)

	go func() {
		addr, err := m.DeriveAddress(seed, account, 0)
		done <- result{addr: addr, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.addr, res.err
	case <-ctx.Done():
		return nil, kserr.Wrap(ctx.Err(), "deriving %s address", m.ID())
	case <-timer.C:
		return nil, kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
			"chain":  m.ID().String(),
			"reason": "derivation timed out",
		})
	}
}
