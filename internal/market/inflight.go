package market

import (
	"sync"

	"github.com/flowponder/ponderd/internal/domain"
)

type inflightKey struct {
	actor  domain.Address
	ponder domain.PonderID
}

// inflightRegistry serializes mutating operations: at most one pending
// transaction per (user, ponder) pair. Creations use ponder 0, so a user also
// has at most one creation in flight.
type inflightRegistry struct {
	mu      sync.Mutex
	pending map[inflightKey]struct{}
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{pending: make(map[inflightKey]struct{})}
}

// begin claims the slot for (actor, ponder). The returned release func is
// idempotent and must be called once the operation settles, success or not.
func (r *inflightRegistry) begin(actor domain.Address, ponder domain.PonderID) (func(), error) {
	key := inflightKey{actor: actor, ponder: ponder}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.pending[key]; busy {
		return nil, &domain.ConcurrentOperationError{PonderID: ponder}
	}
	r.pending[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.pending, key)
			r.mu.Unlock()
		})
	}
	return release, nil
}
