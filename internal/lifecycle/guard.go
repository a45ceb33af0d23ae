package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

// parcelGuard enforces single-flight semantics per parcel: at most one
// in-flight quote, purchase, refresh, or mutation at a time. Sibling
// parcels of the same order never block each other; there is no global
// lock across orders.
type parcelGuard struct {
	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

func newParcelGuard() *parcelGuard {
	return &parcelGuard{busy: make(map[uuid.UUID]struct{})}
}

// acquire marks the parcel busy. A second acquire while busy is rejected
// with ErrParcelBusy rather than queued, so a quote cache can never be
// overwritten mid-purchase and a purchase can never be issued twice.
func (g *parcelGuard) acquire(id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, inFlight := g.busy[id]; inFlight {
		return ErrParcelBusy
	}
	g.busy[id] = struct{}{}
	return nil
}

func (g *parcelGuard) release(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, id)
}
