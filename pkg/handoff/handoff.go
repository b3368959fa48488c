package handoff

import (
	"context"
	"sync"

	"github.com/cuemby/halti-agent/pkg/types"
)

// Slot is a one-element, latest-wins handoff. The zero value is not
// usable; construct one with New. A Slot has exactly one producer and
// exactly one consumer by contract; it does not enforce that, just as
// a channel wouldn't.
type Slot struct {
	mu     sync.Mutex
	val    *types.DesiredSnapshot
	signal chan struct{}
}

// New returns an empty Slot.
func New() *Slot {
	return &Slot{signal: make(chan struct{}, 1)}
}

// Offer fills the slot with snapshot. If the slot already held an
// un-taken snapshot, it is discarded and replaced; Offer reports
// whether a discard happened so the caller can account for it (e.g. a
// dropped-snapshot metric). Offer never blocks.
func (s *Slot) Offer(snapshot types.DesiredSnapshot) (displaced bool) {
	s.mu.Lock()
	displaced = s.val != nil
	s.val = &snapshot
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
	return displaced
}

// Take blocks until a snapshot is available or ctx is done, then
// empties the slot. The reconciler worker calls this once per
// reconciliation pass.
func (s *Slot) Take(ctx context.Context) (types.DesiredSnapshot, error) {
	for {
		select {
		case <-s.signal:
			s.mu.Lock()
			v := s.val
			s.val = nil
			s.mu.Unlock()
			if v != nil {
				return *v, nil
			}
			// The signal outlived its value: an earlier Take already
			// claimed the snapshot an Offer stored before that Offer
			// sent its signal, or another consumer took it. Wait for
			// the next one.
		case <-ctx.Done():
			return types.DesiredSnapshot{}, ctx.Err()
		}
	}
}
