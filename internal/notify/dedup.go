package notify

import "sync"

// Deduplicator is the process-local half of notification deduplication. The
// durable half is the notified column; this set only guards against
// overlapping poll cycles racing each other before the column update commits.
// The claim path must never consult it.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

// NewDeduplicator constructs an empty deduplication set.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[int64]struct{})}
}

// TryClaim atomically records the order id, returning true only for the first
// caller. Subsequent callers must not enqueue the order.
func (d *Deduplicator) TryClaim(orderID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[orderID]; ok {
		return false
	}
	d.seen[orderID] = struct{}{}
	return true
}

// Release rolls back a claim whose durable markNotified step failed, so a
// later poll cycle can retry. Without this the order would be dropped forever.
func (d *Deduplicator) Release(orderID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, orderID)
}

// Len reports the number of tracked order ids.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
