package logging

import (
	"net/netip"
	"sync"
)

// TallySnapshot is the state of the connection counters right after one
// connection was observed.
type TallySnapshot struct {
	Unique uint64
	Total  uint64
	// Repeat is set when the connection came from the same address as the
	// connection immediately before it.
	Repeat bool
}

// Tally counts connections process-wide. It is the only state shared
// between connections; a single mutex guards it.
type Tally struct {
	mu      sync.Mutex
	unique  uint64
	total   uint64
	lastIP  netip.Addr
	started bool
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{}
}

// Observe records a connection from ip and returns the updated counters.
// An invalid (zero) ip stands for an anonymous client and is compared like
// any other address.
func (t *Tally) Observe(ip netip.Addr) TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	repeat := t.started && t.lastIP == ip
	t.total++
	if !repeat {
		t.unique++
	}
	t.lastIP = ip
	t.started = true

	return TallySnapshot{Unique: t.unique, Total: t.total, Repeat: repeat}
}

// Snapshot returns the current counters without recording a connection.
func (t *Tally) Snapshot() (unique, total uint64, lastIP netip.Addr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unique, t.total, t.lastIP
}
