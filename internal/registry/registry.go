// Package registry keeps the append-only, concurrency-safe ledger of
// every command a simulated session received, keyed by device index,
// together with the assertion helpers tests use to interrogate it.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"hapticrig/simulator/internal/message"
)

// ErrNoDeviceIndex signals a recording attempt for a command variant
// that carries no owning device, which is a caller contract violation.
var ErrNoDeviceIndex = errors.New("command does not carry a device index")

// Recorded is one received command frozen at its arrival instant.
type Recorded struct {
	Message message.ClientMessage
	Time    time.Time
}

// bucket owns the ordered sequence for a single device so appends and
// snapshots on distinct devices never contend.
type bucket struct {
	mu    sync.Mutex
	calls []Recorded
}

// Registry maps device indices to their recorded command sequences.
// The outer map is read-mostly; each device appends under its own lock.
type Registry struct {
	mu      sync.RWMutex
	buckets map[uint32]*bucket
	now     func() time.Time
}

// New constructs an empty registry. A nil clock defaults to time.Now.
func New(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		buckets: make(map[uint32]*bucket),
		now:     clock,
	}
}

// Record appends the command to its device's sequence, stamped with the
// arrival instant. Commands without a device index are rejected.
func (r *Registry) Record(msg message.ClientMessage) error {
	index, ok := msg.Device()
	if !ok {
		return ErrNoDeviceIndex
	}
	entry := Recorded{Message: msg, Time: r.now()}

	b := r.bucketFor(index)
	b.mu.Lock()
	b.calls = append(b.calls, entry)
	b.mu.Unlock()
	return nil
}

// bucketFor returns the device's bucket, creating it on first record.
func (r *Registry) bucketFor(index uint32) *bucket {
	r.mu.RLock()
	b, ok := r.buckets[index]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[index]; ok {
		return b
	}
	b = &bucket{}
	r.buckets[index] = b
	return b
}

// Calls returns a snapshot copy of the device's recorded sequence in
// receipt order. An unknown device yields an empty slice, never an
// error, and later recordings never mutate a returned snapshot.
func (r *Registry) Calls(index uint32) []Recorded {
	r.mu.RLock()
	b, ok := r.buckets[index]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.calls...)
}

// Unused reports whether no command was ever recorded for the device.
func (r *Registry) Unused(index uint32) bool {
	return len(r.Calls(index)) == 0
}

// Devices lists every index with at least one record, ascending.
func (r *Registry) Devices() []uint32 {
	r.mu.RLock()
	indices := make([]uint32, 0, len(r.buckets))
	for index, b := range r.buckets {
		b.mu.Lock()
		count := len(b.calls)
		b.mu.Unlock()
		if count > 0 {
			indices = append(indices, index)
		}
	}
	r.mu.RUnlock()

	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}
