package ocsort

import "sync/atomic"

// TrackID is a track's unique identifier. Ids are handed out by an
// IDAllocator and never reused within its lifetime.
type TrackID uint64

// IDAllocator is a monotonically increasing, thread-safe track id
// source (spec.md §4.5). The zero value is ready to use and starts at
// id 0.
//
// A process normally shares one IDAllocator across every Tracker
// instance (ids are process-wide per spec.md §5), but per design
// notes §9 tests that need isolated id spaces should construct their
// own via NewIDAllocator and inject it through Config.
type IDAllocator struct {
	next atomic.Uint64
}

// NewIDAllocator returns a fresh allocator starting at id 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next atomically returns the next unused id.
func (a *IDAllocator) Next() TrackID {
	return TrackID(a.next.Add(1) - 1)
}

// defaultIDAllocator backs Tracker instances created without an
// explicit Config.IDAllocator, so independent Tracker instances still
// share one process-wide id space per spec.md §5.
var defaultIDAllocator = NewIDAllocator()
