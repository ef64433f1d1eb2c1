package ocsort

// observation is a single entry of a track's observation ring: the
// local frame ordinal it was recorded at, and the box observed then.
type observation struct {
	timeStep int
	bbox     BoundingBox
}

// observationRing is a bounded FIFO of the most recent observations
// for one track, capacity fixed at construction (delta_t, per
// spec.md §3/§9). It is never empty once seeded at track birth.
type observationRing struct {
	capacity int
	entries  []observation
}

func newObservationRing(capacity int, seed observation) observationRing {
	entries := make([]observation, 0, capacity)
	entries = append(entries, seed)
	return observationRing{capacity: capacity, entries: entries}
}

// push appends a new observation, dropping the oldest if the ring is
// already at capacity.
func (r *observationRing) push(o observation) {
	r.entries = append(r.entries, o)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[1:]
	}
}

// back returns the most recently pushed observation.
func (r *observationRing) back() observation {
	return r.entries[len(r.entries)-1]
}

// closestTo returns the entry whose timeStep minimizes the absolute
// distance to target, ties broken by the earlier (lower index, i.e.
// older) entry.
func (r *observationRing) closestTo(target int) observation {
	best := r.entries[0]
	bestDiff := absInt(best.timeStep - target)
	for _, e := range r.entries[1:] {
		diff := absInt(e.timeStep - target)
		if diff < bestDiff {
			best = e
			bestDiff = diff
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
