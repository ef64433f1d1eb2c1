package ocsort

import "github.com/pkg/errors"

// Config holds the five tunables of spec.md §6's constructor contract.
// It is passed as a single struct rather than five positional
// same-typed numbers: a bare
// NewTracker(5, 0.3, 3, 0.5, 1) call site is exactly the kind of thing
// that is easy to get wrong by transposition, the same trap the
// teacher's own NewByteTracker(maxDisappeared, minIoU, highThresh,
// lowThresh, algorithm) falls into.
type Config struct {
	// MaxAge is the number of frames of tolerated misses before a
	// track is destroyed. Non-negative.
	MaxAge int
	// IoUThreshold gates primary/byte/recovery matches; 0.3 is a
	// reasonable default.
	IoUThreshold float64
	// DeltaT is the observation ring capacity and momentum lag, in
	// frames. Typically 3.
	DeltaT int
	// ScoreThreshold partitions detections into high/low score for
	// the BYTE stage.
	ScoreThreshold float64
	// MinHitStreak is the minimum consecutive-hit count before a
	// track is surfaced from GetTrackers/Update.
	MinHitStreak int
	// IDAllocator is optional; nil uses the shared process-wide
	// allocator. Tests that need an isolated id space should inject
	// their own (design notes §9).
	IDAllocator *IDAllocator
}

// DefaultConfig returns commonly-used OC-SORT/BYTE defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:         30,
		IoUThreshold:   0.3,
		DeltaT:         3,
		ScoreThreshold: 0.6,
		MinHitStreak:   3,
	}
}

// Tracker is the per-instance orchestrator of spec.md §4.4. It owns
// its vector of live tracks outright; Update is its only mutating
// entry point and must not be called re-entrantly on the same
// instance (spec.md §5).
type Tracker struct {
	cfg     Config
	tracks  []*Track
	idAlloc *IDAllocator
}

// NewTracker constructs a Tracker with the given configuration.
func NewTracker(cfg Config) *Tracker {
	alloc := cfg.IDAllocator
	if alloc == nil {
		alloc = defaultIDAllocator
	}
	return &Tracker{cfg: cfg, idAlloc: alloc}
}

// Update runs the fixed per-frame cascade of spec.md §4.4: predict all
// tracks, cull the stale ones, split detections by score, associate
// in three stages (primary, BYTE, recovery), update matched tracks,
// birth new ones from what's left unmatched, and return the gated
// output projection.
func (tr *Tracker) Update(detections []Detection) ([]TrackOut, error) {
	for _, t := range tr.tracks {
		t.Predict()
	}
	tr.cullStale()

	if len(tr.tracks) == 0 {
		for _, d := range detections {
			if d.Score >= tr.cfg.ScoreThreshold {
				tr.birth(d)
			}
		}
		return tr.GetTrackers(), nil
	}

	if len(detections) == 0 {
		return tr.GetTrackers(), nil
	}

	var highIdx, lowIdx []int
	for i, d := range detections {
		if d.Score >= tr.cfg.ScoreThreshold {
			highIdx = append(highIdx, i)
		} else {
			lowIdx = append(lowIdx, i)
		}
	}

	highDets := subsetDetections(detections, highIdx)
	primaryMatched, primaryUnmatchedDetLocal, unmatchedTrackIdx := associatePrimary(highDets, tr.tracks, tr.cfg.IoUThreshold)

	type pair struct{ detIdx, trackIdx int }
	var matches []pair
	for _, m := range primaryMatched {
		matches = append(matches, pair{detIdx: highIdx[m[0]], trackIdx: m[1]})
	}
	var unmatchedHighIdx []int
	for _, local := range primaryUnmatchedDetLocal {
		unmatchedHighIdx = append(unmatchedHighIdx, highIdx[local])
	}

	lowDets := subsetDetections(detections, lowIdx)
	byteTracks := subsetTracks(tr.tracks, unmatchedTrackIdx)
	byteMatched, _, byteUnmatchedTrackLocal := associateByte(lowDets, byteTracks, tr.cfg.IoUThreshold)
	for _, m := range byteMatched {
		matches = append(matches, pair{detIdx: lowIdx[m[0]], trackIdx: unmatchedTrackIdx[m[1]]})
	}
	var unmatchedTrackIdx2 []int
	for _, local := range byteUnmatchedTrackLocal {
		unmatchedTrackIdx2 = append(unmatchedTrackIdx2, unmatchedTrackIdx[local])
	}

	remainingHighDets := subsetDetections(detections, unmatchedHighIdx)
	recoveryTracks := subsetTracks(tr.tracks, unmatchedTrackIdx2)
	recoveryMatched, recoveryUnmatchedDetLocal, _ := associateRecovery(remainingHighDets, recoveryTracks, tr.cfg.IoUThreshold)
	for _, m := range recoveryMatched {
		matches = append(matches, pair{detIdx: unmatchedHighIdx[m[0]], trackIdx: unmatchedTrackIdx2[m[1]]})
	}
	var finalUnmatchedHighIdx []int
	for _, local := range recoveryUnmatchedDetLocal {
		finalUnmatchedHighIdx = append(finalUnmatchedHighIdx, unmatchedHighIdx[local])
	}

	for _, p := range matches {
		if err := tr.tracks[p.trackIdx].Update(detections[p.detIdx].BBox); err != nil {
			return nil, errors.Wrapf(err, "updating track %d with detection %d", tr.tracks[p.trackIdx].id, p.detIdx)
		}
	}

	for _, idx := range finalUnmatchedHighIdx {
		tr.birth(detections[idx])
	}

	return tr.GetTrackers(), nil
}

// GetTrackers is a pure projection of the current live tracks passing
// the output gate (time_since_update < 1 AND hit_streak >=
// min_hit_streak); it does not mutate state. Order follows internal
// track order (insertion order of still-live tracks).
func (tr *Tracker) GetTrackers() []TrackOut {
	out := make([]TrackOut, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.timeSinceUpdate < 1 && t.hitStreak >= tr.cfg.MinHitStreak {
			out = append(out, t.Snapshot())
		}
	}
	return out
}

func (tr *Tracker) birth(d Detection) {
	t := newTrack(tr.idAlloc.Next(), d.BBox, d.ClassID, tr.cfg.DeltaT)
	tr.tracks = append(tr.tracks, t)
}

func (tr *Tracker) cullStale() {
	live := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.timeSinceUpdate <= tr.cfg.MaxAge {
			live = append(live, t)
		}
	}
	tr.tracks = live
}

func subsetDetections(all []Detection, idx []int) []Detection {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Detection, len(idx))
	for k, i := range idx {
		out[k] = all[i]
	}
	return out
}

func subsetTracks(all []*Track, idx []int) []*Track {
	if len(idx) == 0 {
		return nil
	}
	out := make([]*Track, len(idx))
	for k, i := range idx {
		out[k] = all[i]
	}
	return out
}
