package ocsort

import "github.com/pkg/errors"

// Track is the internal per-object tracking state of spec.md §3: an
// id/class tag, a 7-dim Kalman filter over [cx,cy,s,r,cx',cy',s'], a
// bounded ring of recent observations (capacity deltaT) used for the
// momentum lag, the track's current motion-direction unit vector, and
// the age/hitStreak/timeSinceUpdate lifecycle counters.
type Track struct {
	id      TrackID
	classID uint32
	kf      *kalmanFilter
	ring    observationRing
	deltaT  int

	speedDirX, speedDirY float64
	age                  int
	hitStreak            int
	timeSinceUpdate      int
}

// newTrack creates a track from an unmatched high-score detection:
// age=0, hitStreak=1, timeSinceUpdate=0, speedDirection=0, ring
// seeded with the single birth observation. Argument order fixes the
// "Track-creation constructor argument order" open question from
// spec.md §9: id, measurement, class tag, structural parameter.
func newTrack(id TrackID, box BoundingBox, classID uint32, deltaT int) *Track {
	obs := box.ToObservation()
	return &Track{
		id:              id,
		classID:         classID,
		kf:              newKalmanFilter(obs),
		ring:            newObservationRing(deltaT, observation{timeStep: 0, bbox: box}),
		deltaT:          deltaT,
		age:             0,
		hitStreak:       1,
		timeSinceUpdate: 0,
	}
}

// Predict advances the Kalman filter one step and ages the track. If
// the track was already missing an association coming into this call
// (timeSinceUpdate>0 before the increment below), its hit streak is
// cleared — so one isolated miss is tolerated but a second
// consecutive one is not (spec.md §9 open question, resolved in
// SPEC_FULL.md §1).
func (t *Track) Predict() BoundingBox {
	t.kf.predict()
	t.age++
	if t.timeSinceUpdate > 0 {
		t.hitStreak = 0
	}
	t.timeSinceUpdate++
	return t.CurrentBBox()
}

// Update feeds a newly associated detection box into the track: it
// recomputes the motion-direction vector, re-anchors the Kalman
// filter across any missed frames via interpolated sub-updates, and
// records the new observation.
func (t *Track) Update(box BoundingBox) error {
	lastObs := t.ring.closestTo(t.age - t.deltaT)
	dx, dy := box.SpeedDirection(lastObs.bbox)
	t.speedDirX, t.speedDirY = dx, dy

	back := t.ring.back()
	steps := t.age - back.timeStep
	if steps < 1 {
		steps = 1
	}

	fromObs := back.bbox.ToObservation()
	toObs := box.ToObservation()
	for step := 1; step <= steps; step++ {
		frac := float64(step) / float64(steps)
		var interp [4]float64
		for i := range interp {
			interp[i] = fromObs[i] + frac*(toObs[i]-fromObs[i])
		}
		if err := t.kf.update(interp); err != nil {
			return errors.Wrapf(err, "track %d: sub-update %d/%d failed", t.id, step, steps)
		}
		if step < steps {
			t.kf.predict()
		}
	}

	t.ring.push(observation{timeStep: t.age, bbox: box})
	t.timeSinceUpdate = 0
	t.hitStreak++
	return nil
}

// LastObservation returns the most recently recorded observation box.
func (t *Track) LastObservation() BoundingBox {
	return t.ring.back().bbox
}

// ObservationDtStepsAway returns the ring entry closest to
// age-deltaT, used by the momentum cost term of primary association.
func (t *Track) ObservationDtStepsAway() BoundingBox {
	return t.ring.closestTo(t.age - t.deltaT).bbox
}

// CurrentBBox projects the box implied by the current filter state.
func (t *Track) CurrentBBox() BoundingBox {
	return FromState(t.kf.state())
}

// SpeedDirection returns the track's current motion-direction unit
// vector (zero if undetermined).
func (t *Track) SpeedDirection() (dx, dy float64) {
	return t.speedDirX, t.speedDirY
}

// Snapshot produces a read-only projection of the track for output.
func (t *Track) Snapshot() TrackOut {
	return TrackOut{ID: t.id, BBox: t.CurrentBBox(), ClassID: t.classID}
}
