package ocsort

import (
	"math"
	"testing"
)

func closeBox(t *testing.T, got, want BoundingBox, tol float64) {
	t.Helper()
	if math.Abs(got.X1-want.X1) > tol || math.Abs(got.Y1-want.Y1) > tol ||
		math.Abs(got.X2-want.X2) > tol || math.Abs(got.Y2-want.Y2) > tol {
		t.Errorf("bbox = %+v, want ~%+v (tol %v)", got, want, tol)
	}
}

// S1 — single detection birth and persistence.
func TestScenarioSingleDetectionBirth(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	out, err := tr.Update([]Detection{{BBox: NewBoundingBox(1, 1, 2, 2), ClassID: 1, Score: 0.9}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 track, got %d", len(out))
	}
	if out[0].ClassID != 1 {
		t.Errorf("class = %d, want 1", out[0].ClassID)
	}
	closeBox(t, out[0].BBox, NewBoundingBox(1, 1, 2, 2), 1e-6)
}

// S2 — re-association after a gap.
func TestScenarioReassociationAfterGap(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	out1, err := tr.Update([]Detection{{BBox: NewBoundingBox(0, 0, 1, 1), ClassID: 1, Score: 0.7}})
	if err != nil {
		t.Fatalf("frame 1 failed: %v", err)
	}
	if len(out1) != 1 {
		t.Fatalf("frame 1: expected 1 track, got %d", len(out1))
	}
	originalID := out1[0].ID

	if _, err := tr.Update([]Detection{{BBox: NewBoundingBox(0.5, 0, 1.5, 1), ClassID: 1, Score: 0.6}}); err != nil {
		t.Fatalf("frame 2 failed: %v", err)
	}

	if _, err := tr.Update(nil); err != nil {
		t.Fatalf("frame 3 failed: %v", err)
	}

	out4, err := tr.Update([]Detection{{BBox: NewBoundingBox(1.5, 0, 2.5, 1), ClassID: 1, Score: 0.8}})
	if err != nil {
		t.Fatalf("frame 4 failed: %v", err)
	}
	if len(out4) != 1 {
		t.Fatalf("frame 4: expected exactly 1 track, got %d", len(out4))
	}
	if out4[0].ID != originalID {
		t.Errorf("frame 4: id = %v, want original id %v", out4[0].ID, originalID)
	}
	if out4[0].ClassID != 1 {
		t.Errorf("frame 4: class = %d, want 1", out4[0].ClassID)
	}
	closeBox(t, out4[0].BBox, NewBoundingBox(1.5, 0, 2.5, 1), 0.1)
}

// S3 — simultaneous tracks, no identity swap.
func TestScenarioSimultaneousTracksNoIdentitySwap(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	motorcycle := []BoundingBox{
		NewBoundingBox(187, 324, 303, 422),
		NewBoundingBox(183, 321, 302, 426),
		NewBoundingBox(180, 324, 303, 429),
		NewBoundingBox(179, 324, 303, 433),
		NewBoundingBox(168, 327, 305, 438),
	}
	person := []BoundingBox{
		NewBoundingBox(213, 280, 266, 402),
		NewBoundingBox(211, 278, 265, 403),
		NewBoundingBox(211, 278, 269, 406),
		NewBoundingBox(210, 276, 268, 405),
		NewBoundingBox(206, 277, 269, 408),
	}

	var motoID TrackID
	for i := range motorcycle {
		out, err := tr.Update([]Detection{
			{BBox: motorcycle[i], ClassID: 3, Score: 0.9},
			{BBox: person[i], ClassID: 0, Score: 0.8},
		})
		if err != nil {
			t.Fatalf("frame %d failed: %v", i, err)
		}
		if len(out) != 2 {
			t.Fatalf("frame %d: expected 2 tracks, got %d", i, len(out))
		}
		var moto, pers *TrackOut
		for k := range out {
			o := &out[k]
			switch o.ClassID {
			case 3:
				moto = o
			case 0:
				pers = o
			}
		}
		if moto == nil || pers == nil {
			t.Fatalf("frame %d: missing a class among outputs: %+v", i, out)
		}
		if i == 0 {
			motoID = moto.ID
		} else if moto.ID != motoID {
			t.Errorf("frame %d: motorcycle id changed from %v to %v", i, motoID, moto.ID)
		}

		motoCenterX, motoCenterY := motorcycle[i].Center()
		persCenterX, persCenterY := person[i].Center()
		gotCenterX, gotCenterY := moto.BBox.Center()
		distToMoto := math.Hypot(gotCenterX-motoCenterX, gotCenterY-motoCenterY)
		distToPerson := math.Hypot(gotCenterX-persCenterX, gotCenterY-persCenterY)
		if distToMoto >= distToPerson {
			t.Errorf("frame %d: motorcycle track closer to person than motorcycle sequence", i)
		}
	}
}

// S4 — low-score BYTE rescue.
func TestScenarioByteRescue(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	box := NewBoundingBox(10, 10, 20, 20)
	out1, err := tr.Update([]Detection{{BBox: box, ClassID: 0, Score: 0.9}})
	if err != nil {
		t.Fatalf("frame 1 failed: %v", err)
	}
	if len(out1) != 1 {
		t.Fatalf("frame 1: expected 1 track, got %d", len(out1))
	}
	originalID := out1[0].ID

	overlapping := NewBoundingBox(10.5, 10.5, 20.5, 20.5)
	out2, err := tr.Update([]Detection{{BBox: overlapping, ClassID: 0, Score: 0.3}})
	if err != nil {
		t.Fatalf("frame 2 failed: %v", err)
	}
	if len(out2) != 1 {
		t.Fatalf("frame 2: expected the same single track to survive, got %d", len(out2))
	}
	if out2[0].ID != originalID {
		t.Errorf("frame 2: expected same id %v, got %v (a new track was created instead of a BYTE rescue)", originalID, out2[0].ID)
	}
	if tr.tracks[0].timeSinceUpdate != 0 {
		t.Errorf("frame 2: timeSinceUpdate = %d, want 0 (track should have been updated by the low-score detection)", tr.tracks[0].timeSinceUpdate)
	}
}

// S5 — class mismatch blocks association.
func TestScenarioClassMismatchBlocksAssociation(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	box := NewBoundingBox(0, 0, 10, 10)
	out1, err := tr.Update([]Detection{{BBox: box, ClassID: 1, Score: 0.9}})
	if err != nil {
		t.Fatalf("frame 1 failed: %v", err)
	}
	originalID := out1[0].ID

	out2, err := tr.Update([]Detection{{BBox: box, ClassID: 2, Score: 0.9}})
	if err != nil {
		t.Fatalf("frame 2 failed: %v", err)
	}
	if len(tr.tracks) != 2 {
		t.Fatalf("expected 2 live tracks after frame 2 (original aged + new class-2 track), got %d", len(tr.tracks))
	}

	var originalTrack, newTrack *Track
	for _, track := range tr.tracks {
		if track.id == originalID {
			originalTrack = track
		} else {
			newTrack = track
		}
	}
	if originalTrack == nil || newTrack == nil {
		t.Fatalf("could not find both tracks")
	}
	if originalTrack.timeSinceUpdate != 1 {
		t.Errorf("original track timeSinceUpdate = %d, want 1", originalTrack.timeSinceUpdate)
	}
	if newTrack.classID != 2 {
		t.Errorf("new track class = %d, want 2", newTrack.classID)
	}

	foundNewInOutput := false
	for _, o := range out2 {
		if o.ClassID == 2 {
			foundNewInOutput = true
		}
		if o.ID == originalID {
			t.Errorf("original track should not appear in output frame 2 (time_since_update=1)")
		}
	}
	if !foundNewInOutput {
		t.Errorf("expected new class-2 track in frame 2 output")
	}
}

// S6 — death by aging.
func TestScenarioDeathByAging(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 2, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	out1, err := tr.Update([]Detection{{BBox: NewBoundingBox(0, 0, 10, 10), ClassID: 0, Score: 0.9}})
	if err != nil {
		t.Fatalf("frame 1 failed: %v", err)
	}
	if len(out1) != 1 {
		t.Fatalf("frame 1: expected 1 track, got %d", len(out1))
	}

	for frame := 2; frame <= 5; frame++ {
		out, err := tr.Update(nil)
		if err != nil {
			t.Fatalf("frame %d failed: %v", frame, err)
		}
		if len(out) != 0 {
			t.Errorf("frame %d: expected no tracks in output, got %d", frame, len(out))
		}
	}
	if len(tr.tracks) != 0 {
		t.Errorf("expected track to be destroyed by frame 5, but %d still live", len(tr.tracks))
	}
}

func TestTrackIDsAreMonotonicAndUnique(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})

	seen := make(map[TrackID]bool)
	var lastMax TrackID
	for i := 0; i < 5; i++ {
		out, err := tr.Update([]Detection{
			{BBox: NewBoundingBox(float64(i)*100, 0, float64(i)*100+10, 10), ClassID: 0, Score: 0.9},
		})
		if err != nil {
			t.Fatalf("frame %d failed: %v", i, err)
		}
		frameIDs := make(map[TrackID]bool)
		for _, o := range out {
			// Re-seeing an id across frames (same track) is allowed; two
			// tracks sharing an id within one frame is not.
			if frameIDs[o.ID] {
				t.Errorf("frame %d: duplicate id %v in output", i, o.ID)
			}
			frameIDs[o.ID] = true
			if !seen[o.ID] && len(seen) > 0 && o.ID <= lastMax {
				t.Errorf("frame %d: new id %v does not exceed previous max %v", i, o.ID, lastMax)
			}
			seen[o.ID] = true
			if o.ID > lastMax {
				lastMax = o.ID
			}
		}
	}
	// Each frame's detection is far from every existing track, so every
	// frame births a new track.
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct ids, got %d", len(seen))
	}
}

func TestGetTrackersDoesNotMutate(t *testing.T) {
	tr := NewTracker(Config{MaxAge: 5, IoUThreshold: 0.3, DeltaT: 3, ScoreThreshold: 0.5, MinHitStreak: 1, IDAllocator: NewIDAllocator()})
	if _, err := tr.Update([]Detection{{BBox: NewBoundingBox(0, 0, 1, 1), ClassID: 0, Score: 0.9}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	before := tr.GetTrackers()
	after := tr.GetTrackers()
	if len(before) != len(after) {
		t.Fatalf("GetTrackers mutated track count: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("GetTrackers not idempotent at %d: %+v vs %+v", i, before[i], after[i])
		}
	}
}
