package ocsort

// Detection is one per-frame observation from the upstream detector:
// a bounding box, a class label, and a confidence score in [0,1].
// Immutable within a frame; borrowed by Tracker.Update for the
// duration of one call only.
type Detection struct {
	BBox    BoundingBox
	ClassID uint32
	Score   float64
}

// TrackOut is the read-only, emitted view of a live track: its id,
// current bounding box (projected from filter state), and class.
type TrackOut struct {
	ID      TrackID
	BBox    BoundingBox
	ClassID uint32
}
