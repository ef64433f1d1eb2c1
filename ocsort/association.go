package ocsort

import (
	"math"

	hungarian "github.com/arthurkushman/go-hungarian"
)

// costScale is the integer discretization factor from spec.md §4.3:
// IoU (and every other cost term) is scaled by 10^4 and rounded so the
// assignment problem is solved over an integer-equivalent weight
// matrix.
const costScale = 10000.0

// classMismatchCost is the hard penalty added whenever a candidate
// pair's classes differ — large enough to always outweigh any
// possible IoU reward.
const classMismatchCost = 100.0 * costScale

// momentumWeight scales the alignment/opposition term so that perfect
// alignment (theta=0) contributes -0.2*costScale and opposition
// (theta=pi) contributes 0.
const momentumWeight = 0.2 * costScale

// associate builds the cost matrix for one association-cascade stage
// and solves it, gating the solver's raw assignment by IoU threshold
// and class compatibility (spec.md §4.3). dets/tracks are the
// stage-local candidate subsets; trackBoxes supplies, per track, the
// box to score IoU against (predicted box for primary/byte,
// last-observed box for recovery). includeMomentum enables the
// momentum cost term (primary mode only).
//
// Returned indices are local to the dets/tracks slices passed in; the
// caller is responsible for mapping them back to original detection/
// track indices.
func associate(dets []Detection, tracks []*Track, trackBoxes []BoundingBox, iouThreshold float64, includeMomentum bool) (matched [][2]int, unmatchedDets, unmatchedTracks []int) {
	m := len(dets)
	n := len(tracks)
	if m == 0 || n == 0 {
		return nil, sequence(m), sequence(n)
	}

	iou := make([][]float64, m)
	cost := make([][]float64, m)
	for i, d := range dets {
		iou[i] = make([]float64, n)
		cost[i] = make([]float64, n)
		for j := range tracks {
			iouVal := d.BBox.IoU(trackBoxes[j])
			iou[i][j] = iouVal

			c := -math.Round(iouVal * costScale)
			if d.ClassID != tracks[j].classID {
				c += classMismatchCost
			}
			if includeMomentum {
				c += momentumCost(d, tracks[j])
			}
			cost[i][j] = c
		}
	}

	rawMatches := solveAssignment(cost)

	matchedDet := make(map[int]bool, len(rawMatches))
	matchedTrk := make(map[int]bool, len(rawMatches))
	for _, pair := range rawMatches {
		i, j := pair[0], pair[1]
		invalidIoU := iou[i][j] < iouThreshold
		invalidClass := dets[i].ClassID != tracks[j].classID
		if invalidIoU || invalidClass {
			continue
		}
		matched = append(matched, [2]int{i, j})
		matchedDet[i] = true
		matchedTrk[j] = true
	}

	for i := 0; i < m; i++ {
		if !matchedDet[i] {
			unmatchedDets = append(unmatchedDets, i)
		}
	}
	for j := 0; j < n; j++ {
		if !matchedTrk[j] {
			unmatchedTracks = append(unmatchedTracks, j)
		}
	}
	return matched, unmatchedDets, unmatchedTracks
}

// momentumCost computes the observation-centric inertia term: the
// angle between a track's recorded motion-direction vector and the
// direction from its delta_t-steps-ago observation to the candidate
// detection's box, clamped and rescaled so alignment rewards and
// opposition is neutral.
func momentumCost(d Detection, tr *Track) float64 {
	vx, vy := tr.SpeedDirection()
	ux, uy := d.BBox.SpeedDirection(tr.ObservationDtStepsAway())
	dot := clamp(vx*ux+vy*uy, -1, 1)
	theta := math.Acos(dot)
	return math.Round(((theta - math.Pi) / math.Pi) * momentumWeight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// solveAssignment runs the Hungarian algorithm over an m x n integer-
// valued cost matrix and returns the (row,col) pairs it assigns,
// minimizing total cost. go-hungarian only solves maximization over
// square matrices, so the matrix is negated (maximizing -cost is
// equivalent to minimizing cost) and padded to square with neutral
// (zero-cost) dummy rows/columns — mirroring the teacher's own
// padding strategy for the same library. Dummy assignments are
// dropped by the bounds check below.
func solveAssignment(cost [][]float64) [][2]int {
	m := len(cost)
	if m == 0 {
		return nil
	}
	n := len(cost[0])

	size := m
	if n > size {
		size = n
	}
	padded := make([][]float64, size)
	for i := 0; i < size; i++ {
		padded[i] = make([]float64, size)
		if i < m {
			for j := 0; j < n; j++ {
				padded[i][j] = -cost[i][j]
			}
		}
	}

	assignments := hungarian.SolveMax(padded)
	matches := make([][2]int, 0, m)
	for row, cols := range assignments {
		if row >= m {
			continue
		}
		for col := range cols {
			if col < n {
				matches = append(matches, [2]int{row, col})
			}
			break
		}
	}
	return matches
}

func sequence(n int) []int {
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// associatePrimary is the primary association stage: all high-score
// detections vs all live tracks, using IoU + momentum + class, scored
// against each track's predicted (current) box.
func associatePrimary(dets []Detection, tracks []*Track, iouThreshold float64) (matched [][2]int, unmatchedDets, unmatchedTracks []int) {
	return associate(dets, tracks, currentBoxes(tracks), iouThreshold, true)
}

// associateByte is the BYTE low-score stage: low-score detections vs
// tracks still unmatched after primary, using IoU + class only,
// scored against each track's predicted box.
func associateByte(dets []Detection, tracks []*Track, iouThreshold float64) (matched [][2]int, unmatchedDets, unmatchedTracks []int) {
	return associate(dets, tracks, currentBoxes(tracks), iouThreshold, false)
}

// associateRecovery is the observation-centric recovery stage:
// high-score detections still unmatched after primary vs tracks still
// unmatched after byte, using IoU + class only, scored against each
// track's last *observed* box rather than its prediction.
func associateRecovery(dets []Detection, tracks []*Track, iouThreshold float64) (matched [][2]int, unmatchedDets, unmatchedTracks []int) {
	return associate(dets, tracks, lastObservedBoxes(tracks), iouThreshold, false)
}

func currentBoxes(tracks []*Track) []BoundingBox {
	boxes := make([]BoundingBox, len(tracks))
	for j, tr := range tracks {
		boxes[j] = tr.CurrentBBox()
	}
	return boxes
}

func lastObservedBoxes(tracks []*Track) []BoundingBox {
	boxes := make([]BoundingBox, len(tracks))
	for j, tr := range tracks {
		boxes[j] = tr.LastObservation()
	}
	return boxes
}
