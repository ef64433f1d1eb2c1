package ocsort

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// kalmanFilter is the constant-velocity linear Gauss-Markov filter
// over the 7-dim state [cx, cy, s, r, cx', cy', s'] described in
// spec.md §4.2: center, area, aspect ratio, and the time derivatives
// of all but the aspect ratio (which has none).
//
// The transition/noise/measurement matrices are fixed for every
// instance, so they are built once and shared read-only.
type kalmanFilter struct {
	x *mat.VecDense // 7x1 state
	p *mat.Dense    // 7x7 covariance
}

const (
	stateDim       = 7
	observationDim = 4
)

var (
	kalmanF *mat.Dense // 7x7 transition
	kalmanQ *mat.Dense // 7x7 process noise
	kalmanH *mat.Dense // 4x7 measurement
	kalmanR *mat.Dense // 4x4 measurement noise
	kalmanI *mat.Dense // 7x7 identity
)

func init() {
	f := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		f.Set(i, i, 1)
	}
	f.Set(0, 4, 1)
	f.Set(1, 5, 1)
	f.Set(2, 6, 1)
	kalmanF = f

	q := mat.NewDense(stateDim, stateDim, nil)
	qDiag := [stateDim]float64{1, 1, 1, 1, 0.01, 0.01, 0.0001}
	for i, v := range qDiag {
		q.Set(i, i, v)
	}
	kalmanQ = q

	h := mat.NewDense(observationDim, stateDim, nil)
	for i := 0; i < observationDim; i++ {
		h.Set(i, i, 1)
	}
	kalmanH = h

	r := mat.NewDense(observationDim, observationDim, nil)
	rDiag := [observationDim]float64{1, 1, 10, 10}
	for i, v := range rDiag {
		r.Set(i, i, v)
	}
	kalmanR = r

	ident := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		ident.Set(i, i, 1)
	}
	kalmanI = ident
}

// newKalmanFilter initializes a filter with the birth observation in
// the first four state slots and zero velocities, and the fixed
// initial covariance diag(10,10,10,10,10000,10000,10000) from spec.md.
func newKalmanFilter(observation [4]float64) *kalmanFilter {
	x := mat.NewVecDense(stateDim, nil)
	for i, v := range observation {
		x.SetVec(i, v)
	}

	p := mat.NewDense(stateDim, stateDim, nil)
	pDiag := [stateDim]float64{10, 10, 10, 10, 10000, 10000, 10000}
	for i, v := range pDiag {
		p.Set(i, i, v)
	}

	return &kalmanFilter{x: x, p: p}
}

// state returns the current state vector as a plain slice.
func (kf *kalmanFilter) state() []float64 {
	out := make([]float64, stateDim)
	for i := range out {
		out[i] = kf.x.AtVec(i)
	}
	return out
}

// predict advances the filter one step: x <- F.x, P <- F.P.F' + Q.
func (kf *kalmanFilter) predict() {
	var xNext mat.VecDense
	xNext.MulVec(kalmanF, kf.x)
	kf.x = &xNext

	var fp mat.Dense
	fp.Mul(kalmanF, kf.p)
	var fpft mat.Dense
	fpft.Mul(&fp, kalmanF.T())
	var pNext mat.Dense
	pNext.Add(&fpft, kalmanQ)
	kf.p = &pNext
}

// update performs the measurement-update step given a 4-dim
// observation [cx, cy, s, r].
func (kf *kalmanFilter) update(z [4]float64) error {
	zVec := mat.NewVecDense(observationDim, z[:])

	var hx mat.VecDense
	hx.MulVec(kalmanH, kf.x)
	var y mat.VecDense
	y.SubVec(zVec, &hx)

	var hp mat.Dense
	hp.Mul(kalmanH, kf.p)
	var hpht mat.Dense
	hpht.Mul(&hp, kalmanH.T())
	var s mat.Dense
	s.Add(&hpht, kalmanR)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return errors.Wrap(err, "kalman: innovation covariance is not invertible")
	}

	var pht mat.Dense
	pht.Mul(kf.p, kalmanH.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var ky mat.VecDense
	ky.MulVec(&k, &y)
	var xNext mat.VecDense
	xNext.AddVec(kf.x, &ky)
	kf.x = &xNext

	var kh mat.Dense
	kh.Mul(&k, kalmanH)
	var ikh mat.Dense
	ikh.Sub(kalmanI, &kh)
	var pNext mat.Dense
	pNext.Mul(&ikh, kf.p)
	kf.p = &pNext

	return nil
}
