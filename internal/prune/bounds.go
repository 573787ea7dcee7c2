// Package prune implements the triangle-inequality pruning engine: the hot
// path that decides, for each candidate cluster, whether it can be ruled
// out without an exact distance call.
package prune

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measurement is one already-measured exact distance from the current
// frame to a live anchor, keyed by cluster id.
type Measurement struct {
	ClusterID int
	Dist      float64
}

// DCCLookup resolves the cached exact anchor-to-anchor distance between two
// cluster ids, mirroring registry.DCC.Get without importing registry (the
// pruning engine only ever needs read access to a handful of cells).
type DCCLookup func(i, j int) (dist float64, ok bool)

// ThreePoint computes the tightest 3-point triangle-inequality lower bound
// on d(F, candidate) from every already-measured anchor k:
// L(i) >= max_k |d_F(k) - D_cc[k][i]|. Returns ok=false if no measured
// anchor has a known DCC entry against the candidate (bound undefined, not
// merely zero).
func ThreePoint(candidate int, measured []Measurement, dcc DCCLookup) (bound float64, ok bool) {
	for _, m := range measured {
		d, known := dcc(m.ClusterID, candidate)
		if !known {
			continue
		}
		b := math.Abs(m.Dist - d)
		if !ok || b > bound {
			bound = b
			ok = true
		}
	}
	return bound, ok
}

// FourPoint embeds the current frame F in R^2 using two measured anchors k
// and m whose mutual DCC distance is known, then bounds d(F, candidate) by
// the distance from F's planar coordinate to the point candidate would
// occupy at the intersection of the circles of radius D_cc[k][candidate]
// and D_cc[m][candidate] around k and m respectively. Returns ok=false if
// the embedding is degenerate (k, m coincident) or any required distance is
// unknown.
func FourPoint(candidate int, k, m Measurement, dcc DCCLookup) (bound float64, ok bool) {
	dKM, known := dcc(k.ClusterID, m.ClusterID)
	if !known || dKM <= 0 {
		return 0, false
	}
	dKC, known := dcc(k.ClusterID, candidate)
	if !known {
		return 0, false
	}
	dMC, known := dcc(m.ClusterID, candidate)
	if !known {
		return 0, false
	}

	// Place k at the origin and m at (dKM, 0). Solve for F's planar
	// coordinates (x, y) given its measured distances to k and m:
	//   x^2 + y^2            = dFK^2
	//   (x - dKM)^2 + y^2     = dFM^2
	fx, fy, ok := planarCoords(k.Dist, m.Dist, dKM)
	if !ok {
		return 0, false
	}

	// candidate's own planar coordinate relative to the same basis, solved
	// the same way from its DCC distances to k and m. Two roots exist
	// (±y); the true anchor could lie on either side of the k-m axis (or
	// off the plane entirely), so only the smaller of the two distances is
	// a valid lower bound.
	cx, cyPos, ok := planarCoords(dKC, dMC, dKM)
	if !ok {
		return 0, false
	}
	cyNeg := -cyPos

	b1 := math.Hypot(fx-cx, fy-cyPos)
	b2 := math.Hypot(fx-cx, fy-cyNeg)
	return math.Min(b1, b2), true
}

// planarCoords solves for the point at distance da from the origin and db
// from (baseline, 0), returning the positive-y root.
func planarCoords(da, db, baseline float64) (x, y float64, ok bool) {
	if baseline == 0 {
		return 0, 0, false
	}
	x = (da*da - db*db + baseline*baseline) / (2 * baseline)
	ySq := da*da - x*x
	if ySq < 0 {
		if ySq < -1e-6 {
			return 0, 0, false
		}
		ySq = 0
	}
	return x, math.Sqrt(ySq), true
}

// FivePoint extends FourPoint to R^3 using three measured anchors k, m, n
// with fully known pairwise DCC distances, solving the resulting dense
// linear system with gonum/mat rather than the closed-form substitution
// FourPoint uses directly — effective on high-dimensional vectors where the
// 3-point bound is loose because it only constrains a single scalar
// projection.
func FivePoint(candidate int, k, m, n Measurement, dcc DCCLookup) (bound float64, ok bool) {
	dKM, ok1 := dcc(k.ClusterID, m.ClusterID)
	dKN, ok2 := dcc(k.ClusterID, n.ClusterID)
	dMN, ok3 := dcc(m.ClusterID, n.ClusterID)
	if !ok1 || !ok2 || !ok3 || dKM <= 0 {
		return 0, false
	}
	dKC, ok4 := dcc(k.ClusterID, candidate)
	dMC, ok5 := dcc(m.ClusterID, candidate)
	dNC, ok6 := dcc(n.ClusterID, candidate)
	if !ok4 || !ok5 || !ok6 {
		return 0, false
	}

	basis, ok := buildBasis(dKM, dKN, dMN)
	if !ok {
		return 0, false
	}

	fPos, fNeg, ok := embed3D(basis, k.Dist, m.Dist, n.Dist)
	if !ok {
		return 0, false
	}
	cPos, cNeg, ok := embed3D(basis, dKC, dMC, dNC)
	if !ok {
		return 0, false
	}

	candidates := []float64{
		dist3(fPos, cPos), dist3(fPos, cNeg),
		dist3(fNeg, cPos), dist3(fNeg, cNeg),
	}
	bound = candidates[0]
	for _, c := range candidates[1:] {
		if c < bound {
			bound = c
		}
	}
	return bound, true
}

// basis3D places k at the origin, m on the x-axis and n in the xy-plane.
type basis3D struct {
	mx float64 // m = (mx, 0, 0)
	nx, ny float64 // n = (nx, ny, 0)
}

func buildBasis(dKM, dKN, dMN float64) (basis3D, bool) {
	if dKM == 0 {
		return basis3D{}, false
	}
	nx := (dKN*dKN - dMN*dMN + dKM*dKM) / (2 * dKM)
	ny2 := dKN*dKN - nx*nx
	if ny2 < 0 {
		if ny2 < -1e-6 {
			return basis3D{}, false
		}
		ny2 = 0
	}
	return basis3D{mx: dKM, nx: nx, ny: math.Sqrt(ny2)}, true
}

// embed3D solves for the point at distances (dk, dm, dn) from (k, m, n)
// respectively, using the linear system obtained by subtracting the origin
// equation from the other two (gonum/mat solves the resulting 2x2 system
// for x, y; z follows from the original sphere equation, with two signed
// roots).
func embed3D(b basis3D, dk, dm, dn float64) (pos, neg [3]float64, ok bool) {
	if b.ny == 0 {
		return pos, neg, false
	}
	// x^2+y^2+z^2 = dk^2
	// (x-mx)^2+y^2+z^2 = dm^2  => -2*mx*x + mx^2 = dm^2-dk^2
	// (x-nx)^2+(y-ny)^2+z^2 = dn^2
	A := mat.NewDense(2, 2, []float64{
		2 * b.mx, 0,
		2 * b.nx, 2 * b.ny,
	})
	rhs := mat.NewVecDense(2, []float64{
		dk*dk - dm*dm + b.mx*b.mx,
		dk*dk - dn*dn + b.nx*b.nx + b.ny*b.ny,
	})
	var xy mat.VecDense
	if err := xy.SolveVec(A, rhs); err != nil {
		return pos, neg, false
	}
	x, y := xy.AtVec(0), xy.AtVec(1)
	zSq := dk*dk - x*x - y*y
	if zSq < 0 {
		if zSq < -1e-6 {
			return pos, neg, false
		}
		zSq = 0
	}
	z := math.Sqrt(zSq)
	return [3]float64{x, y, z}, [3]float64{x, y, -z}, true
}

func dist3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
