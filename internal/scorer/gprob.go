package scorer

import "math"

// GeometricParams bundles the inputs the gprob boost needs for one
// candidate pair (i, j) where j has already been measured this frame.
type GeometricParams struct {
	Radius       float64 // R
	FMatchA      float64 // fmatcha, reward at Δ=0
	FMatchB      float64 // fmatchb, reward at Δ=2R
	DistToJ      float64 // d(F, anchor_j), already measured
	VisitorDistJ float64 // v's own measured distance to anchor_j, from its Measurements map
}

// RewardFactor computes the linear interpolation f(Δ) = a - (a-b)*Δ/(2R)
// from SPEC_FULL §4.2 step 3. Δ is clamped to [0, 2R] so a visitor whose
// recorded measurement is stale relative to the current radius never yields
// a reward outside [b, a].
func RewardFactor(p GeometricParams) float64 {
	if p.Radius <= 0 {
		return p.FMatchB
	}
	delta := math.Abs(p.DistToJ - p.VisitorDistJ)
	twoR := 2 * p.Radius
	if delta > twoR {
		delta = twoR
	}
	return p.FMatchA - (p.FMatchA-p.FMatchB)*delta/twoR
}

// VisitorMeasurement is the minimal view of a cluster's visitor ring entry
// the boost needs: its own per-cluster exact-distance measurements from the
// frame that created it (registry.Visitor.Measurements, widened here to
// avoid an import cycle).
type VisitorMeasurement struct {
	Measurements map[int]float64
}

// Boost scans candidate i's visitor ring for visitors that also measured
// distance to some other cluster j the current frame has itself already
// measured, and returns the mean reward factor across all such
// (visitor, j) pairs. A candidate with no qualifying visitor evidence gets
// a zero boost (no change to its mixed-probability score).
func Boost(radius, fmatcha, fmatchb float64, visitors []VisitorMeasurement, measuredThisFrame map[int]float64) float64 {
	if len(visitors) == 0 || len(measuredThisFrame) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, v := range visitors {
		for j, distToJ := range measuredThisFrame {
			visitorDistJ, ok := v.Measurements[j]
			if !ok {
				continue
			}
			sum += RewardFactor(GeometricParams{
				Radius:       radius,
				FMatchA:      fmatcha,
				FMatchB:      fmatchb,
				DistToJ:      distToJ,
				VisitorDistJ: visitorDistJ,
			})
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
