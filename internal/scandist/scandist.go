// Package scandist implements the scan-distance pre-pass: a read-ahead over
// the frame source that estimates a sensible admission radius from the
// empirical distribution of inter-frame distances, before clustering
// begins.
package scandist

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/anchorcluster/anchorcluster/internal/metric"
)

// Percentiles holds the five summary points SPEC_FULL §4.8 requires.
type Percentiles struct {
	Min    float64
	P20    float64
	Median float64
	P80    float64
	Max    float64
}

// FrameReader is the minimal slice of a frame source the scan needs: the
// next dense vector, or io.EOF when the stream ends.
type FrameReader interface {
	NextVector(ctx context.Context) ([]float64, error)
}

// Scan reads up to maxPairs consecutive-frame distances from r and returns
// their percentile distribution. It stops early at the first read error,
// io.EOF or otherwise; fewer than maxPairs observed pairs is not an error,
// and a scan that observed no pair returns zero Percentiles.
func Scan(ctx context.Context, r FrameReader, maxPairs int) (Percentiles, error) {
	dists, err := collect(ctx, r, maxPairs)
	if err != nil {
		return Percentiles{}, err
	}
	return percentilesOf(dists), nil
}

func collect(ctx context.Context, r FrameReader, maxPairs int) ([]float64, error) {
	dists := make([]float64, 0, maxPairs)
	prev, err := r.NextVector(ctx)
	if err != nil {
		return dists, nil // empty source yields an empty, valid scan
	}
	for len(dists) < maxPairs {
		cur, err := r.NextVector(ctx)
		if err != nil {
			break
		}
		d, err := metric.Euclidean(prev, cur)
		if err != nil {
			return nil, err
		}
		dists = append(dists, d)
		prev = cur
	}
	return dists, nil
}

// percentilesOf computes {min, 20%, median, 80%, max} over the empirical
// distribution via gonum/stat.Quantile, which requires its input sorted
// ascending.
func percentilesOf(dists []float64) Percentiles {
	if len(dists) == 0 {
		return Percentiles{}
	}
	sorted := append([]float64(nil), dists...)
	sort.Float64s(sorted)

	q := func(p float64) float64 { return stat.Quantile(p, stat.Empirical, sorted, nil) }
	return Percentiles{
		Min:    sorted[0],
		P20:    q(0.20),
		Median: q(0.50),
		P80:    q(0.80),
		Max:    sorted[len(sorted)-1],
	}
}

// AutoRadius applies the auto-R scaling factor K to the pre-pass median, per
// SPEC_FULL §4.6 step 1 and the `a<K>` configuration syntax.
func AutoRadius(p Percentiles, k float64) float64 {
	return k * p.Median
}
