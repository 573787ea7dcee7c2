// Package scorer builds, for each incoming frame, a stably ordered list of
// cluster ids for the pruning engine to walk. It owns no state between
// frames: every input comes from a read-only view of the registry plus the
// in-progress measurements the pruning engine has accumulated for the
// current frame.
package scorer

import "sort"

// State records where a candidate stands in the current frame's pruning
// pass.
type State int

const (
	Unknown State = iota
	Pruned
	Measured
	Confirmed
)

// Candidate is one entry in the ordered list the pruning engine consumes.
// Score and State mutate as the pruning engine measures or prunes it;
// ClusterID is fixed once the candidate is built.
type Candidate struct {
	ClusterID int
	Score     float64
	State     State
	Predicted bool
}

// TransitionView is the read-only slice of registry state the scorer needs
// out of the transition matrix, supplied by the caller to avoid a direct
// registry import cycle between scorer and registry's own tests.
type TransitionView struct {
	Row map[uint32]uint64
	Sum uint64
}

// Params bundles the per-frame inputs that drive candidate ordering. LiveIDs
// must already be sorted ascending; Probability and IsDiscarded are
// callbacks rather than maps so the scorer never needs to
// copy registry state to build an ordering.
type Params struct {
	LiveIDs       []int
	Probability   func(id int) float64
	Transition    TransitionView
	HasPrev       bool
	TM            float64 // tm mixing coefficient, 0 disables the blend
	SequenceHist  []uint32
	PredictL      int // pred[l,...]: pattern length to match
	PredictH      int // pred[...,h,...]: lookback window
	PredictN      int // pred[...,...,n]: max boosted candidates
	PredictOn     bool
	IsDiscarded   func(id uint32) bool
}

// Order produces the initial candidate list for a frame: predicted
// candidates first (deduplicated, live, non-tombstoned), then every
// remaining live cluster scored by the mixed-probability rule and sorted
// score-descending, id-ascending on ties.
func Order(p Params) []Candidate {
	predicted := predictedCandidates(p)

	seen := make(map[int]struct{}, len(predicted))
	out := make([]Candidate, 0, len(p.LiveIDs))
	for _, id := range predicted {
		seen[id] = struct{}{}
		out = append(out, Candidate{ClusterID: id, Score: mixedScore(p, id), Predicted: true})
	}

	rest := make([]Candidate, 0, len(p.LiveIDs))
	for _, id := range p.LiveIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		rest = append(rest, Candidate{ClusterID: id, Score: mixedScore(p, id)})
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Score != rest[j].Score {
			return rest[i].Score > rest[j].Score
		}
		return rest[i].ClusterID < rest[j].ClusterID
	})

	return append(out, rest...)
}

// mixedScore blends the cluster's running assignment probability with the
// transition-matrix row for the previous frame's cluster, per SPEC_FULL
// §4.2 step 2. With tm == 0 or no previous assignment, the transition term
// vanishes and the score is pure P(i).
func mixedScore(p Params, id int) float64 {
	prob := p.Probability(id)
	if p.TM <= 0 || !p.HasPrev || p.Transition.Sum == 0 {
		return prob
	}
	tRatio := float64(p.Transition.Row[uint32(id)]) / float64(p.Transition.Sum)
	return (1-p.TM)*prob + p.TM*tRatio
}

// predictedCandidates implements the pattern-prediction booster: find the
// last PredictL ids of sequence history, search for that subsequence inside
// the preceding PredictH ids, and take the cluster id that followed each
// occurrence, most recent occurrence first, until PredictN distinct live
// ids have been collected. Tombstoned ids are skipped silently (the
// resolved Open Question in SPEC_FULL §9).
func predictedCandidates(p Params) []int {
	if !p.PredictOn || p.PredictL <= 0 || p.PredictN <= 0 {
		return nil
	}
	hist := p.SequenceHist
	if len(hist) < p.PredictL+1 {
		return nil
	}

	window := hist
	if p.PredictH > 0 && len(window) > p.PredictH {
		window = window[len(window)-p.PredictH:]
	}
	pattern := hist[len(hist)-p.PredictL:]

	out := make([]int, 0, p.PredictN)
	seen := make(map[int]struct{}, p.PredictN)
	live := make(map[int]struct{}, len(p.LiveIDs))
	for _, id := range p.LiveIDs {
		live[id] = struct{}{}
	}

	// Search occurrences of pattern inside window (excluding the trailing
	// occurrence that is the pattern itself), most recent first.
	for end := len(window) - p.PredictL - 1; end >= 0; end-- {
		if !equalTail(window[end:end+p.PredictL], pattern) {
			continue
		}
		next := window[end+p.PredictL]
		id := int(next)
		if _, ok := seen[id]; ok {
			continue
		}
		if p.IsDiscarded != nil && p.IsDiscarded(next) {
			continue
		}
		if _, ok := live[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) >= p.PredictN {
			break
		}
	}
	return out
}

func equalTail(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Resort re-sorts candidates still in the Unknown state by current score,
// leaving Pruned/Measured/Confirmed entries in place relative to each
// other — only the undecided tail of the list needs reordering as gprob
// evidence accumulates mid-frame. Stable, descending score, ascending id on
// ties, matching Order's tie-break rule.
func Resort(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.State != Unknown && cj.State == Unknown {
			return true
		}
		if ci.State == Unknown && cj.State != Unknown {
			return false
		}
		if ci.State != Unknown && cj.State != Unknown {
			return false
		}
		if ci.Score != cj.Score {
			return ci.Score > cj.Score
		}
		return ci.ClusterID < cj.ClusterID
	})
}
