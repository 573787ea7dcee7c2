// Package output writes the clustering run's result files: anchors, frame
// membership, the distance cache, the transition matrix, per-cluster
// counts, discarded-frame indices and the annotated clustered-frames dump.
// Every writer runs once, after the run loop has finished, matching
// SPEC_FULL.md's "output files are written after the clustering phase
// ends, not during" ordering guarantee.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/anchorcluster/anchorcluster/internal/registry"
)

// MembershipRecord is one frame's final assignment, as recorded by the run
// loop in strictly increasing frame-index order.
type MembershipRecord struct {
	FrameIndex uint64
	ClusterID  int
	Discarded  bool // true if ClusterID belonged to a cluster later discarded/merged away
}

func create(dir, name string) (*os.File, *bufio.Writer, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("output: creating %q: %w", name, err)
	}
	return f, bufio.NewWriter(f), nil
}

// WriteAnchors writes anchors.txt: one cluster's anchor vector per line,
// space-separated, in ascending id order, preceded by its id. Tombstoned
// clusters are included since their anchor is still meaningful history (a
// merge target or the birth anchor of a later-discarded cluster).
func WriteAnchors(dir string, reg *registry.Registry) error {
	f, w, err := create(dir, "anchors.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	for id := 0; id < reg.Count(); id++ {
		c := reg.Get(id)
		if c == nil {
			continue
		}
		fields := make([]string, 0, len(c.Anchor)+1)
		fields = append(fields, strconv.Itoa(id))
		for _, v := range c.Anchor {
			fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
	return w.Flush()
}

// WriteFrameMembership writes frame_membership.txt: "<frame_idx>
// <cluster_id>" per line, in the order records were recorded (which the
// run loop guarantees is frame-index order).
func WriteFrameMembership(dir string, records []MembershipRecord) error {
	f, w, err := create(dir, "frame_membership.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	for _, rec := range records {
		fmt.Fprintf(w, "%d %d\n", rec.FrameIndex, rec.ClusterID)
	}
	return w.Flush()
}

// WriteDCC writes dcc.txt: "<i> <j> <dist>" for every known pair with
// i <= j, including i == j (distance 0, an anchor to itself) for
// completeness with the original tool's dump.
func WriteDCC(dir string, reg *registry.Registry) error {
	f, w, err := create(dir, "dcc.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	for id := 0; id < reg.Count(); id++ {
		if c := reg.Get(id); c != nil {
			fmt.Fprintf(w, "%d %d %s\n", id, id, strconv.FormatFloat(0, 'g', -1, 64))
		}
	}
	for _, e := range reg.DCC().Entries() {
		fmt.Fprintf(w, "%d %d %s\n", e.I, e.J, strconv.FormatFloat(e.Dist, 'g', -1, 64))
	}
	return w.Flush()
}

// WriteTransitionMatrix writes transition_matrix.txt: "<prev> <curr>
// <count>" for every non-zero transition, sorted by prev then curr for
// determinism (the registry's internal maps have no stable order).
func WriteTransitionMatrix(dir string, reg *registry.Registry) error {
	f, w, err := create(dir, "transition_matrix.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	tm := reg.Transition()
	prevs := make([]int, 0, len(tm))
	for prev := range tm {
		prevs = append(prevs, int(prev))
	}
	sort.Ints(prevs)
	for _, prev := range prevs {
		row := tm[uint32(prev)]
		currs := make([]int, 0, len(row))
		for curr := range row {
			currs = append(currs, int(curr))
		}
		sort.Ints(currs)
		for _, curr := range currs {
			fmt.Fprintf(w, "%d %d %d\n", prev, curr, row[uint32(curr)])
		}
	}
	return w.Flush()
}

// WriteClusterCounts writes cluster_counts.txt: one "Cluster k: n frames"
// line per cluster id ever allocated, live or tombstoned, in ascending id
// order.
func WriteClusterCounts(dir string, reg *registry.Registry) error {
	f, w, err := create(dir, "cluster_counts.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	for id := 0; id < reg.Count(); id++ {
		c := reg.Get(id)
		if c == nil {
			continue
		}
		fmt.Fprintf(w, "Cluster %d: %d frames\n", id, c.Hits)
	}
	return w.Flush()
}

// WriteDiscardedFrames writes discarded_frames.txt: the frame index of
// every record whose cluster was later discarded or merged away, one per
// line.
func WriteDiscardedFrames(dir string, records []MembershipRecord) error {
	f, w, err := create(dir, "discarded_frames.txt")
	if err != nil {
		return err
	}
	defer f.Close()

	for _, rec := range records {
		if rec.Discarded {
			fmt.Fprintf(w, "%d\n", rec.FrameIndex)
		}
	}
	return w.Flush()
}

// ClusteredHeader carries the parameter/stat summary printed at the top of
// the <input>.clustered.txt dump.
type ClusteredHeader struct {
	Params map[string]string
	Stats  map[string]string
}

// FrameVector resolves a frame index back to its raw vector, for the
// clustered dump's per-frame records. The run loop backs this with
// whatever buffering its source provides (or nil if raw frames were not
// retained, in which case WriteClustered omits the vector column).
type FrameVector func(frameIndex uint64) []float64

// WriteClustered writes "<input>.clustered.txt": a parameter/stat header,
// then every frame grouped by cluster in first-visit order, each new
// cluster's first appearance preceded by a "# NEWCLUSTER k idx <anchor>"
// marker giving the cluster id, the frame index it was born on, and its
// anchor vector.
func WriteClustered(dir, inputName string, header ClusteredHeader, records []MembershipRecord, reg *registry.Registry, frameVec FrameVector) error {
	name := filepath.Base(inputName) + ".clustered.txt"
	f, w, err := create(dir, name)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]string, 0, len(header.Params))
	for k := range header.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "# PARAM %s %s\n", k, header.Params[k])
	}
	keys = keys[:0]
	for k := range header.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "# STAT %s %s\n", k, header.Stats[k])
	}

	firstVisit := make(map[int]int)
	for _, rec := range records {
		if _, ok := firstVisit[rec.ClusterID]; !ok {
			firstVisit[rec.ClusterID] = len(firstVisit)
		}
	}
	grouped := append([]MembershipRecord(nil), records...)
	sort.SliceStable(grouped, func(a, b int) bool {
		return firstVisit[grouped[a].ClusterID] < firstVisit[grouped[b].ClusterID]
	})

	seen := make(map[int]bool)
	for _, rec := range grouped {
		if !seen[rec.ClusterID] {
			seen[rec.ClusterID] = true
			anchor := "?"
			if c := reg.Get(rec.ClusterID); c != nil {
				fields := make([]string, len(c.Anchor))
				for i, v := range c.Anchor {
					fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				anchor = strings.Join(fields, " ")
			}
			fmt.Fprintf(w, "# NEWCLUSTER %d %d %s\n", rec.ClusterID, rec.FrameIndex, anchor)
		}
		if frameVec != nil {
			if vec := frameVec(rec.FrameIndex); vec != nil {
				fields := make([]string, len(vec))
				for i, v := range vec {
					fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
				}
				fmt.Fprintf(w, "%d %d %s\n", rec.FrameIndex, rec.ClusterID, strings.Join(fields, " "))
				continue
			}
		}
		fmt.Fprintf(w, "%d %d\n", rec.FrameIndex, rec.ClusterID)
	}
	return w.Flush()
}

// Selection names which output files WriteAll writes.
type Selection struct {
	Anchors    bool
	Membership bool
	DCC        bool
	Transition bool
	Counts     bool
	Discarded  bool
	Clustered  bool
}

// WriteAll writes every selected output file into dir, stopping at the
// first error. dir must already exist.
func WriteAll(dir, inputName string, sel Selection, header ClusteredHeader, records []MembershipRecord, reg *registry.Registry, frameVec FrameVector) error {
	if sel.Anchors {
		if err := WriteAnchors(dir, reg); err != nil {
			return err
		}
	}
	if sel.Membership {
		if err := WriteFrameMembership(dir, records); err != nil {
			return err
		}
	}
	if sel.DCC {
		if err := WriteDCC(dir, reg); err != nil {
			return err
		}
	}
	if sel.Transition {
		if err := WriteTransitionMatrix(dir, reg); err != nil {
			return err
		}
	}
	if sel.Counts {
		if err := WriteClusterCounts(dir, reg); err != nil {
			return err
		}
	}
	if sel.Discarded {
		if err := WriteDiscardedFrames(dir, records); err != nil {
			return err
		}
	}
	if sel.Clustered {
		if err := WriteClustered(dir, inputName, header, records, reg, frameVec); err != nil {
			return err
		}
	}
	return nil
}
