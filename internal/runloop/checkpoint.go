package runloop

import (
	"fmt"

	"github.com/anchorcluster/anchorcluster/internal/checkpoint"
)

// restoreCheckpoint attempts a best-effort restore from l.store into the
// freshly created, empty l.reg. A missing or corrupt checkpoint is logged
// and the run proceeds cold, per SPEC_FULL §4.6.
func (l *Loop) restoreCheckpoint() {
	snap, ok, err := l.store.Load()
	if err != nil {
		l.log.WithError(err).Warn("runloop: checkpoint load failed, starting cold")
		return
	}
	if !ok {
		return
	}
	if snap.Dim != l.reg.Dim() {
		l.log.Warnf("runloop: checkpoint dim %d does not match stream dim %d, starting cold", snap.Dim, l.reg.Dim())
		return
	}

	for _, cs := range snap.Clusters {
		c, err := l.reg.NewCluster(cs.Anchor, cs.BirthIndex)
		if err != nil {
			l.log.WithError(err).Warn("runloop: checkpoint restore failed mid-way, starting cold")
			return
		}
		if c.ID != cs.ID {
			l.log.Warn("runloop: checkpoint cluster id sequence mismatch, starting cold")
			return
		}
		c.Hits = cs.Hits
		l.reg.SetProbability(int(c.ID), cs.Probability)
		if cs.Discarded {
			l.reg.Discard(int(c.ID))
		} else if !cs.Live {
			l.reg.Tombstone(int(c.ID))
		}
	}
	for _, e := range snap.DCC {
		l.reg.RecordDCC(e.I, e.J, e.Dist)
	}
	l.reg.RestoreState(snap.Transition, snap.SequenceHistory, snap.PrevClusterID)
	l.log.Infof("runloop: restored checkpoint with %d clusters", len(snap.Clusters))
}

// saveCheckpoint serializes the current registry state and writes it as
// the run's latest checkpoint.
func (l *Loop) saveCheckpoint(framesProcessed uint64) error {
	snap := checkpoint.Snapshot{
		Dim:             l.reg.Dim(),
		FramesProcessed: framesProcessed,
		Transition:      l.reg.Transition(),
		SequenceHistory: l.reg.SequenceHistory(),
		PrevClusterID:   l.reg.PrevClusterID(),
	}
	for id := 0; id < l.reg.Count(); id++ {
		c := l.reg.Get(id)
		if c == nil {
			continue
		}
		snap.Clusters = append(snap.Clusters, checkpoint.ClusterSnapshot{
			ID:          c.ID,
			Anchor:      c.Anchor,
			BirthIndex:  c.BirthIndex,
			Hits:        c.Hits,
			Probability: c.Probability,
			Live:        c.Live(),
			Discarded:   l.reg.WasDiscarded(id),
		})
	}
	for _, e := range l.reg.DCC().Entries() {
		snap.DCC = append(snap.DCC, checkpoint.DCCEntry{I: e.I, J: e.J, Dist: e.Dist})
	}
	if err := l.store.Save(snap); err != nil {
		return fmt.Errorf("runloop: saving checkpoint: %w", err)
	}
	return nil
}
