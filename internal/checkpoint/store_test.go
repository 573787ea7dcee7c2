package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	snap := Snapshot{
		Dim:             3,
		FramesProcessed: 42,
		Clusters: []ClusterSnapshot{
			{ID: 0, Anchor: []float64{1, 2, 3}, Hits: 5, Probability: 0.5, Live: true},
		},
		DCC:             []DCCEntry{{I: 0, J: 1, Dist: 12.5}},
		Transition:      map[uint32]map[uint32]uint64{0: {1: 3}},
		SequenceHistory: []uint32{0, 1, 0},
		PrevClusterID:   1,
	}
	require.NoError(t, s.Save(snap))

	loaded, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.FramesProcessed, loaded.FramesProcessed)
	assert.Equal(t, snap.Clusters, loaded.Clusters)
	assert.Equal(t, snap.DCC, loaded.DCC)
}

func TestLoadWithoutPriorSaveReportsNotOK(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewBlobCache(10)
	c.Put(0, []byte("12345"))
	c.Put(1, []byte("12345"))
	// touch 0 so it is most-recently-used
	c.Get(0)
	c.Put(2, []byte("12345")) // forces eviction; 1 is LRU

	_, ok := c.Get(1)
	assert.False(t, ok)
	_, ok = c.Get(0)
	assert.True(t, ok)
}

func TestDirtyTrackerDrainClears(t *testing.T) {
	tr := NewDirtyTracker()
	tr.Mark(1)
	tr.Mark(2)
	tr.Mark(1)
	drained := tr.Drain()
	assert.ElementsMatch(t, []uint32{1, 2}, drained)
	assert.Empty(t, tr.Drain())
}
