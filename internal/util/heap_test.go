package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinHeapOrdering(t *testing.T) {
	h := NewMinHeap()
	h.PushCandidate(&BoundCandidate{ClusterID: 1, Bound: 5})
	h.PushCandidate(&BoundCandidate{ClusterID: 2, Bound: 1})
	h.PushCandidate(&BoundCandidate{ClusterID: 3, Bound: 3})

	var order []int
	for h.Len() > 0 {
		order = append(order, h.PopCandidate().ClusterID)
	}
	assert.Equal(t, []int{2, 3, 1}, order)
}

func TestMinHeapEmpty(t *testing.T) {
	h := NewMinHeap()
	assert.Nil(t, h.PopCandidate())
}
