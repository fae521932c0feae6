package stream

import "voxelrealm.gg/internal/sim/voxel"

// job is a queued generation request. Uniqueness per key is enforced by
// the scheduler's pending set, ordering by this min-heap on distance.
type job struct {
	key  voxel.ChunkKey
	lod  int
	dist int
	gen  uint64 // request generation for the stale-result guard

	index int // heap bookkeeping
}

type jobHeap []*job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *jobHeap) Push(x interface{}) { j := x.(*job); j.index = len(*h); *h = append(*h, j) }

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}
