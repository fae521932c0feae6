package path

import (
	"container/heap"

	"voxelrealm.gg/internal/sim/voxel"
)

// World is the voxel occupancy the pathfinder searches over.
type World interface {
	// Solid reports whether the voxel at p blocks movement.
	Solid(p voxel.Vec3i) bool
}

// Config bounds the search effort. These are performance guards, not
// contract values; see tuning.yaml.
type Config struct {
	MaxDistance   float64 // straight-line start->end cap
	MaxExpansions int     // node-expansion budget
}

type node struct {
	pos    voxel.Vec3i
	g, f   int
	parent *node
	index  int
}

type nodeHeap []*node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x interface{}) { n := x.(*node); n.index = len(*h); *h = append(*h, n) }

func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil
	nd.index = -1
	*h = old[:n-1]
	return nd
}

// Walkable reports whether a standing entity can occupy cell p: the
// cell and the cell above must be open, the cell below solid footing.
func Walkable(w World, p voxel.Vec3i) bool {
	if w.Solid(p) {
		return false
	}
	if w.Solid(voxel.Vec3i{X: p.X, Y: p.Y + 1, Z: p.Z}) {
		return false
	}
	return w.Solid(voxel.Vec3i{X: p.X, Y: p.Y - 1, Z: p.Z})
}

// heuristic approximates combined straight/diagonal movement cost:
// 10 per axis-aligned step, discounted by 16 per step the diagonal
// shortcut saves.
func heuristic(a, b voxel.Vec3i) int {
	dx := voxel.AbsInt(a.X - b.X)
	dy := voxel.AbsInt(a.Y - b.Y)
	dz := voxel.AbsInt(a.Z - b.Z)
	return 10*(dx+dy+dz) - 16*voxel.MinInt(dx, voxel.MinInt(dy, dz))
}

func stepCost(d voxel.Vec3i) int {
	n := voxel.AbsInt(d.X) + voxel.AbsInt(d.Y) + voxel.AbsInt(d.Z)
	switch n {
	case 1:
		return 10
	case 2:
		return 14
	default:
		return 17
	}
}

// Find searches for a walkable route from start to end. A nil result is
// a normal outcome: the target is too far, unreachable, or the
// expansion budget ran out. Waypoints are centered on their voxel's
// horizontal footprint.
func Find(w World, cfg Config, start, end voxel.Vec3) []voxel.Vec3 {
	if start.Sub(end).Len() > cfg.MaxDistance {
		return nil
	}

	s := start.Floor()
	goal := end.Floor()

	open := &nodeHeap{}
	heap.Init(open)
	startNode := &node{pos: s, g: 0, f: heuristic(s, goal)}
	heap.Push(open, startNode)

	inOpen := map[voxel.Vec3i]*node{s: startNode}
	closed := map[voxel.Vec3i]bool{}

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		delete(inOpen, cur.pos)

		if cur.pos == goal {
			return reconstruct(cur)
		}

		closed[cur.pos] = true
		expansions++
		if expansions >= cfg.MaxExpansions {
			return nil
		}

		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					np := voxel.Vec3i{X: cur.pos.X + dx, Y: cur.pos.Y + dy, Z: cur.pos.Z + dz}
					if closed[np] {
						continue
					}
					if !Walkable(w, np) {
						// Never reconsider blocked cells.
						closed[np] = true
						continue
					}
					g := cur.g + stepCost(voxel.Vec3i{X: dx, Y: dy, Z: dz})
					if existing, ok := inOpen[np]; ok {
						if g < existing.g {
							existing.g = g
							existing.f = g + heuristic(np, goal)
							existing.parent = cur
							heap.Fix(open, existing.index)
						}
						continue
					}
					nn := &node{pos: np, g: g, f: g + heuristic(np, goal), parent: cur}
					heap.Push(open, nn)
					inOpen[np] = nn
				}
			}
		}
	}
	return nil
}

func reconstruct(goal *node) []voxel.Vec3 {
	var rev []voxel.Vec3i
	for n := goal; n != nil; n = n.parent {
		rev = append(rev, n.pos)
	}
	out := make([]voxel.Vec3, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		p := rev[i]
		out = append(out, voxel.Vec3{
			X: float64(p.X) + 0.5,
			Y: float64(p.Y),
			Z: float64(p.Z) + 0.5,
		})
	}
	return out
}
