package voxel

import "math"

// Vec3i is an integer voxel coordinate.
type Vec3i struct {
	X, Y, Z int
}

// Vec3 is a continuous world-space position.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Floor() Vec3i {
	return Vec3i{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistSq is the squared euclidean distance, used for radius checks
// without the sqrt.
func (v Vec3) DistSq(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// ChunkKey identifies a streamed chunk column.
type ChunkKey struct {
	X, Z int
}

// FloorDiv is floor division for b > 0.
func FloorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

// Mod is the euclidean (non-negative) modulus for b > 0.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// WorldToChunk maps a world x/z coordinate to its chunk coordinate.
func WorldToChunk(w, edge int) int { return FloorDiv(w, edge) }

// AbsInt returns |a|.
func AbsInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
