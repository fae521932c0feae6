package voxel

// Deterministic hash noise. Same mixing scheme everywhere so generation
// stays reproducible across platforms and goroutines.

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 hashes a seed with a 2D integer coordinate.
func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Hash3 hashes a seed with a 3D integer coordinate.
func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// valueAt is white noise in [0,1) at an integer lattice point.
func valueAt(seed int64, x, z int) float64 {
	return float64(Hash2(seed, x, z)%10000) / 10000.0
}

// Value2D is smoothed 2D value noise in [0,1): bilinear interpolation
// of lattice white noise with a smoothstep fade. freq scales the input
// coordinate; callers layer octaves themselves if they need them.
func Value2D(seed int64, x, z, freq float64) float64 {
	fx, fz := x*freq, z*freq
	x0, z0 := floorInt(fx), floorInt(fz)
	tx, tz := fade(fx-float64(x0)), fade(fz-float64(z0))

	v00 := valueAt(seed, x0, z0)
	v10 := valueAt(seed, x0+1, z0)
	v01 := valueAt(seed, x0, z0+1)
	v11 := valueAt(seed, x0+1, z0+1)

	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*tz
}

func fade(t float64) float64 { return t * t * (3 - 2*t) }

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
