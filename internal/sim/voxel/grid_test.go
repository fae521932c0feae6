package voxel

import "testing"

func TestGrid_OutOfRangeReadsAreAir(t *testing.T) {
	g := NewCube(8)
	g.Set(0, 0, 0, 5)

	cases := []Vec3i{
		{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
		{8, 0, 0}, {0, 8, 0}, {0, 0, 8},
		{100, 100, 100},
	}
	for _, c := range cases {
		if b := g.At(c.X, c.Y, c.Z); b != Air {
			t.Fatalf("At(%v) = %d, want Air", c, b)
		}
	}
}

func TestGrid_OutOfRangeWritesDropped(t *testing.T) {
	g := NewCube(4)
	g.Set(-1, 0, 0, 7)
	g.Set(4, 3, 3, 7)
	for i, b := range g.Blocks {
		if b != Air {
			t.Fatalf("block %d mutated by out-of-range write", i)
		}
	}
}

func TestGrid_IndexOrder(t *testing.T) {
	g := NewGrid(4, 2, 3)
	g.Set(1, 1, 2, 9)
	// idx = y*EX*EZ + z*EX + x
	want := 1*4*3 + 2*4 + 1
	if g.Blocks[want] != 9 {
		t.Fatalf("expected block at flat index %d", want)
	}
	if g.At(1, 1, 2) != 9 {
		t.Fatalf("At disagrees with Set")
	}
}

func TestFloorDivMod(t *testing.T) {
	cases := []struct {
		a, b, q, m int
	}{
		{0, 32, 0, 0},
		{31, 32, 0, 31},
		{32, 32, 1, 0},
		{-1, 32, -1, 31},
		{-32, 32, -1, 0},
		{-33, 32, -2, 31},
	}
	for _, c := range cases {
		if q := FloorDiv(c.a, c.b); q != c.q {
			t.Errorf("FloorDiv(%d,%d) = %d, want %d", c.a, c.b, q, c.q)
		}
		if m := Mod(c.a, c.b); m != c.m {
			t.Errorf("Mod(%d,%d) = %d, want %d", c.a, c.b, m, c.m)
		}
	}
}

func TestIsRendered(t *testing.T) {
	if IsRendered(Air) {
		t.Fatalf("air produces geometry")
	}
	if !IsRendered(1) || !IsRendered(255) {
		t.Fatalf("non-air block produces no geometry")
	}
}

func TestHash3_DeterministicAndAxisSensitive(t *testing.T) {
	if Hash3(7, 2, 3, 4) != Hash3(7, 2, 3, 4) {
		t.Fatalf("Hash3 not deterministic")
	}
	if Hash3(7, 2, 3, 4) == Hash3(7, 3, 2, 4) {
		t.Fatalf("Hash3 insensitive to axis order")
	}
	if Hash3(7, 2, 3, 4) == Hash3(8, 2, 3, 4) {
		t.Fatalf("Hash3 insensitive to seed")
	}
}

func TestValue2D_DeterministicAndBounded(t *testing.T) {
	for i := 0; i < 100; i++ {
		x, z := float64(i)*1.7-50, float64(i)*0.9-20
		v1 := Value2D(42, x, z, 0.05)
		v2 := Value2D(42, x, z, 0.05)
		if v1 != v2 {
			t.Fatalf("Value2D not deterministic at (%v,%v)", x, z)
		}
		if v1 < 0 || v1 >= 1 {
			t.Fatalf("Value2D out of [0,1): %v", v1)
		}
	}
}
