package mesh

import (
	"testing"

	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/voxel"
)

func loadBlocks(t *testing.T) catalogs.BlockCatalog {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats.Blocks
}

func TestBuild_SingleVoxelEmitsSixFaces(t *testing.T) {
	blocks := loadBlocks(t)
	g := voxel.NewCube(4)
	g.Set(1, 1, 1, blocks.Index["STONE"])

	m := Build(g, blocks, DefaultAtlas)
	if m.FaceCount() != 6 {
		t.Fatalf("faces = %d, want 6", m.FaceCount())
	}
	if len(m.Positions) != 6*6*3 || len(m.Normals) != 6*6*3 || len(m.UVs) != 6*6*2 {
		t.Fatalf("buffer sizes: pos=%d norm=%d uv=%d", len(m.Positions), len(m.Normals), len(m.UVs))
	}
}

func TestBuild_AdjacentVoxelsCullSharedFaces(t *testing.T) {
	blocks := loadBlocks(t)
	g := voxel.NewCube(4)
	g.Set(1, 1, 1, blocks.Index["STONE"])
	g.Set(2, 1, 1, blocks.Index["STONE"])

	m := Build(g, blocks, DefaultAtlas)
	// Two cubes sharing one face: 12 - 2 = 10 visible faces.
	if m.FaceCount() != 10 {
		t.Fatalf("faces = %d, want 10", m.FaceCount())
	}
}

func TestBuild_SolidGridOnlyEmitsHull(t *testing.T) {
	blocks := loadBlocks(t)
	const e = 6
	g := voxel.NewCube(e)
	stone := blocks.Index["STONE"]
	for i := range g.Blocks {
		g.Blocks[i] = stone
	}

	m := Build(g, blocks, DefaultAtlas)
	want := 6 * e * e // hull faces only; no interior-adjacent faces
	if m.FaceCount() != want {
		t.Fatalf("faces = %d, want %d", m.FaceCount(), want)
	}
}

func TestBuild_LightSourcesNotRenderedAndCullAsEmpty(t *testing.T) {
	blocks := loadBlocks(t)
	g := voxel.NewCube(4)
	g.Set(1, 1, 1, blocks.Index["STONE"])
	g.Set(2, 1, 1, blocks.Index["TORCH_WARM"])

	m := Build(g, blocks, DefaultAtlas)
	// The torch contributes no geometry and the stone face toward it
	// stays visible.
	if m.FaceCount() != 6 {
		t.Fatalf("faces = %d, want 6", m.FaceCount())
	}
}

func TestBuild_UVsInsetWithinAtlasTile(t *testing.T) {
	blocks := loadBlocks(t)
	g := voxel.NewCube(2)
	g.Set(0, 0, 0, blocks.Index["GRASS"])

	m := Build(g, blocks, DefaultAtlas)
	for i := 0; i < len(m.UVs); i += 2 {
		u, v := m.UVs[i], m.UVs[i+1]
		if u <= 0 || u >= 1 || v <= 0 || v >= 1 {
			t.Fatalf("uv out of normalized range: (%v,%v)", u, v)
		}
	}
}
