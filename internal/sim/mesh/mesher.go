package mesh

import (
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/voxel"
)

// Mesh is the renderable surface of a voxel grid: flat float32 buffers,
// two triangles (six vertices) per visible face.
type Mesh struct {
	Positions []float32 // 3 per vertex
	Normals   []float32 // 3 per vertex
	UVs       []float32 // 2 per vertex
}

func (m *Mesh) VertexCount() int { return len(m.Positions) / 3 }
func (m *Mesh) FaceCount() int   { return m.VertexCount() / 6 }

// Atlas describes the texture atlas layout blocks index into.
type Atlas struct {
	Cols, Rows int
	// Epsilon insets UVs from tile edges to avoid bleeding between
	// adjacent tiles when sampling.
	Epsilon float32
}

var DefaultAtlas = Atlas{Cols: 8, Rows: 8, Epsilon: 0.001}

// Face directions, matching the neighbor offsets below.
const (
	faceEast = iota // +X
	faceWest        // -X
	faceUp          // +Y
	faceDown        // -Y
	faceSouth       // +Z
	faceNorth       // -Z
)

var faceOffsets = [6][3]int{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

var faceNormals = [6][3]float32{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// Unit-quad corners per face, wound as two CCW triangles.
var faceCorners = [6][6][3]float32{
	faceEast:  {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 0}, {1, 1, 1}, {1, 0, 1}},
	faceWest:  {{0, 0, 1}, {0, 1, 1}, {0, 1, 0}, {0, 0, 1}, {0, 1, 0}, {0, 0, 0}},
	faceUp:    {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {0, 1, 0}, {1, 1, 1}, {1, 1, 0}},
	faceDown:  {{0, 0, 1}, {0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 1}},
	faceSouth: {{1, 0, 1}, {1, 1, 1}, {0, 1, 1}, {1, 0, 1}, {0, 1, 1}, {0, 0, 1}},
	faceNorth: {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 0}, {1, 1, 0}, {1, 0, 0}},
}

// Per-vertex (u,v) within a tile, matching the corner winding.
var faceTileUVs = [6][2]float32{
	{0, 1}, {0, 0}, {1, 0},
	{0, 1}, {1, 0}, {1, 1},
}

// Registry resolves a palette id to its block definition.
type Registry interface {
	BlockByIndex(idx voxel.Block) (catalogs.BlockDef, bool)
}

// Build converts a voxel grid into a triangle mesh. Naive per-voxel,
// per-face emission: a face is emitted only when its neighbor inside
// the grid is empty. Neighbors beyond the grid bounds read as empty, so
// there is no cross-chunk culling at this grain.
func Build(g *voxel.Grid, reg Registry, atlas Atlas) *Mesh {
	m := &Mesh{}
	for y := 0; y < g.EY; y++ {
		for z := 0; z < g.EZ; z++ {
			for x := 0; x < g.EX; x++ {
				b := g.At(x, y, z)
				def, ok := renderedDef(reg, b)
				if !ok {
					continue
				}
				for face := 0; face < 6; face++ {
					off := faceOffsets[face]
					n := g.At(x+off[0], y+off[1], z+off[2])
					if _, occupied := renderedDef(reg, n); occupied {
						continue
					}
					emitFace(m, x, y, z, face, def, atlas)
				}
			}
		}
	}
	return m
}

// renderedDef resolves a block to its definition if it produces
// geometry. Air, the reserved light ids, registry-flagged light sources
// and unknown indices are all treated as empty.
func renderedDef(reg Registry, b voxel.Block) (catalogs.BlockDef, bool) {
	if !voxel.IsRendered(b) {
		return catalogs.BlockDef{}, false
	}
	def, ok := reg.BlockByIndex(b)
	if !ok || def.LightSource {
		return catalogs.BlockDef{}, false
	}
	return def, true
}

func emitFace(m *Mesh, x, y, z, face int, def catalogs.BlockDef, atlas Atlas) {
	tile := tileFor(def, face)
	u0, v0, u1, v1 := atlas.tileUV(tile)

	for i := 0; i < 6; i++ {
		c := faceCorners[face][i]
		m.Positions = append(m.Positions,
			float32(x)+c[0], float32(y)+c[1], float32(z)+c[2])
		n := faceNormals[face]
		m.Normals = append(m.Normals, n[0], n[1], n[2])
		tu, tv := faceTileUVs[i][0], faceTileUVs[i][1]
		m.UVs = append(m.UVs, u0+(u1-u0)*tu, v0+(v1-v0)*tv)
	}
}

// tileFor picks the atlas tile for a face: dedicated top/bottom/side
// tiles when defined, otherwise the "all" tile.
func tileFor(def catalogs.BlockDef, face int) catalogs.AtlasTile {
	switch face {
	case faceUp:
		if def.TileTop != nil {
			return *def.TileTop
		}
	case faceDown:
		if def.TileBottom != nil {
			return *def.TileBottom
		}
	default:
		if def.TileSide != nil {
			return *def.TileSide
		}
	}
	if def.TileAll != nil {
		return *def.TileAll
	}
	return catalogs.AtlasTile{}
}

// tileUV maps an atlas tile to normalized UV bounds, inset by epsilon.
func (a Atlas) tileUV(t catalogs.AtlasTile) (u0, v0, u1, v1 float32) {
	tw := 1.0 / float32(a.Cols)
	th := 1.0 / float32(a.Rows)
	u0 = float32(t[0])*tw + a.Epsilon
	v0 = float32(t[1])*th + a.Epsilon
	u1 = float32(t[0]+1)*tw - a.Epsilon
	v1 = float32(t[1]+1)*th - a.Epsilon
	return
}
