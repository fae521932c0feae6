package terrain

import (
	"fmt"

	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/voxel"
)

// Palette holds the resolved block ids the generator writes. Resolving
// once up front keeps the hot loop free of map lookups and surfaces a
// bad config at boot instead of mid-generation.
type Palette struct {
	Air          voxel.Block
	Grass        voxel.Block
	Dirt         voxel.Block
	Stone        voxel.Block
	Sand         voxel.Block
	Water        voxel.Block
	Snow         voxel.Block
	Road         voxel.Block
	Plank        voxel.Block
	TimberWall   voxel.Block
	RoofTile     voxel.Block
	Foundation   voxel.Block
	StoneWall    voxel.Block
	TowerBrick   voxel.Block
	PortalFrame  voxel.Block
	PortalCore   voxel.Block
	DungeonBrick voxel.Block
	DungeonFloor voxel.Block
	TorchWarm    voxel.Block
	TorchCool    voxel.Block
}

func NewPalette(blocks catalogs.BlockCatalog) (Palette, error) {
	var p Palette
	resolve := func(dst *voxel.Block, id string) error {
		v, ok := blocks.Index[id]
		if !ok {
			return fmt.Errorf("missing block id in palette: %s", id)
		}
		*dst = v
		return nil
	}
	fields := []struct {
		dst *voxel.Block
		id  string
	}{
		{&p.Air, "AIR"},
		{&p.Grass, "GRASS"},
		{&p.Dirt, "DIRT"},
		{&p.Stone, "STONE"},
		{&p.Sand, "SAND"},
		{&p.Water, "WATER"},
		{&p.Snow, "SNOW"},
		{&p.Road, "COBBLE_ROAD"},
		{&p.Plank, "PLANK"},
		{&p.TimberWall, "TIMBER_WALL"},
		{&p.RoofTile, "ROOF_TILE"},
		{&p.Foundation, "FOUNDATION"},
		{&p.StoneWall, "STONE_WALL"},
		{&p.TowerBrick, "TOWER_BRICK"},
		{&p.PortalFrame, "PORTAL_FRAME"},
		{&p.PortalCore, "PORTAL_CORE"},
		{&p.DungeonBrick, "DUNGEON_BRICK"},
		{&p.DungeonFloor, "DUNGEON_FLOOR"},
		{&p.TorchWarm, "TORCH_WARM"},
		{&p.TorchCool, "TORCH_COOL"},
	}
	for _, f := range fields {
		if err := resolve(f.dst, f.id); err != nil {
			return p, err
		}
	}
	return p, nil
}

// PortalSpawn is auxiliary generator output: a portal stamped into a
// chunk that the caller must register as a world object.
type PortalSpawn struct {
	Name  string
	Pos   voxel.Vec3
	Color string
}

// Generator produces voxel grids for chunk coordinates. It is a pure
// function of (coordinates, seed, lod) and safe to call from any number
// of goroutines concurrently.
type Generator struct {
	Seed int64
	Edge int
	Pal  Palette

	town townPlan
}

func NewGenerator(seed int64, edge int, pal Palette) *Generator {
	return &Generator{
		Seed: seed,
		Edge: edge,
		Pal:  pal,
		town: buildTownPlan(pal),
	}
}

const (
	baseHeight  = 9
	heightAmpl  = 6
	townGroundY = 10
	seaLevel    = 8
)

// HeightAt is the terrain surface height for a world column, sampled at
// the stride implied by lod (coarser columns at lower detail).
func (g *Generator) HeightAt(wx, wz, lod int) int {
	stride := 1 << lod
	sx := voxel.FloorDiv(wx, stride) * stride
	sz := voxel.FloorDiv(wz, stride) * stride
	if g.town.contains(sx, sz) {
		return townGroundY
	}
	n := voxel.Value2D(g.Seed, float64(sx), float64(sz), 0.03)
	return baseHeight + int(n*float64(heightAmpl))
}

func (g *Generator) biomeAt(wx, wz int) string {
	// Coarse biome regions, 64 blocks across.
	rx := voxel.FloorDiv(wx, 64)
	rz := voxel.FloorDiv(wz, 64)
	switch voxel.Hash2(g.Seed^0x6b10, rx, rz) % 4 {
	case 0:
		return "DESERT"
	case 1:
		return "TUNDRA"
	default:
		return "PLAINS"
	}
}

// Generate fills a chunk grid for chunk coordinate (cx, cz) at the
// given level of detail. Same inputs always produce a byte-identical
// grid. The second result lists portals stamped into this chunk.
func (g *Generator) Generate(cx, cz, lod int) (*voxel.Grid, []PortalSpawn) {
	e := g.Edge
	grid := voxel.NewCube(e)
	ox, oz := cx*e, cz*e

	for z := 0; z < e; z++ {
		for x := 0; x < e; x++ {
			wx, wz := ox+x, oz+z
			h := g.HeightAt(wx, wz, lod)
			if h >= e {
				h = e - 1
			}

			surface := g.Pal.Grass
			switch g.biomeAt(wx, wz) {
			case "DESERT":
				surface = g.Pal.Sand
			case "TUNDRA":
				surface = g.Pal.Snow
			}
			if g.town.contains(wx, wz) {
				surface = g.Pal.Grass
			}

			for y := 0; y <= h; y++ {
				switch {
				case y == h:
					grid.Set(x, y, z, surface)
				case y >= h-3:
					grid.Set(x, y, z, g.Pal.Dirt)
				default:
					grid.Set(x, y, z, g.Pal.Stone)
				}
			}
			for y := h + 1; y <= seaLevel; y++ {
				grid.Set(x, y, z, g.Pal.Water)
			}
		}
	}

	g.town.stamp(grid, ox, oz)

	var portals []PortalSpawn
	if cx == 0 && cz == 0 {
		portals = append(portals, g.stampPortal(grid))
	}
	return grid, portals
}

// stampPortal writes the test portal arch into the origin chunk. Writes
// are bounds-checked by Grid.Set like every other structure write.
func (g *Generator) stampPortal(grid *voxel.Grid) PortalSpawn {
	const px, pz = 8, 8
	py := townGroundY + 1
	for dy := 0; dy < 4; dy++ {
		grid.Set(px-2, py+dy, pz, g.Pal.PortalFrame)
		grid.Set(px+2, py+dy, pz, g.Pal.PortalFrame)
	}
	for dx := -2; dx <= 2; dx++ {
		grid.Set(px+dx, py+4, pz, g.Pal.PortalFrame)
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := 0; dy < 4; dy++ {
			grid.Set(px+dx, py+dy, pz, g.Pal.PortalCore)
		}
	}
	return PortalSpawn{
		Name:  "Ruined Gate",
		Pos:   voxel.Vec3{X: px + 0.5, Y: float64(py), Z: pz + 0.5},
		Color: "purple",
	}
}
