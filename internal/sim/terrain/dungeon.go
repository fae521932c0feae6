package terrain

import "voxelrealm.gg/internal/sim/voxel"

// Dungeon instances are ephemeral fixed-extent grids generated when a
// player enters a portal and discarded on exit.

const (
	DungeonEX = 128
	DungeonEY = 32
	DungeonEZ = 128

	dungeonBaseFloor = 4
	dungeonFloorAmpl = 3
)

// GenerateDungeon builds a dungeon grid for the given instance seed and
// theme. The floor undulates with value noise; rooms are carved by
// pillar grids and torch-lit. Deterministic per (seed, theme).
func (g *Generator) GenerateDungeon(seed int64, theme string) *voxel.Grid {
	grid := voxel.NewGrid(DungeonEX, DungeonEY, DungeonEZ)

	for z := 0; z < DungeonEZ; z++ {
		for x := 0; x < DungeonEX; x++ {
			n := voxel.Value2D(seed, float64(x), float64(z), 0.06)
			floor := dungeonBaseFloor + int(n*float64(dungeonFloorAmpl))
			for y := 0; y <= floor; y++ {
				if y == floor {
					grid.Set(x, y, z, g.Pal.DungeonFloor)
				} else {
					grid.Set(x, y, z, g.Pal.DungeonBrick)
				}
			}
			grid.Set(x, DungeonEY-1, z, g.Pal.DungeonBrick)
		}
	}

	// Perimeter walls.
	grid.FillBox(0, 0, 0, DungeonEX-1, DungeonEY-1, 0, g.Pal.DungeonBrick)
	grid.FillBox(0, 0, DungeonEZ-1, DungeonEX-1, DungeonEY-1, DungeonEZ-1, g.Pal.DungeonBrick)
	grid.FillBox(0, 0, 0, 0, DungeonEY-1, DungeonEZ-1, g.Pal.DungeonBrick)
	grid.FillBox(DungeonEX-1, 0, 0, DungeonEX-1, DungeonEY-1, DungeonEZ-1, g.Pal.DungeonBrick)

	// Pillars on a 16-block lattice, skipped near the spawn area so the
	// entry room stays open.
	for z := 16; z < DungeonEZ-8; z += 16 {
		for x := 16; x < DungeonEX-8; x += 16 {
			if voxel.AbsInt(x-DungeonEX/2) < 12 && voxel.AbsInt(z-DungeonEZ/2) < 12 {
				continue
			}
			floor := dungeonBaseFloor + int(voxel.Value2D(seed, float64(x), float64(z), 0.06)*float64(dungeonFloorAmpl))
			if voxel.Hash3(seed, x, floor, z)%4 == 0 {
				continue
			}
			grid.FillBox(x, floor+1, z, x+1, DungeonEY-2, z+1, g.Pal.DungeonBrick)
		}
	}

	// Torches along the lattice, alternating warm/cool.
	for z := 8; z < DungeonEZ-4; z += 16 {
		for x := 8; x < DungeonEX-4; x += 16 {
			floor := dungeonBaseFloor + int(voxel.Value2D(seed, float64(x), float64(z), 0.06)*float64(dungeonFloorAmpl))
			torch := g.Pal.TorchWarm
			if (x/16+z/16)%2 == 0 {
				torch = g.Pal.TorchCool
			}
			grid.Set(x, floor+2, z, torch)
		}
	}

	return grid
}

// GroundScan finds a spawn position by scanning downward from startY
// until solid ground. Returns the position standing on the first solid
// cell, or false when the column is all air.
func GroundScan(grid *voxel.Grid, solid func(voxel.Block) bool, x, z, startY int) (voxel.Vec3, bool) {
	for y := startY; y >= 0; y-- {
		if solid(grid.At(x, y, z)) {
			return voxel.Vec3{X: float64(x) + 0.5, Y: float64(y + 1), Z: float64(z) + 0.5}, true
		}
	}
	return voxel.Vec3{}, false
}

// DungeonSpawn computes the instance spawn point by ground-scanning the
// grid center from a fixed height.
func DungeonSpawn(grid *voxel.Grid, solid func(voxel.Block) bool) voxel.Vec3 {
	pos, ok := GroundScan(grid, solid, grid.EX/2, grid.EZ/2, grid.EY-2)
	if !ok {
		return voxel.Vec3{X: float64(grid.EX) / 2, Y: float64(dungeonBaseFloor + 1), Z: float64(grid.EZ) / 2}
	}
	return pos
}
