package terrain

import "voxelrealm.gg/internal/sim/voxel"

// The town is a fixed world-space region stamped over the generated
// terrain. Blueprints are axis-aligned boxes in absolute world
// coordinates; stamping translates them into chunk-local coordinates
// and relies on Grid.Set to clip anything outside the live chunk.

type box struct {
	x0, y0, z0 int
	x1, y1, z1 int
	block      voxel.Block
}

type townPlan struct {
	minX, maxX int
	minZ, maxZ int
	boxes      []box
}

func (t townPlan) contains(wx, wz int) bool {
	return wx >= t.minX && wx <= t.maxX && wz >= t.minZ && wz <= t.maxZ
}

func (t townPlan) stamp(grid *voxel.Grid, ox, oz int) {
	for _, b := range t.boxes {
		for y := b.y0; y <= b.y1; y++ {
			for z := b.z0; z <= b.z1; z++ {
				for x := b.x0; x <= b.x1; x++ {
					grid.Set(x-ox, y, z-oz, b.block)
				}
			}
		}
	}
}

func buildTownPlan(pal Palette) townPlan {
	t := townPlan{minX: -40, maxX: 40, minZ: -40, maxZ: 40}
	g := townGroundY

	road := func(x0, z0, x1, z1 int) {
		t.boxes = append(t.boxes, box{x0, g, z0, x1, g, z1, pal.Road})
	}
	// Main cross roads through the town center.
	road(-40, -1, 40, 1)
	road(-1, -40, 1, 40)

	// A simple timber building: foundation, plank floor, walls with a
	// door gap on the south face, flat roof.
	building := func(x0, z0, x1, z1, height int) {
		t.boxes = append(t.boxes,
			box{x0, g, z0, x1, g, z1, pal.Foundation},
			box{x0, g + 1, z0, x1, g + 1, z1, pal.Plank},
			// Walls.
			box{x0, g + 2, z0, x1, g + height, z0, pal.TimberWall},
			box{x0, g + 2, z1, x1, g + height, z1, pal.TimberWall},
			box{x0, g + 2, z0, x0, g + height, z1, pal.TimberWall},
			box{x1, g + 2, z0, x1, g + height, z1, pal.TimberWall},
			// Roof.
			box{x0, g + height + 1, z0, x1, g + height + 1, z1, pal.RoofTile},
		)
		// Door: two-block gap centered on the south wall.
		dx := (x0 + x1) / 2
		t.boxes = append(t.boxes,
			box{dx, g + 2, z0, dx, g + 3, z0, pal.Air},
		)
	}
	building(5, 5, 13, 12, 4)
	building(-14, 5, -5, 13, 4)
	building(5, -14, 14, -6, 5)
	building(-13, -12, -5, -5, 3)

	// Perimeter wall with corner towers.
	wall := func(x0, z0, x1, z1 int) {
		t.boxes = append(t.boxes, box{x0, g + 1, z0, x1, g + 3, z1, pal.StoneWall})
	}
	wall(-40, -40, 40, -40)
	wall(-40, 40, 40, 40)
	wall(-40, -40, -40, 40)
	wall(40, -40, 40, 40)
	// Gates where the roads meet the wall.
	t.boxes = append(t.boxes,
		box{-1, g + 1, -40, 1, g + 3, -40, pal.Air},
		box{-1, g + 1, 40, 1, g + 3, 40, pal.Air},
		box{-40, g + 1, -1, -40, g + 3, 1, pal.Air},
		box{40, g + 1, -1, 40, g + 3, 1, pal.Air},
	)

	tower := func(x, z int) {
		t.boxes = append(t.boxes,
			box{x - 1, g + 1, z - 1, x + 1, g + 6, z + 1, pal.TowerBrick},
			box{x, g + 7, z, x, g + 7, z, pal.TorchWarm},
		)
	}
	tower(-40, -40)
	tower(-40, 40)
	tower(40, -40)
	tower(40, 40)

	// Street lighting along the main roads.
	for x := -36; x <= 36; x += 8 {
		t.boxes = append(t.boxes, box{x, g + 1, 2, x, g + 1, 2, pal.TorchCool})
	}

	return t
}

// SafeZone is the town's bounding box in world coordinates; enemy
// spawns are kept outside it.
type SafeZone struct {
	MinX, MaxX int
	MinZ, MaxZ int
}

func (g *Generator) SafeZone() SafeZone {
	return SafeZone{
		MinX: g.town.minX, MaxX: g.town.maxX,
		MinZ: g.town.minZ, MaxZ: g.town.maxZ,
	}
}

func (s SafeZone) Contains(x, z float64) bool {
	return x >= float64(s.MinX) && x <= float64(s.MaxX) &&
		z >= float64(s.MinZ) && z <= float64(s.MaxZ)
}
