package room

import (
	"voxelrealm.gg/internal/sim/path"
	"voxelrealm.gg/internal/sim/phys"
	"voxelrealm.gg/internal/sim/voxel"
)

// solidFuncFor returns the collision predicate for a world context:
// the streamed overworld (unloaded chunks read as air) or a dungeon
// instance grid.
func (r *Room) solidFuncFor(ctx Context) phys.SolidFunc {
	if ctx == CtxOverworld {
		return func(x, y, z int) bool {
			return r.cats.Blocks.SolidByIndex(uint8(r.chunks.BlockAt(x, y, z)))
		}
	}
	inst := r.dungeons[ctx]
	if inst == nil {
		return func(x, y, z int) bool { return false }
	}
	return func(x, y, z int) bool {
		return r.cats.Blocks.SolidByIndex(uint8(inst.Grid.At(x, y, z)))
	}
}

// pathWorld adapts a context's collision predicate to the pathfinder.
type pathWorld struct {
	solid phys.SolidFunc
}

func (w pathWorld) Solid(p voxel.Vec3i) bool { return w.solid(p.X, p.Y, p.Z) }

func (r *Room) pathWorldFor(ctx Context) path.World {
	return pathWorld{solid: r.solidFuncFor(ctx)}
}
