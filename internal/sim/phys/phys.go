// Package phys is the shared movement integration: a pure function of
// (state, input, world, dt) used by the authoritative room every tick
// and by client-side prediction every frame. It knows nothing about
// rendering or replication.
package phys

import (
	"math"

	"voxelrealm.gg/internal/sim/tuning"
	"voxelrealm.gg/internal/sim/voxel"
)

// SolidFunc reports whether the voxel at (x,y,z) blocks movement.
type SolidFunc func(x, y, z int) bool

// Body is the mutable movement state of a standing entity.
type Body struct {
	Pos      voxel.Vec3
	Vel      voxel.Vec3
	Grounded bool
}

// Input is the held-key snapshot integrated each step.
type Input struct {
	Forward, Back bool
	Left, Right   bool
	Jump          bool
	Yaw           float64
}

// Step integrates one timestep: gravity, yaw-relative horizontal
// movement at fixed speed, jump impulse when grounded, then
// axis-separated collision (Y, then X, then Z) against the voxel world.
func Step(b *Body, in Input, solid SolidFunc, cfg tuning.Physics, dt float64) {
	// Horizontal intent in the facing frame.
	var fwd, strafe float64
	if in.Forward {
		fwd++
	}
	if in.Back {
		fwd--
	}
	if in.Right {
		strafe++
	}
	if in.Left {
		strafe--
	}
	if fwd != 0 || strafe != 0 {
		// Normalize so diagonals are not faster.
		inv := 1 / math.Sqrt(fwd*fwd+strafe*strafe)
		fwd *= inv
		strafe *= inv
	}
	sin, cos := math.Sin(in.Yaw), math.Cos(in.Yaw)
	b.Vel.X = (fwd*-sin + strafe*cos) * cfg.MoveSpeed
	b.Vel.Z = (fwd*-cos + strafe*-sin) * cfg.MoveSpeed

	if in.Jump && b.Grounded {
		b.Vel.Y = cfg.JumpImpulse
	}
	b.Vel.Y += cfg.Gravity * dt

	// Vertical first so landing resolves before horizontal sliding.
	moveAxis(b, solid, cfg, 1, b.Vel.Y*dt)
	moveAxis(b, solid, cfg, 0, b.Vel.X*dt)
	moveAxis(b, solid, cfg, 2, b.Vel.Z*dt)

	b.Grounded = probeGround(b, solid, cfg)
}

// moveAxis advances one position component and resolves collisions by
// snapping to the voxel boundary and zeroing that velocity component.
func moveAxis(b *Body, solid SolidFunc, cfg tuning.Physics, axis int, delta float64) {
	if delta == 0 {
		return
	}
	switch axis {
	case 0:
		b.Pos.X += delta
	case 1:
		b.Pos.Y += delta
	case 2:
		b.Pos.Z += delta
	}
	if !collides(b, solid, cfg) {
		return
	}
	switch axis {
	case 0:
		if delta > 0 {
			b.Pos.X = math.Floor(b.Pos.X+cfg.PlayerHalfWidth) - cfg.PlayerHalfWidth
		} else {
			b.Pos.X = math.Ceil(b.Pos.X-cfg.PlayerHalfWidth) + cfg.PlayerHalfWidth
		}
		b.Vel.X = 0
	case 1:
		if delta > 0 {
			b.Pos.Y = math.Floor(b.Pos.Y+cfg.PlayerHeight) - cfg.PlayerHeight
		} else {
			b.Pos.Y = math.Ceil(b.Pos.Y)
		}
		b.Vel.Y = 0
	case 2:
		if delta > 0 {
			b.Pos.Z = math.Floor(b.Pos.Z+cfg.PlayerHalfWidth) - cfg.PlayerHalfWidth
		} else {
			b.Pos.Z = math.Ceil(b.Pos.Z-cfg.PlayerHalfWidth) + cfg.PlayerHalfWidth
		}
		b.Vel.Z = 0
	}
}

// collides tests the body's AABB against solid voxels. Pos is the feet
// center; the box spans half-width horizontally and height upward.
func collides(b *Body, solid SolidFunc, cfg tuning.Physics) bool {
	minX := int(math.Floor(b.Pos.X - cfg.PlayerHalfWidth))
	maxX := int(math.Floor(b.Pos.X + cfg.PlayerHalfWidth))
	minY := int(math.Floor(b.Pos.Y))
	maxY := int(math.Floor(b.Pos.Y + cfg.PlayerHeight - 1e-9))
	minZ := int(math.Floor(b.Pos.Z - cfg.PlayerHalfWidth))
	maxZ := int(math.Floor(b.Pos.Z + cfg.PlayerHalfWidth))
	for y := minY; y <= maxY; y++ {
		for z := minZ; z <= maxZ; z++ {
			for x := minX; x <= maxX; x++ {
				if solid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}

// probeGround samples just below the feet across the footprint.
func probeGround(b *Body, solid SolidFunc, cfg tuning.Physics) bool {
	y := int(math.Floor(b.Pos.Y - 0.05))
	minX := int(math.Floor(b.Pos.X - cfg.PlayerHalfWidth))
	maxX := int(math.Floor(b.Pos.X + cfg.PlayerHalfWidth))
	minZ := int(math.Floor(b.Pos.Z - cfg.PlayerHalfWidth))
	maxZ := int(math.Floor(b.Pos.Z + cfg.PlayerHalfWidth))
	for z := minZ; z <= maxZ; z++ {
		for x := minX; x <= maxX; x++ {
			if solid(x, y, z) {
				return true
			}
		}
	}
	return false
}
