// Package predict implements the client-side half of the movement
// contract: per-frame local integration through the shared phys
// package, plus bounded reconciliation toward the latest authoritative
// server position.
package predict

import (
	"math"

	"voxelrealm.gg/internal/sim/phys"
	"voxelrealm.gg/internal/sim/tuning"
	"voxelrealm.gg/internal/sim/voxel"
)

type Config struct {
	Physics tuning.Physics
	// Rate is the fraction of remaining error corrected per second.
	Rate float64
	// SnapDistance forces a hard correction beyond this divergence;
	// below it the correction is always a smooth lerp.
	SnapDistance float64
}

func DefaultConfig() Config {
	return Config{
		Physics:      tuning.Default().Physics,
		Rate:         10,
		SnapDistance: 12,
	}
}

// Predictor mirrors the local player's movement between server
// snapshots. Frame-driven, single-goroutine, no locking.
type Predictor struct {
	cfg  Config
	body phys.Body

	haveAuth bool
	auth     voxel.Vec3
}

func New(cfg Config, start voxel.Vec3) *Predictor {
	return &Predictor{cfg: cfg, body: phys.Body{Pos: start}}
}

func (p *Predictor) Pos() voxel.Vec3 { return p.body.Pos }

// Frame advances prediction by dt: integrate local input immediately
// for responsiveness, then converge toward the authoritative position.
func (p *Predictor) Frame(in phys.Input, solid phys.SolidFunc, dt float64) voxel.Vec3 {
	phys.Step(&p.body, in, solid, p.cfg.Physics, dt)
	if p.haveAuth {
		p.body.Pos = Reconcile(p.body.Pos, p.auth, p.cfg, dt)
	}
	return p.body.Pos
}

// OnServerState records the latest authoritative position. Correction
// is applied gradually on subsequent frames, never as an immediate
// visible snap.
func (p *Predictor) OnServerState(pos voxel.Vec3) {
	p.auth = pos
	p.haveAuth = true
}

// Reconcile moves predicted toward authoritative by an exponential
// step bounded by dt, so convergence is smooth and frame-rate
// independent. Divergence beyond SnapDistance corrects fully.
func Reconcile(predicted, authoritative voxel.Vec3, cfg Config, dt float64) voxel.Vec3 {
	err := authoritative.Sub(predicted)
	dist := err.Len()
	if dist == 0 {
		return predicted
	}
	if cfg.SnapDistance > 0 && dist > cfg.SnapDistance {
		return authoritative
	}
	// 1 - e^(-rate*dt) of the remaining error each frame.
	t := 1 - math.Exp(-cfg.Rate*dt)
	return voxel.Vec3{
		X: predicted.X + err.X*t,
		Y: predicted.Y + err.Y*t,
		Z: predicted.Z + err.Z*t,
	}
}
