package room

import (
	"math"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/path"
	"voxelrealm.gg/internal/sim/voxel"
)

// Class tiers.
const (
	TierMinion = "minion"
	TierElite  = "elite"
)

const stunStatus = "STUN"

// Enemy is an authoritative mob. Movement is kinematic along the
// current A* path; Vel carries only knockback impulses.
type Enemy struct {
	ID   string
	Def  catalogs.EnemyDef
	Tier string
	Ctx  Context

	Pos voxel.Vec3
	Vel voxel.Vec3

	Health    int
	MaxHealth int

	Statuses map[string]uint64 // status -> expiry tick

	target     string
	waypoints  []voxel.Vec3
	wp         int
	retargetIn int
	repathIn   int
	attackIn   int
}

func (r *Room) spawnEnemy(typ string, tier string, ctx Context, pos voxel.Vec3) *Enemy {
	def, ok := r.cats.Enemies.Defs[typ]
	if !ok {
		return nil
	}
	hp := def.MaxHealth
	if tier == TierElite {
		hp *= r.cfg.Tuning.Enemies.EliteHealthScale
	}
	e := &Enemy{
		ID:        r.newID("enemy"),
		Def:       def,
		Tier:      tier,
		Ctx:       ctx,
		Pos:       pos,
		Health:    hp,
		MaxHealth: hp,
		Statuses:  map[string]uint64{},
	}
	r.enemies[e.ID] = e
	r.repEnemies.Set(e.ID, ctx, enemyView(e))
	return e
}

func (r *Room) removeEnemy(e *Enemy) {
	delete(r.enemies, e.ID)
	r.repEnemies.Remove(e.ID)
}

// systemEnemies runs the per-tick brain for every enemy: target
// acquisition on a timer, path recomputation on a timer, waypoint
// following, and contact attacks.
func (r *Room) systemEnemies(now uint64, dt float64) {
	en := r.cfg.Tuning.Enemies
	for _, e := range r.enemies {
		if until, stunned := e.Statuses[stunStatus]; stunned && until > now {
			r.repEnemies.Set(e.ID, e.Ctx, enemyView(e))
			continue
		}

		if e.Vel.X != 0 || e.Vel.Y != 0 || e.Vel.Z != 0 {
			r.applyKnockbackStep(e, dt)
			r.repEnemies.Set(e.ID, e.Ctx, enemyView(e))
			continue
		}

		if e.retargetIn <= 0 {
			e.retargetIn = en.AggroRetargetTicks
			e.target = r.acquireTarget(e)
		}
		e.retargetIn--

		target := r.players[e.target]
		if target == nil || target.Ctx != e.Ctx {
			e.target = ""
			e.waypoints = nil
			continue
		}

		if e.repathIn <= 0 {
			e.repathIn = en.PathRecomputeTicks
			cfg := path.Config{
				MaxDistance:   r.cfg.Tuning.Pathfinder.MaxDistance,
				MaxExpansions: r.cfg.Tuning.Pathfinder.MaxExpansions,
			}
			e.waypoints = path.Find(r.pathWorldFor(e.Ctx), cfg, e.Pos, target.Body.Pos)
			e.wp = 0
		}
		e.repathIn--

		r.followPath(e, dt)

		if e.attackIn > 0 {
			e.attackIn--
		} else if e.Pos.DistSq(target.Body.Pos) <= en.ContactRange*en.ContactRange {
			e.attackIn = en.AttackCooldownTicks
			r.damagePlayer(target, e.Def.Damage, e.Def.ID, now)
		}

		r.repEnemies.Set(e.ID, e.Ctx, enemyView(e))
	}
}

// acquireTarget picks the nearest player in the enemy's world within
// aggro range, or empty.
func (r *Room) acquireTarget(e *Enemy) string {
	best := ""
	bestD := e.Def.AggroRange * e.Def.AggroRange
	for id, p := range r.players {
		if p.Ctx != e.Ctx {
			continue
		}
		if d := e.Pos.DistSq(p.Body.Pos); d <= bestD {
			best, bestD = id, d
		}
	}
	return best
}

// followPath advances toward the current waypoint at the enemy's move
// speed, stepping vertically with the waypoints.
func (r *Room) followPath(e *Enemy, dt float64) {
	for e.wp < len(e.waypoints) {
		tgt := e.waypoints[e.wp]
		d := tgt.Sub(e.Pos)
		dist := d.Len()
		step := e.Def.MoveSpeed * dt
		if dist <= step {
			e.Pos = tgt
			e.wp++
			continue
		}
		inv := step / dist
		e.Pos = voxel.Vec3{X: e.Pos.X + d.X*inv, Y: e.Pos.Y + d.Y*inv, Z: e.Pos.Z + d.Z*inv}
		return
	}
}

// applyKnockbackStep integrates a knockback impulse with strong decay;
// the enemy resumes pathing once the impulse has bled off.
func (r *Room) applyKnockbackStep(e *Enemy, dt float64) {
	e.Pos = voxel.Vec3{X: e.Pos.X + e.Vel.X*dt, Y: e.Pos.Y + e.Vel.Y*dt, Z: e.Pos.Z + e.Vel.Z*dt}
	decay := math.Exp(-8 * dt)
	e.Vel = voxel.Vec3{X: e.Vel.X * decay, Y: e.Vel.Y * decay, Z: e.Vel.Z * decay}
	if e.Vel.Len() < 0.2 {
		e.Vel = voxel.Vec3{}
		// Knockback invalidates the path.
		e.waypoints = nil
		e.repathIn = 0
	}
}

// systemSpawner maintains the overworld enemy population: a uniform
// random type on an interval, outside the safe zone, on solid ground,
// with an elite chance.
func (r *Room) systemSpawner(now uint64) {
	en := r.cfg.Tuning.Enemies
	r.spawnTimer++
	if r.spawnTimer < en.SpawnIntervalTicks {
		return
	}
	r.spawnTimer = 0

	if len(r.cats.Enemies.Types) == 0 {
		return
	}
	alive := 0
	for _, e := range r.enemies {
		if e.Ctx == CtxOverworld {
			alive++
		}
	}
	if alive >= en.MaxAlive {
		return
	}

	var anchor *Player
	for _, p := range r.players {
		if p.Ctx == CtxOverworld {
			anchor = p
			break
		}
	}
	if anchor == nil {
		return
	}

	angle := r.rng.Float64() * 2 * math.Pi
	dist := 10 + r.rng.Float64()*15
	wx := anchor.Body.Pos.X + math.Cos(angle)*dist
	wz := anchor.Body.Pos.Z + math.Sin(angle)*dist
	if r.safe.Contains(wx, wz) {
		return
	}
	gy, ok := r.chunks.FindGroundHeight(int(math.Floor(wx)), int(math.Floor(wz)), func(b voxel.Block) bool {
		return r.cats.Blocks.SolidByIndex(uint8(b))
	})
	if !ok {
		return
	}

	typ := r.cats.Enemies.Types[r.rng.Intn(len(r.cats.Enemies.Types))]
	tier := TierMinion
	if r.rng.Intn(100) < en.EliteChancePercent {
		tier = TierElite
	}
	r.spawnEnemy(typ, tier, CtxOverworld, voxel.Vec3{X: wx, Y: float64(gy), Z: wz})
}

func enemyView(e *Enemy) protocol.EnemyState {
	return protocol.EnemyState{
		ID:        e.ID,
		EnemyType: e.Def.ID,
		Tier:      e.Tier,
		Pos:       pv(e.Pos),
		Health:    e.Health,
		MaxHealth: e.MaxHealth,
	}
}

func npcView(n *NPC) protocol.NPCState {
	return protocol.NPCState{ID: n.ID, Name: n.Name, Pos: pv(n.Pos)}
}

func portalView(p *Portal) protocol.PortalState {
	return protocol.PortalState{ID: p.ID, Name: p.Name, Pos: pv(p.Pos), Color: p.Color}
}

func dropView(d *Drop) protocol.DropState {
	return protocol.DropState{ID: d.ID, ItemID: d.ItemID, Name: d.Name, Pos: pv(d.Pos)}
}
