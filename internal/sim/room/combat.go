package room

import (
	"math"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/voxel"
)

const (
	// Charge abilities scale damage up to this multiplier at full hold.
	maxChargeSeconds    = 3.0
	maxChargeMultiplier = 2.0

	dropChancePercent = 25
)

// handleMelee applies weapon-augmented flat damage to every enemy in
// melee range of the attacker.
func (r *Room) handleMelee(p *Player, now uint64) {
	dmg := r.cfg.Tuning.Combat.BaseMeleeDamage + p.statBonus("strength", now)
	if w, ok := p.Equipment["mainHand"]; ok {
		dmg += w.Damage
	}
	rangeSq := r.cfg.Tuning.Combat.MeleeRange * r.cfg.Tuning.Combat.MeleeRange

	hit := false
	for _, e := range r.nearestEnemies(p) {
		if e.Pos.DistSq(p.Body.Pos) > rangeSq {
			break
		}
		hit = true
		r.damageEnemy(p, e, dmg, "melee", now)
	}
	if hit {
		r.broadcastCtx(p.Ctx, protocol.PlayVFXMsg{Type: protocol.TypePlayVFX, Kind: "melee_swing", Pos: pv(p.Body.Pos)})
	}
}

// handleUseAbility resolves the ability by flat slot index over the
// equipped essences, checks cooldown and mana, applies the socketed
// stone mods, and deals area damage. Invalid requests are no-ops.
func (r *Room) handleUseAbility(p *Player, msg protocol.UseAbilityMsg, now uint64) {
	ess, ab, ok := p.abilityAt(msg.SlotIndex)
	if !ok {
		return
	}
	if ready, onCD := p.Cooldowns[ab.ID]; onCD && ready > now {
		return
	}
	if p.Mana < ab.ManaCost {
		return
	}

	mods := socketMods(ess)
	cdTicks := ab.CooldownTicks
	dmg := ab.BaseDamage
	var knockback float64
	var statuses []catalogs.Mod
	for _, m := range mods {
		switch m.Kind {
		case catalogs.ModFlatDamage:
			dmg += m.Amount
		case catalogs.ModCooldownOverride:
			cdTicks = m.CooldownTicks
		case catalogs.ModKnockback:
			knockback += m.Force
		case catalogs.ModStatusEffect:
			statuses = append(statuses, m)
		case catalogs.ModBuff:
			p.Buffs = append(p.Buffs, Buff{
				Stat:  m.Stat,
				Delta: m.StatDelta,
				Until: now + uint64(m.DurationTicks),
			})
		}
	}
	if ab.ScalingStat != "" {
		dmg += p.statBonus(ab.ScalingStat, now)
	}
	if chargeAbility(ess) && msg.ChargeTime > 0 {
		hold := math.Min(msg.ChargeTime, maxChargeSeconds)
		dmg = int(float64(dmg) * (1 + (maxChargeMultiplier-1)*hold/maxChargeSeconds))
	}

	p.Mana = clamp(p.Mana-ab.ManaCost, 0, p.MaxMana)
	p.Cooldowns[ab.ID] = now + uint64(cdTicks)

	rangeSq := ab.Range * ab.Range
	for _, e := range r.nearestEnemies(p) {
		if e.Pos.DistSq(p.Body.Pos) > rangeSq {
			break
		}
		if ab.Area == catalogs.AreaCone && !inCone(p, e.Pos) {
			continue
		}
		for _, m := range statuses {
			e.Statuses[m.Status] = now + uint64(m.DurationTicks)
		}
		if knockback > 0 {
			away := e.Pos.Sub(p.Body.Pos)
			if l := away.Len(); l > 0 {
				e.Vel = voxel.Vec3{X: away.X / l * knockback, Y: 2, Z: away.Z / l * knockback}
			}
		}
		r.damageEnemy(p, e, dmg, ab.ID, now)
	}

	r.broadcastCtx(p.Ctx, protocol.PlayVFXMsg{Type: protocol.TypePlayVFX, Kind: ab.ID, Pos: pv(p.Body.Pos)})
}

// socketMods collects the mods of every stone socketed in the essence.
func socketMods(ess *EquippedEssence) []catalogs.Mod {
	var mods []catalogs.Mod
	for _, s := range ess.Sockets {
		if s != nil {
			mods = append(mods, s.Mods...)
		}
	}
	return mods
}

// chargeAbility reports whether any socketed stone grants CHARGE
// activation to this essence's abilities.
func chargeAbility(ess *EquippedEssence) bool {
	for _, s := range ess.Sockets {
		if s != nil && s.AbilityType == catalogs.AbilityCharge {
			return true
		}
	}
	return false
}

// inCone tests whether target lies in the half-space in front of the
// player's facing.
func inCone(p *Player, target voxel.Vec3) bool {
	d := target.Sub(p.Body.Pos)
	l := math.Sqrt(d.X*d.X + d.Z*d.Z)
	if l == 0 {
		return true
	}
	fx, fz := -math.Sin(p.In.Yaw), -math.Cos(p.In.Yaw)
	return (d.X/l*fx + d.Z/l*fz) > 0.3
}

func (r *Room) damageEnemy(p *Player, e *Enemy, amount int, source string, now uint64) {
	if amount <= 0 {
		return
	}
	e.Health = clamp(e.Health-amount, 0, e.MaxHealth)
	killed := e.Health == 0
	if r.combatLog != nil {
		_ = r.combatLog.WriteCombat(CombatEntry{
			Tick: now, Attacker: p.ID, Target: e.ID, Source: source, Damage: amount, Killed: killed,
		})
	}
	if killed {
		r.onEnemyKilled(p, e, now)
		return
	}
	r.repEnemies.Set(e.ID, e.Ctx, enemyView(e))
}

// onEnemyKilled notifies the killer's quest log with the enemy's type,
// rolls loot, and removes the enemy from replicated state.
func (r *Room) onEnemyKilled(p *Player, e *Enemy, now uint64) {
	if p.Quests.notifyKill(e.Def.ID) {
		r.sendTo(p.ID, protocol.QuestUpdateMsg{Type: protocol.TypeQuestUpdate, Quests: p.Quests.states()})
		r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
	}
	r.rollLoot(e, now)
	r.removeEnemy(e)
	r.broadcastCtx(e.Ctx, protocol.PlayVFXMsg{Type: protocol.TypePlayVFX, Kind: "enemy_death", Pos: pv(e.Pos)})
}

// rollLoot sometimes leaves an essence or awakening stone drop where
// the enemy died. Elites always drop.
func (r *Room) rollLoot(e *Enemy, now uint64) {
	if e.Tier != TierElite && r.rng.Intn(100) >= dropChancePercent {
		return
	}
	var pool []catalogs.ItemDef
	for _, it := range r.cats.Items.Defs {
		if it.Kind == catalogs.ItemEssence || it.Kind == catalogs.ItemAwakeningStone {
			pool = append(pool, it)
		}
	}
	if len(pool) == 0 {
		return
	}
	it := pool[r.rng.Intn(len(pool))]
	d := &Drop{
		ID:     r.newID("drop"),
		ItemID: it.ID,
		Name:   it.Name,
		Kind:   it.Kind,
		Ctx:    e.Ctx,
		Pos:    e.Pos,
	}
	r.drops[d.ID] = d
	r.dropCollection(d.Kind).Set(d.ID, d.Ctx, dropView(d))
}

func (r *Room) dropCollection(kind string) *collection {
	if kind == catalogs.ItemAwakeningStone {
		return r.repDrops[protocol.CollectionStones]
	}
	return r.repDrops[protocol.CollectionEssences]
}

// damagePlayer applies enemy contact damage. Death respawns the player
// at the town spawn with full resources; no item loss.
func (r *Room) damagePlayer(p *Player, amount int, source string, now uint64) {
	if amount <= 0 {
		return
	}
	p.Health = clamp(p.Health-amount, 0, p.MaxHealth)
	if r.combatLog != nil {
		_ = r.combatLog.WriteCombat(CombatEntry{
			Tick: now, Attacker: source, Target: p.ID, Source: source, Damage: amount, Killed: p.Health == 0,
		})
	}
	if p.Health == 0 {
		r.respawnPlayer(p)
	}
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

func (r *Room) respawnPlayer(p *Player) {
	if p.Ctx != CtxOverworld {
		r.exitDungeon(p)
	}
	spawnY := float64(r.gen.HeightAt(0, 0, 0) + 1)
	p.Body = physBodyAt(voxel.Vec3{X: 0.5, Y: spawnY, Z: 0.5})
	p.Health = p.MaxHealth
	p.Mana = p.MaxMana
	r.broadcastCtx(ctxGlobal, protocol.PlayVFXMsg{Type: protocol.TypePlayVFX, Kind: "player_respawn", Pos: pv(p.Body.Pos)})
}
