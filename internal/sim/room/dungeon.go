package room

import (
	"encoding/base64"
	"math/rand"

	"github.com/klauspost/compress/zstd"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/terrain"
	"voxelrealm.gg/internal/sim/voxel"
)

const dungeonEnemyCount = 8

// DungeonInstance is one ephemeral dungeon world. It exists while at
// least one player is inside and is torn down when the last one leaves.
type DungeonInstance struct {
	Ctx     Context
	Theme   string
	Grid    *voxel.Grid
	Spawn   voxel.Vec3
	Players map[string]struct{}

	encoded string // zstd+base64 block payload, built once
}

// handleEnterPortal moves the player into a dungeon instance keyed by
// the portal, creating and populating it on first entry.
func (r *Room) handleEnterPortal(p *Player, portalID string, now uint64) {
	portal := r.portals[portalID]
	if portal == nil || p.Ctx != CtxOverworld {
		return
	}
	reach := r.cfg.Tuning.Combat.PortalRadius
	if portal.Pos.DistSq(p.Body.Pos) > reach*reach {
		return
	}

	ctx := Context("dungeon:" + portal.ID)
	inst := r.dungeons[ctx]
	if inst == nil {
		inst = r.createDungeon(ctx, portal)
		if inst == nil {
			return
		}
	}

	p.returnPos = p.Body.Pos
	p.Ctx = ctx
	p.Body = physBodyAt(inst.Spawn)
	inst.Players[p.ID] = struct{}{}
	r.sessions[p.ID].Ctx = ctx

	r.sendTo(p.ID, protocol.LoadDungeonMsg{
		Type:    protocol.TypeLoadDungeon,
		Blocks:  inst.encoded,
		Extents: [3]int{inst.Grid.EX, inst.Grid.EY, inst.Grid.EZ},
		Spawn:   pv(inst.Spawn),
		Theme:   inst.Theme,
	})
	// Re-seed the mirror: the client now sees the instance's enemies
	// instead of the overworld's.
	r.resyncContextCollections(p)
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

func (r *Room) createDungeon(ctx Context, portal *Portal) *DungeonInstance {
	seed := r.cfg.Tuning.Seed ^ int64(voxel.Hash2(r.cfg.Tuning.Seed, len(portal.ID), len(r.dungeons)))
	theme := portal.Color
	grid := r.gen.GenerateDungeon(seed, theme)
	solid := func(b voxel.Block) bool { return r.cats.Blocks.SolidByIndex(uint8(b)) }
	spawn := terrain.DungeonSpawn(grid, solid)

	encoded, err := encodeBlocks(grid.Blocks)
	if err != nil {
		if r.log != nil {
			r.log.Printf("room %s: encode dungeon %s: %v", r.cfg.ID, ctx, err)
		}
		return nil
	}

	inst := &DungeonInstance{
		Ctx:     ctx,
		Theme:   theme,
		Grid:    grid,
		Spawn:   spawn,
		Players: map[string]struct{}{},
		encoded: encoded,
	}
	r.dungeons[ctx] = inst
	r.populateDungeon(inst, seed)
	return inst
}

// populateDungeon scatters enemies across the instance floor with a
// deterministic per-instance source, elites included.
func (r *Room) populateDungeon(inst *DungeonInstance, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	solid := func(b voxel.Block) bool { return r.cats.Blocks.SolidByIndex(uint8(b)) }
	types := r.cats.Enemies.Types
	if len(types) == 0 {
		return
	}
	for i := 0; i < dungeonEnemyCount; i++ {
		x := 8 + rng.Intn(inst.Grid.EX-16)
		z := 8 + rng.Intn(inst.Grid.EZ-16)
		// Start below the ceiling layer so the scan lands on the floor.
		pos, ok := terrain.GroundScan(inst.Grid, solid, x, z, inst.Grid.EY-2)
		if !ok {
			continue
		}
		if pos.Sub(inst.Spawn).Len() < 10 {
			continue
		}
		tier := TierMinion
		if rng.Intn(100) < r.cfg.Tuning.Enemies.EliteChancePercent {
			tier = TierElite
		}
		r.spawnEnemy(types[rng.Intn(len(types))], tier, inst.Ctx, pos)
	}
}

// exitDungeon returns the player to their saved overworld position and
// collapses the instance if it is now empty.
func (r *Room) exitDungeon(p *Player) {
	if p.Ctx == CtxOverworld {
		return
	}
	ctx := p.Ctx
	p.Ctx = CtxOverworld
	p.Body = physBodyAt(p.returnPos)
	r.sessions[p.ID].Ctx = CtxOverworld

	r.sendTo(p.ID, protocol.UnloadDungeonMsg{Type: protocol.TypeUnloadDungeon})
	r.resyncContextCollections(p)
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))

	r.maybeCollapseDungeon(ctx, p.ID)
}

// maybeCollapseDungeon removes leaverID from the instance and tears the
// instance down, enemies and drops included, once no player remains.
func (r *Room) maybeCollapseDungeon(ctx Context, leaverID string) {
	inst := r.dungeons[ctx]
	if inst == nil {
		return
	}
	delete(inst.Players, leaverID)
	if len(inst.Players) > 0 {
		return
	}
	for id, e := range r.enemies {
		if e.Ctx == ctx {
			delete(r.enemies, id)
			r.repEnemies.Remove(id)
		}
	}
	for id, d := range r.drops {
		if d.Ctx == ctx {
			delete(r.drops, id)
			r.dropCollection(d.Kind).Remove(id)
		}
	}
	delete(r.dungeons, ctx)
}

// resyncContextCollections replays the ctx-scoped collections for a
// player whose world just changed: removes for what they can no longer
// see, adds for what they now can.
func (r *Room) resyncContextCollections(p *Player) {
	s := r.sessions[p.ID]
	if s == nil {
		return
	}
	cols := []*collection{r.repEnemies}
	for _, c := range r.repDrops {
		cols = append(cols, c)
	}
	for _, c := range cols {
		for id, item := range c.items {
			if item.ctx == ctxGlobal {
				continue
			}
			if item.ctx == p.Ctx {
				r.sendRaw(s.Out, protocol.StateDiffMsg{
					Type: protocol.TypeStateDiff, Tick: r.tick.Load(),
					Collection: c.name, Op: protocol.OpAdd, ID: id, Data: item.view,
				})
			} else {
				r.sendRaw(s.Out, protocol.StateDiffMsg{
					Type: protocol.TypeStateDiff, Tick: r.tick.Load(),
					Collection: c.name, Op: protocol.OpRemove, ID: id,
				})
			}
		}
	}
}

// encodeBlocks compresses a raw block array for the wire.
func encodeBlocks(blocks []voxel.Block) (string, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", err
	}
	defer enc.Close()
	raw := make([]byte, len(blocks))
	for i, b := range blocks {
		raw[i] = byte(b)
	}
	return base64.StdEncoding.EncodeToString(enc.EncodeAll(raw, nil)), nil
}
