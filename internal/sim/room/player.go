package room

import (
	"sort"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/phys"
	"voxelrealm.gg/internal/sim/voxel"
)

const (
	roomCapacity = 16

	basePlayerHealth = 100
	basePlayerMana   = 100

	// One point of mana back every half second at 60 Hz.
	manaRegenTicks = 30

	essenceSockets = 3
)

// Player is the authoritative server-side character. The replicated
// view is a projection built by view(); full item and essence
// definitions never leave the room.
type Player struct {
	ID   string
	Name string
	Ctx  Context

	Body phys.Body
	In   phys.Input

	Health    int
	MaxHealth int
	Mana      int
	MaxMana   int

	Equipment map[string]catalogs.ItemDef // slot -> item
	Inventory []catalogs.ItemDef
	Essences  []*EquippedEssence
	Cooldowns map[string]uint64 // ability id -> ready tick
	Buffs     []Buff
	Quests    *QuestLog

	// Overworld position to restore when leaving a dungeon.
	returnPos voxel.Vec3

	lastChunk voxel.ChunkKey
	streamed  bool
	regenAcc  int
}

// EquippedEssence is an essence the player carries plus its socketed
// awakening stones. Sockets are fixed-size; nil means empty.
type EquippedEssence struct {
	Def     catalogs.EssenceDef
	Sockets [essenceSockets]*catalogs.StoneDef
}

// Buff is a temporary stat modifier applied by an awakening stone mod.
type Buff struct {
	Stat  string
	Delta int
	Until uint64
}

// statBonus sums equipment bonuses and live buffs for one stat.
func (p *Player) statBonus(stat string, now uint64) int {
	total := 0
	for _, it := range p.Equipment {
		total += it.Bonuses[stat]
	}
	for _, b := range p.Buffs {
		if b.Stat == stat && b.Until > now {
			total += b.Delta
		}
	}
	return total
}

// abilityAt resolves a flat slot index across the player's equipped
// essences in order: essence 0 abilities first, then essence 1, and so
// on.
func (p *Player) abilityAt(slot int) (*EquippedEssence, catalogs.AbilityDef, bool) {
	if slot < 0 {
		return nil, catalogs.AbilityDef{}, false
	}
	for _, ess := range p.Essences {
		if slot < len(ess.Def.Abilities) {
			return ess, ess.Def.Abilities[slot], true
		}
		slot -= len(ess.Def.Abilities)
	}
	return nil, catalogs.AbilityDef{}, false
}

func (r *Room) addPlayer(req JoinRequest) JoinResponse {
	if len(r.players) >= roomCapacity {
		return JoinResponse{Code: protocol.ErrRoomFull}
	}
	for _, p := range r.players {
		if p.Name == req.Name {
			return JoinResponse{Code: protocol.ErrNameTaken}
		}
	}

	id := r.newID("player")
	p := &Player{
		ID:        id,
		Name:      req.Name,
		Ctx:       CtxOverworld,
		Health:    basePlayerHealth,
		MaxHealth: basePlayerHealth,
		Mana:      basePlayerMana,
		MaxMana:   basePlayerMana,
		Equipment: map[string]catalogs.ItemDef{},
		Cooldowns: map[string]uint64{},
		Quests:    newQuestLog(),
	}
	spawnY := float64(r.gen.HeightAt(0, 0, 0) + 1)
	p.Body.Pos = voxel.Vec3{X: 0.5, Y: spawnY, Z: 0.5}

	if r.chars != nil {
		if rec, ok, err := r.chars.Load(req.Name); err != nil {
			if r.log != nil {
				r.log.Printf("room %s: load character %q: %v", r.cfg.ID, req.Name, err)
			}
		} else if ok {
			r.restoreCharacter(p, rec)
		}
	}

	r.players[id] = p
	r.sessions[id] = &session{Out: req.Out, Ctx: CtxOverworld}
	r.repPlayers.Set(id, ctxGlobal, r.playerView(p))

	// Seed the new client's mirror with everything it can see.
	r.repPlayers.mirrorTo(req.Out, CtxOverworld)
	r.repEnemies.mirrorTo(req.Out, CtxOverworld)
	r.repNPCs.mirrorTo(req.Out, CtxOverworld)
	r.repPortals.mirrorTo(req.Out, CtxOverworld)
	for _, c := range r.repDrops {
		c.mirrorTo(req.Out, CtxOverworld)
	}

	return JoinResponse{Welcome: protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        id,
		WorldParams: protocol.WorldParams{
			TickRateHz: r.cfg.Tuning.TickRateHz,
			ChunkEdge:  r.cfg.Tuning.ChunkEdge,
			Seed:       r.cfg.Tuning.Seed,
		},
		CatalogDigests: map[string]string{
			"blocks":   r.cats.Blocks.Digest,
			"items":    r.cats.Items.Digest,
			"essences": r.cats.Essences.Digest,
			"stones":   r.cats.Stones.Digest,
			"enemies":  r.cats.Enemies.Digest,
			"quests":   r.cats.Quests.Digest,
		},
	}}
}

func (r *Room) removePlayer(p *Player) {
	r.saveCharacter(p)
	if p.Ctx != CtxOverworld {
		r.maybeCollapseDungeon(p.Ctx, p.ID)
	}
	delete(r.players, p.ID)
	delete(r.sessions, p.ID)
	r.repPlayers.Remove(p.ID)
}

// restoreCharacter rebuilds a player's persistent loadout from a store
// record, dropping references to items that left the catalogs.
func (r *Room) restoreCharacter(p *Player, rec CharacterRecord) {
	for slot, itemID := range rec.Equipment {
		if def, ok := r.cats.Items.Defs[itemID]; ok {
			p.Equipment[slot] = def
		}
	}
	for _, itemID := range rec.Inventory {
		if def, ok := r.cats.Items.Defs[itemID]; ok {
			p.Inventory = append(p.Inventory, def)
		}
	}
	for _, er := range rec.Essences {
		def, ok := r.cats.Essences.Defs[er.ID]
		if !ok {
			continue
		}
		ess := &EquippedEssence{Def: def}
		for i, stoneID := range er.Sockets {
			if i >= essenceSockets || stoneID == "" {
				continue
			}
			if sd, ok := r.cats.Stones.Defs[stoneID]; ok {
				ess.Sockets[i] = &sd
			}
		}
		p.Essences = append(p.Essences, ess)
	}
	for _, qr := range rec.Quests {
		if def, ok := r.cats.Quests.ByID[qr.ID]; ok {
			p.Quests.restore(def, qr.Progress)
		}
	}
}

func (r *Room) saveCharacter(p *Player) {
	if r.chars == nil {
		return
	}
	rec := CharacterRecord{Name: p.Name, Equipment: map[string]string{}}
	for slot, it := range p.Equipment {
		rec.Equipment[slot] = it.ID
	}
	for _, it := range p.Inventory {
		rec.Inventory = append(rec.Inventory, it.ID)
	}
	for _, ess := range p.Essences {
		er := EssenceRecord{ID: ess.Def.ID, Sockets: make([]string, essenceSockets)}
		for i, s := range ess.Sockets {
			if s != nil {
				er.Sockets[i] = s.ID
			}
		}
		rec.Essences = append(rec.Essences, er)
	}
	rec.Quests = p.Quests.records()
	if err := r.chars.Save(rec); err != nil && r.log != nil {
		r.log.Printf("room %s: save character %q: %v", r.cfg.ID, p.Name, err)
	}
}

// systemPlayerPhysics integrates every player's held input against
// their world and regenerates mana.
func (r *Room) systemPlayerPhysics(now uint64, dt float64) {
	for _, p := range r.players {
		solid := r.solidFuncFor(p.Ctx)
		phys.Step(&p.Body, p.In, solid, r.cfg.Tuning.Physics, dt)

		p.regenAcc++
		if p.regenAcc >= manaRegenTicks {
			p.regenAcc = 0
			p.Mana = clamp(p.Mana+1, 0, p.MaxMana)
		}

		r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
	}
}

// systemStatusAndBuffs expires finished buffs so stat queries stay
// cheap and the replicated view stays honest.
func (r *Room) systemStatusAndBuffs(now uint64) {
	for _, p := range r.players {
		live := p.Buffs[:0]
		for _, b := range p.Buffs {
			if b.Until > now {
				live = append(live, b)
			}
		}
		p.Buffs = live
	}
	for _, e := range r.enemies {
		for st, until := range e.Statuses {
			if until <= now {
				delete(e.Statuses, st)
			}
		}
	}
}

func (r *Room) playerView(p *Player) protocol.PlayerState {
	eq := map[string]protocol.ItemRef{}
	for slot, it := range p.Equipment {
		eq[slot] = protocol.ItemRef{ID: it.ID, Name: it.Name}
	}
	inv := make([]protocol.ItemRef, len(p.Inventory))
	for i, it := range p.Inventory {
		inv[i] = protocol.ItemRef{ID: it.ID, Name: it.Name}
	}
	var cds map[string]uint64
	if len(p.Cooldowns) > 0 {
		cds = make(map[string]uint64, len(p.Cooldowns))
		for k, v := range p.Cooldowns {
			cds[k] = v
		}
	}
	return protocol.PlayerState{
		ID:        p.ID,
		Name:      p.Name,
		Pos:       pv(p.Body.Pos),
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Mana:      p.Mana,
		MaxMana:   p.MaxMana,
		Equipment: eq,
		Inventory: inv,
		Quests:    p.Quests.states(),
		Cooldowns: cds,
	}
}

// nearestEnemies returns the enemies in p's world ordered by distance
// from p, nearest first.
func (r *Room) nearestEnemies(p *Player) []*Enemy {
	var out []*Enemy
	for _, e := range r.enemies {
		if e.Ctx == p.Ctx {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pos.DistSq(p.Body.Pos) < out[j].Pos.DistSq(p.Body.Pos)
	})
	return out
}

func pv(v voxel.Vec3) protocol.Vec3 { return protocol.Vec3{X: v.X, Y: v.Y, Z: v.Z} }

func physBodyAt(pos voxel.Vec3) phys.Body { return phys.Body{Pos: pos} }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
