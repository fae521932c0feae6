package room

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/tuning"
	"voxelrealm.gg/internal/sim/voxel"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	cfg := Config{ID: "test", Tuning: tuning.Default()}
	r, err := New(cfg, cats, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	return r
}

// joinPlayer adds a player directly, bypassing the tick loop; the
// returned channel receives everything the room sends to the session.
func joinPlayer(t *testing.T, r *Room, name string) (*Player, chan []byte) {
	t.Helper()
	out := make(chan []byte, 1024)
	resp := r.addPlayer(JoinRequest{Name: name, Out: out})
	if resp.Code != "" {
		t.Fatalf("join %s rejected: %s", name, resp.Code)
	}
	p := r.players[resp.Welcome.PlayerID]
	if p == nil {
		t.Fatalf("player %s not registered", resp.Welcome.PlayerID)
	}
	return p, out
}

// drainFor scans a session channel for messages of one type.
func drainFor(out chan []byte, msgType string) [][]byte {
	var got [][]byte
	for {
		select {
		case raw := <-out:
			base, err := protocol.DecodeBase(raw)
			if err == nil && base.Type == msgType {
				got = append(got, raw)
			}
		default:
			return got
		}
	}
}

func giveItem(t *testing.T, r *Room, p *Player, itemID string) int {
	t.Helper()
	def, ok := r.cats.Items.Defs[itemID]
	if !ok {
		t.Fatalf("unknown item %s", itemID)
	}
	p.Inventory = append(p.Inventory, def)
	return len(p.Inventory) - 1
}

func equipEssence(t *testing.T, r *Room, p *Player, essenceID string) {
	t.Helper()
	idx := giveItem(t, r, p, essenceID)
	r.handleUseItem(p, idx, r.tick.Load())
	for _, ess := range p.Essences {
		if ess.Def.ID == essenceID {
			return
		}
	}
	t.Fatalf("essence %s not equipped", essenceID)
}

func TestMelee_FourHitsKillSlime(t *testing.T) {
	r := newTestRoom(t)
	p, out := joinPlayer(t, r, "arja")

	e := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 1}))
	if e == nil {
		t.Fatalf("spawn failed")
	}
	drainFor(out, protocol.TypeStateDiff)

	// Base melee 5 against 20 health: three hits leave it alive.
	for i := 0; i < 3; i++ {
		r.handleMelee(p, uint64(i))
		if _, alive := r.enemies[e.ID]; !alive {
			t.Fatalf("enemy died after %d hits", i+1)
		}
	}
	if e.Health != 5 {
		t.Fatalf("health after 3 hits = %d, want 5", e.Health)
	}

	r.handleMelee(p, 3)
	if _, alive := r.enemies[e.ID]; alive {
		t.Fatalf("enemy survived the fourth hit")
	}

	// The client mirror saw the removal.
	removed := false
	for _, raw := range drainFor(out, protocol.TypeStateDiff) {
		var d protocol.StateDiffMsg
		if json.Unmarshal(raw, &d) == nil &&
			d.Collection == protocol.CollectionEnemies && d.Op == protocol.OpRemove && d.ID == e.ID {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("no remove diff for the dead enemy")
	}
}

func TestMelee_HitsEveryEnemyInRange(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	near1 := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 1}))
	near2 := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{Z: -1}))
	far := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 50}))

	r.handleMelee(p, 0)
	if near1.Health != 15 || near2.Health != 15 {
		t.Fatalf("in-range enemies at %d/%d, want 15/15", near1.Health, near2.Health)
	}
	if far.Health != 20 {
		t.Fatalf("out-of-range enemy was hit: %d", far.Health)
	}
}

func TestUseAbility_CooldownRejectsSecondUse(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")
	equipEssence(t, r, p, "ESSENCE_FLAME")

	e := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 2}))

	// Slot 0 is FIREBALL: 10 mana, 12 damage.
	r.handleUseAbility(p, protocol.UseAbilityMsg{SlotIndex: 0}, 100)
	if p.Mana != p.MaxMana-10 {
		t.Fatalf("mana after first use = %d, want %d", p.Mana, p.MaxMana-10)
	}
	if e.Health != 8 {
		t.Fatalf("enemy health after first use = %d, want 8", e.Health)
	}

	// Immediate second use: still on cooldown, full no-op.
	r.handleUseAbility(p, protocol.UseAbilityMsg{SlotIndex: 0}, 101)
	if p.Mana != p.MaxMana-10 {
		t.Fatalf("cooldown use deducted mana: %d", p.Mana)
	}
	if e.Health != 8 {
		t.Fatalf("cooldown use dealt damage: %d", e.Health)
	}

	// After the cooldown expires it works again.
	ready := p.Cooldowns["FIREBALL"]
	r.handleUseAbility(p, protocol.UseAbilityMsg{SlotIndex: 0}, ready)
	if p.Mana != p.MaxMana-20 {
		t.Fatalf("post-cooldown use did not deduct: %d", p.Mana)
	}
}

func TestUseAbility_InsufficientManaIsNoop(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")
	equipEssence(t, r, p, "ESSENCE_FLAME")
	p.Mana = 3

	e := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 2}))
	r.handleUseAbility(p, protocol.UseAbilityMsg{SlotIndex: 0}, 0)
	if p.Mana != 3 || e.Health != 20 {
		t.Fatalf("broke ability fired: mana=%d health=%d", p.Mana, e.Health)
	}
}

func TestUseItem_EquipReplacesSlot(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	rusty := giveItem(t, r, p, "RUSTY_SWORD")
	r.handleUseItem(p, rusty, 0)
	if p.Equipment["mainHand"].ID != "RUSTY_SWORD" {
		t.Fatalf("rusty sword not equipped")
	}
	if len(p.Inventory) != 0 {
		t.Fatalf("inventory not emptied: %d", len(p.Inventory))
	}

	iron := giveItem(t, r, p, "IRON_SWORD")
	r.handleUseItem(p, iron, 0)
	if p.Equipment["mainHand"].ID != "IRON_SWORD" {
		t.Fatalf("iron sword not equipped")
	}
	if len(p.Inventory) != 1 || p.Inventory[0].ID != "RUSTY_SWORD" {
		t.Fatalf("replaced weapon did not return to inventory: %+v", p.Inventory)
	}
}

func TestUseItem_ConsumableHealsAndClamps(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	p.Health = 90
	idx := giveItem(t, r, p, "HEALTH_POTION") // heals 25
	r.handleUseItem(p, idx, 0)
	if p.Health != p.MaxHealth {
		t.Fatalf("health = %d, want clamped to %d", p.Health, p.MaxHealth)
	}
	if len(p.Inventory) != 0 {
		t.Fatalf("consumable not removed")
	}
}

func TestSocketStone_AllowListEnforced(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")
	equipEssence(t, r, p, "ESSENCE_FROST")

	// Ember stone requires the flame essence; frost is not on its list.
	idx := giveItem(t, r, p, "STONE_EMBER")
	r.handleSocketStone(p, protocol.SocketStoneMsg{
		EssenceID: "ESSENCE_FROST", EssenceSocketIndex: 0, StoneInventoryIndex: idx,
	})
	if p.Essences[0].Sockets[0] != nil {
		t.Fatalf("incompatible stone was socketed")
	}
	if len(p.Inventory) != 1 {
		t.Fatalf("stone consumed on rejected socket")
	}

	equipEssence(t, r, p, "ESSENCE_FLAME")
	r.handleSocketStone(p, protocol.SocketStoneMsg{
		EssenceID: "ESSENCE_FLAME", EssenceSocketIndex: 1, StoneInventoryIndex: 0,
	})
	var flame *EquippedEssence
	for _, ess := range p.Essences {
		if ess.Def.ID == "ESSENCE_FLAME" {
			flame = ess
		}
	}
	if flame == nil || flame.Sockets[1] == nil || flame.Sockets[1].ID != "STONE_EMBER" {
		t.Fatalf("compatible stone not socketed")
	}
	if len(p.Inventory) != 0 {
		t.Fatalf("stone not consumed on socket")
	}
}

func TestSocketStone_ModsApplyOnUse(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")
	equipEssence(t, r, p, "ESSENCE_FLAME")
	idx := giveItem(t, r, p, "STONE_EMBER")
	r.handleSocketStone(p, protocol.SocketStoneMsg{
		EssenceID: "ESSENCE_FLAME", EssenceSocketIndex: 0, StoneInventoryIndex: idx,
	})

	e := r.spawnEnemy("GOBLIN", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 2}))
	r.handleUseAbility(p, protocol.UseAbilityMsg{SlotIndex: 0}, 500)

	// Fireball 12 + ember flat damage 4.
	if e.Health != 30-16 {
		t.Fatalf("modded damage: health=%d, want 14", e.Health)
	}
	if until, ok := e.Statuses["BURNING"]; !ok || until != 500+180 {
		t.Fatalf("status mod not applied: %v %v", until, ok)
	}
}

func TestQuest_ProgressMonotonicAndCapped(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	def := r.cats.Quests.ByID["Q_SLIME_CULL"]
	p.Quests.accept(def)

	for i := 0; i < 9; i++ {
		p.Quests.notifyKill("SLIME")
	}
	st := p.Quests.states()
	if len(st) != 1 {
		t.Fatalf("quest count %d", len(st))
	}
	obj := st[0].Objectives[0]
	if obj.Progress != obj.TargetAmount {
		t.Fatalf("progress %d, want capped at %d", obj.Progress, obj.TargetAmount)
	}
	if !st[0].ReadyForTurnIn {
		t.Fatalf("completed quest not flagged ready")
	}

	// Unrelated kills never touch it.
	p.Quests.notifyKill("GOBLIN")
	if p.Quests.states()[0].Objectives[0].Progress != obj.TargetAmount {
		t.Fatalf("unrelated kill changed progress")
	}
}

func TestQuest_KillAdvancesThroughCombat(t *testing.T) {
	r := newTestRoom(t)
	p, out := joinPlayer(t, r, "arja")

	p.Quests.accept(r.cats.Quests.ByID["Q_SLIME_CULL"])
	e := r.spawnEnemy("SLIME", TierMinion, CtxOverworld, p.Body.Pos.Add(voxel.Vec3{X: 1}))
	drainFor(out, protocol.TypeQuestUpdate)

	r.damageEnemy(p, e, 20, "melee", 0)
	if got := p.Quests.states()[0].Objectives[0].Progress; got != 1 {
		t.Fatalf("kill progress %d, want 1", got)
	}
	if len(drainFor(out, protocol.TypeQuestUpdate)) == 0 {
		t.Fatalf("no quest_update pushed to killer")
	}
}

func TestStartQuest_ProximityGated(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	var giver *NPC
	for _, n := range r.npcs {
		if n.QuestID == "Q_SLIME_CULL" {
			giver = n
		}
	}
	if giver == nil {
		t.Fatalf("no quest giver seeded")
	}

	// Far away: rejected.
	p.Body.Pos = giver.Pos.Add(voxel.Vec3{X: 40})
	r.handleStartQuest(p, "Q_SLIME_CULL")
	if len(p.Quests.states()) != 0 {
		t.Fatalf("quest accepted out of range")
	}

	p.Body.Pos = giver.Pos.Add(voxel.Vec3{X: 1})
	r.handleStartQuest(p, "Q_SLIME_CULL")
	if len(p.Quests.states()) != 1 {
		t.Fatalf("quest not accepted in range")
	}

	// Re-accepting is a no-op.
	r.handleStartQuest(p, "Q_SLIME_CULL")
	if len(p.Quests.states()) != 1 {
		t.Fatalf("duplicate accept")
	}
}

func TestPortal_TransitionAndReturn(t *testing.T) {
	r := newTestRoom(t)
	p, out := joinPlayer(t, r, "arja")

	portal := &Portal{ID: "portal_t", Name: "Ruined Gate", Pos: p.Body.Pos.Add(voxel.Vec3{X: 1}), Color: "crimson"}
	r.portals[portal.ID] = portal
	overworldPos := p.Body.Pos

	r.handleEnterPortal(p, portal.ID, 0)
	if p.Ctx == CtxOverworld {
		t.Fatalf("player still in overworld")
	}
	msgs := drainFor(out, protocol.TypeLoadDungeon)
	if len(msgs) != 1 {
		t.Fatalf("load_dungeon messages: %d", len(msgs))
	}
	var ld protocol.LoadDungeonMsg
	if err := json.Unmarshal(msgs[0], &ld); err != nil {
		t.Fatalf("decode load_dungeon: %v", err)
	}
	if ld.Blocks == "" || ld.Extents[0] == 0 {
		t.Fatalf("empty dungeon payload: %+v", ld.Extents)
	}
	if len(r.dungeons) != 1 {
		t.Fatalf("instance count %d", len(r.dungeons))
	}

	// Dungeon enemies exist, are scoped to the instance, and stand on
	// the floor rather than the sealed ceiling layer.
	inst := r.dungeons[p.Ctx]
	inDungeon := 0
	for _, e := range r.enemies {
		if e.Ctx != p.Ctx {
			continue
		}
		inDungeon++
		if e.Pos.Y >= float64(inst.Grid.EY-1) {
			t.Fatalf("enemy %s spawned at y=%v, outside the interior", e.ID, e.Pos.Y)
		}
	}
	if inDungeon == 0 {
		t.Fatalf("dungeon not populated")
	}

	r.exitDungeon(p)
	if p.Ctx != CtxOverworld {
		t.Fatalf("exit did not restore overworld context")
	}
	if p.Body.Pos != overworldPos {
		t.Fatalf("exit pos %v, want %v", p.Body.Pos, overworldPos)
	}
	if len(drainFor(out, protocol.TypeUnloadDungeon)) != 1 {
		t.Fatalf("no unload_dungeon")
	}
	// Last player out collapses the instance and its enemies.
	if len(r.dungeons) != 0 {
		t.Fatalf("instance leaked")
	}
	for _, e := range r.enemies {
		if e.Ctx != CtxOverworld {
			t.Fatalf("dungeon enemy leaked: %s", e.ID)
		}
	}
}

func TestPortal_EntryProximityGated(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	portal := &Portal{ID: "portal_t", Name: "Ruined Gate", Pos: p.Body.Pos.Add(voxel.Vec3{X: 30}), Color: "crimson"}
	r.portals[portal.ID] = portal

	r.handleEnterPortal(p, portal.ID, 0)
	if p.Ctx != CtxOverworld {
		t.Fatalf("entered portal from out of range")
	}
}

func TestDamage_ClampsAndRespawns(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	r.damagePlayer(p, 10000, "SLIME", 0)
	if p.Health < 0 {
		t.Fatalf("health went negative: %d", p.Health)
	}
	// Death respawns at town with full resources.
	if p.Health != p.MaxHealth || p.Mana != p.MaxMana {
		t.Fatalf("respawn resources %d/%d", p.Health, p.Mana)
	}
	if p.Ctx != CtxOverworld {
		t.Fatalf("respawn context %s", p.Ctx)
	}
}

func TestJoin_NameTakenAndCapacity(t *testing.T) {
	r := newTestRoom(t)
	joinPlayer(t, r, "arja")

	resp := r.addPlayer(JoinRequest{Name: "arja", Out: make(chan []byte, 16)})
	if resp.Code != protocol.ErrNameTaken {
		t.Fatalf("duplicate name code %q", resp.Code)
	}

	for i := 0; i < roomCapacity-1; i++ {
		out := make(chan []byte, 1024)
		if c := r.addPlayer(JoinRequest{Name: "p" + string(rune('a'+i)), Out: out}).Code; c != "" {
			t.Fatalf("fill join %d rejected: %s", i, c)
		}
	}
	resp = r.addPlayer(JoinRequest{Name: "overflow", Out: make(chan []byte, 16)})
	if resp.Code != protocol.ErrRoomFull {
		t.Fatalf("full room code %q", resp.Code)
	}
}

func TestElite_HealthScaled(t *testing.T) {
	r := newTestRoom(t)
	e := r.spawnEnemy("SLIME", TierElite, CtxOverworld, voxel.Vec3{X: 30, Y: 11, Z: 30})
	want := 20 * r.cfg.Tuning.Enemies.EliteHealthScale
	if e.MaxHealth != want {
		t.Fatalf("elite health %d, want %d", e.MaxHealth, want)
	}
}

func TestEnemyContext_DiffsScopedToWorld(t *testing.T) {
	r := newTestRoom(t)
	p1, out1 := joinPlayer(t, r, "arja")
	_, out2 := joinPlayer(t, r, "berk")

	portal := &Portal{ID: "portal_t", Name: "Gate", Pos: p1.Body.Pos.Add(voxel.Vec3{X: 1}), Color: "azure"}
	r.portals[portal.ID] = portal
	r.handleEnterPortal(p1, portal.ID, 0)
	drainFor(out1, protocol.TypeStateDiff)
	drainFor(out2, protocol.TypeStateDiff)

	r.spawnEnemy("WOLF", TierMinion, p1.Ctx, voxel.Vec3{X: 64, Y: 8, Z: 64})

	if len(drainFor(out1, protocol.TypeStateDiff)) == 0 {
		t.Fatalf("dungeon occupant missed instance spawn")
	}
	for _, raw := range drainFor(out2, protocol.TypeStateDiff) {
		var d protocol.StateDiffMsg
		if json.Unmarshal(raw, &d) == nil && d.Collection == protocol.CollectionEnemies {
			t.Fatalf("overworld session saw dungeon enemy diff")
		}
	}
}

func TestStep_StagedJoinInputLeave(t *testing.T) {
	r := newTestRoom(t)

	out := make(chan []byte, 1024)
	respCh := make(chan JoinResponse, 1)
	r.step([]JoinRequest{{Name: "arja", Out: out, Resp: respCh}}, nil, nil)
	resp := <-respCh
	if resp.Code != "" {
		t.Fatalf("staged join rejected: %s", resp.Code)
	}
	p := r.players[resp.Welcome.PlayerID]
	if p == nil {
		t.Fatalf("staged join did not register")
	}
	if r.CurrentTick() != 1 {
		t.Fatalf("tick after one step = %d", r.CurrentTick())
	}

	raw, _ := json.Marshal(protocol.InputMsg{Type: protocol.TypeInput, Keys: protocol.InputKeys{Forward: true, Yaw: 1.2}})
	r.step(nil, nil, []Envelope{{PlayerID: p.ID, Type: protocol.TypeInput, Raw: raw}})
	if !p.In.Forward || p.In.Yaw != 1.2 {
		t.Fatalf("staged input not applied: %+v", p.In)
	}

	r.step(nil, []string{p.ID}, nil)
	if _, ok := r.players[p.ID]; ok {
		t.Fatalf("staged leave did not remove player")
	}
	if _, ok := r.sessions[p.ID]; ok {
		t.Fatalf("session leaked after leave")
	}
}

func TestCollect_DropPickup(t *testing.T) {
	r := newTestRoom(t)
	p, _ := joinPlayer(t, r, "arja")

	d := &Drop{
		ID: "drop_t", ItemID: "ESSENCE_FLAME", Name: "Flame Essence",
		Kind: catalogs.ItemEssence, Ctx: CtxOverworld, Pos: p.Body.Pos.Add(voxel.Vec3{X: 1}),
	}
	r.drops[d.ID] = d
	r.dropCollection(d.Kind).Set(d.ID, d.Ctx, dropView(d))

	r.handleCollectDrop(p, d.ID, catalogs.ItemEssence)
	if len(p.Inventory) != 1 || p.Inventory[0].ID != "ESSENCE_FLAME" {
		t.Fatalf("drop not collected: %+v", p.Inventory)
	}
	if _, still := r.drops[d.ID]; still {
		t.Fatalf("drop not removed from world")
	}

	// Collecting twice is a no-op.
	r.handleCollectDrop(p, d.ID, catalogs.ItemEssence)
	if len(p.Inventory) != 1 {
		t.Fatalf("double collect duplicated the item")
	}
}
