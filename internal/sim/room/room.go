package room

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
	"voxelrealm.gg/internal/sim/mesh"
	"voxelrealm.gg/internal/sim/stream"
	"voxelrealm.gg/internal/sim/terrain"
	"voxelrealm.gg/internal/sim/tuning"
	"voxelrealm.gg/internal/sim/voxel"
)

// Context identifies which voxel world an entity currently lives in:
// the shared overworld or one ephemeral dungeon instance.
type Context string

const CtxOverworld Context = "overworld"

// Characters also save on leave; this bounds loss on a crash.
const charSaveIntervalTicks = 1800

type Config struct {
	ID     string
	Tuning tuning.Tuning
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Code    string // protocol error code on rejection
}

// Envelope is one raw client message attributed to a session. The
// transport has already schema-validated it.
type Envelope struct {
	PlayerID string
	Type     string
	Raw      []byte
}

// TickLogger receives one structured record per tick.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// CombatLogger receives one record per damage application.
type CombatLogger interface {
	WriteCombat(entry CombatEntry) error
}

type TickLogEntry struct {
	Tick    uint64   `json:"tick"`
	Digest  string   `json:"digest"`
	Joins   []string `json:"joins,omitempty"`
	Leaves  []string `json:"leaves,omitempty"`
	Actions int      `json:"actions,omitempty"`
	Players int      `json:"players"`
	Enemies int      `json:"enemies"`
}

type CombatEntry struct {
	Tick     uint64 `json:"tick"`
	Attacker string `json:"attacker"`
	Target   string `json:"target"`
	Source   string `json:"source"` // "melee", ability id, enemy type, status
	Damage   int    `json:"damage"`
	Killed   bool   `json:"killed,omitempty"`
}

// CharacterStore persists player characters across sessions.
type CharacterStore interface {
	Load(name string) (CharacterRecord, bool, error)
	Save(rec CharacterRecord) error
}

type CharacterRecord struct {
	Name      string            `json:"name"`
	Equipment map[string]string `json:"equipment"` // slot -> item id
	Inventory []string          `json:"inventory"` // item ids, ordered
	Essences  []EssenceRecord   `json:"essences"`
	Quests    []QuestRecord     `json:"quests"`
}

type EssenceRecord struct {
	ID      string   `json:"id"`
	Sockets []string `json:"sockets"` // stone ids, "" for empty
}

type QuestRecord struct {
	ID       string `json:"id"`
	Progress []int  `json:"progress"`
}

// Room is the authoritative game room: the sole writer of all gameplay
// state. A fixed-rate tick on a single goroutine drives every
// mutation; inbound messages are staged and applied at tick start.
type Room struct {
	cfg  Config
	cats *catalogs.Catalogs
	gen  *terrain.Generator
	pal  terrain.Palette
	safe terrain.SafeZone
	log  *log.Logger

	chunks *stream.Scheduler

	tick atomic.Uint64
	rng  *rand.Rand

	players  map[string]*Player
	enemies  map[string]*Enemy
	npcs     map[string]*NPC
	portals  map[string]*Portal
	drops    map[string]*Drop
	dungeons map[Context]*DungeonInstance

	sessions map[string]*session

	repPlayers *collection
	repEnemies *collection
	repNPCs    *collection
	repPortals *collection
	repDrops   map[string]*collection // collection name -> drops split

	inbox    chan Envelope
	joinCh   chan JoinRequest
	leaveCh  chan string
	stop     chan struct{}
	portalCh chan []terrain.PortalSpawn

	nextEntity atomic.Uint64

	spawnTimer int

	tickLog   TickLogger
	combatLog CombatLogger
	chars     CharacterStore

	lastViewers int // overworld viewer chunks announced last tick
}

type session struct {
	Out chan []byte
	Ctx Context
}

type NPC struct {
	ID       string
	Name     string
	Pos      voxel.Vec3
	Dialogue string
	QuestID  string
}

type Portal struct {
	ID    string
	Name  string
	Pos   voxel.Vec3
	Color string
}

// Drop is a collectible world item (essence or awakening stone).
type Drop struct {
	ID     string
	ItemID string
	Name   string
	Kind   string // catalogs.ItemEssence or ItemAwakeningStone
	Ctx    Context
	Pos    voxel.Vec3
}

func New(cfg Config, cats *catalogs.Catalogs, logger *log.Logger) (*Room, error) {
	pal, err := terrain.NewPalette(cats.Blocks)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", cfg.ID, err)
	}
	gen := terrain.NewGenerator(cfg.Tuning.Seed, cfg.Tuning.ChunkEdge, pal)

	r := &Room{
		cfg:      cfg,
		cats:     cats,
		gen:      gen,
		pal:      pal,
		safe:     gen.SafeZone(),
		log:      logger,
		rng:      rand.New(rand.NewSource(cfg.Tuning.Seed)),
		players:  map[string]*Player{},
		enemies:  map[string]*Enemy{},
		npcs:     map[string]*NPC{},
		portals:  map[string]*Portal{},
		drops:    map[string]*Drop{},
		dungeons: map[Context]*DungeonInstance{},
		sessions: map[string]*session{},
		inbox:    make(chan Envelope, 1024),
		joinCh:   make(chan JoinRequest, 64),
		leaveCh:  make(chan string, 64),
		stop:     make(chan struct{}),
		portalCh: make(chan []terrain.PortalSpawn, 64),
	}
	r.initCollections()

	scfg := stream.Config{
		ChunkEdge:    cfg.Tuning.ChunkEdge,
		ViewRadius:   cfg.Tuning.ViewRadiusChunks,
		RetainRadius: cfg.Tuning.RetainRadiusChunks,
		LODBand:      cfg.Tuning.LODBandChunks,
		MaxLOD:       cfg.Tuning.MaxLOD,
		Workers:      cfg.Tuning.StreamWorkers,
	}
	r.chunks = stream.NewScheduler(scfg, func(cx, cz, lod int) stream.Payload {
		grid, portals := gen.Generate(cx, cz, lod)
		return stream.Payload{
			Grid:    grid,
			Mesh:    mesh.Build(grid, cats.Blocks, mesh.DefaultAtlas),
			Portals: portals,
		}
	}, logger)
	// Portal spawns surface on worker goroutines; pipe them to the tick
	// loop for registration.
	r.chunks.SetReadyFunc(func(lc *stream.LoadedChunk) {
		if len(lc.Portals) == 0 {
			return
		}
		select {
		case r.portalCh <- lc.Portals:
		default:
		}
	})

	if cats.QuestsErr != nil && logger != nil {
		logger.Printf("room %s: quest table unavailable, start_quest disabled: %v", cfg.ID, cats.QuestsErr)
	}

	r.seedTownNPCs()
	return r, nil
}

func (r *Room) SetTickLogger(l TickLogger)         { r.tickLog = l }
func (r *Room) SetCombatLogger(l CombatLogger)     { r.combatLog = l }
func (r *Room) SetCharacterStore(s CharacterStore) { r.chars = s }

func (r *Room) Inbox() chan<- Envelope    { return r.inbox }
func (r *Room) Join() chan<- JoinRequest  { return r.joinCh }
func (r *Room) Leave() chan<- string      { return r.leaveCh }
func (r *Room) CurrentTick() uint64       { return r.tick.Load() }
func (r *Room) Chunks() *stream.Scheduler { return r.chunks }

// seedTownNPCs places the fixed town NPCs. Quest assignment degrades
// with the quest table: an NPC whose quest is missing just talks.
func (r *Room) seedTownNPCs() {
	add := func(name, dialogue, questID string, x, z float64) {
		if _, ok := r.cats.Quests.ByID[questID]; !ok {
			questID = ""
		}
		id := r.newID("npc")
		n := &NPC{
			ID:       id,
			Name:     name,
			Pos:      voxel.Vec3{X: x, Y: 11, Z: z},
			Dialogue: dialogue,
			QuestID:  questID,
		}
		r.npcs[id] = n
		r.repNPCs.Set(id, ctxGlobal, npcView(n))
	}
	add("Captain Brandt", "The outskirts crawl with slimes. Care to thin them out?", "Q_SLIME_CULL", 7.5, 3.5)
	add("Elder Maren", "Goblins and their wolves raid our carts at night.", "Q_GOBLIN_TROUBLE", -8.5, 3.5)
	add("Gravekeeper Ossum", "The dead do not rest. Someone must see to that.", "Q_BONE_COLLECTOR", 3.5, -7.5)
}

func (r *Room) newID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, r.nextEntity.Add(1))
}

// Run drives the fixed-rate tick until ctx is done. Inbound channel
// traffic is staged and applied at the next tick boundary, so room
// state is only ever touched from this goroutine.
func (r *Room) Run(ctx context.Context) error {
	r.chunks.Start()
	defer r.chunks.Close()

	interval := time.Second / time.Duration(r.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingMsgs []Envelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.joinCh:
			pendingJoins = append(pendingJoins, req)
		case id := <-r.leaveCh:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-r.inbox:
			pendingMsgs = append(pendingMsgs, env)
		case <-ticker.C:
			r.step(pendingJoins, pendingLeaves, pendingMsgs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingMsgs = pendingMsgs[:0]
		}
	}
}

func (r *Room) Stop() { close(r.stop) }

// step is one simulation tick. Order matters: joins/leaves, staged
// messages (validated against tick-start state, applied in arrival
// order), then the systems.
func (r *Room) step(joins []JoinRequest, leaves []string, msgs []Envelope) {
	now := r.tick.Load()
	dt := 1.0 / float64(r.cfg.Tuning.TickRateHz)

	r.drainPortalSpawns(now)

	var joined, left []string
	for _, id := range leaves {
		if p := r.players[id]; p != nil {
			r.removePlayer(p)
			left = append(left, id)
		}
	}
	for _, req := range joins {
		resp := r.addPlayer(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
		if resp.Code == "" {
			joined = append(joined, resp.Welcome.PlayerID)
		}
	}

	for _, env := range msgs {
		p := r.players[env.PlayerID]
		if p == nil {
			continue
		}
		r.applyMessage(p, env, now)
	}

	r.systemPlayerPhysics(now, dt)
	r.systemEnemies(now, dt)
	r.systemSpawner(now)
	r.systemStatusAndBuffs(now)
	r.updateStreaming()

	if r.chars != nil && now > 0 && now%charSaveIntervalTicks == 0 {
		for _, p := range r.players {
			r.saveCharacter(p)
		}
	}

	if r.tickLog != nil {
		_ = r.tickLog.WriteTick(TickLogEntry{
			Tick:    now,
			Digest:  r.stateDigest(),
			Joins:   joined,
			Leaves:  left,
			Actions: len(msgs),
			Players: len(r.players),
			Enemies: len(r.enemies),
		})
	}

	r.tick.Add(1)
}

// stateDigest is a cheap order-independent fingerprint of the live
// entity state, for replay comparison across runs.
func (r *Room) stateDigest() string {
	ids := make([]string, 0, len(r.players)+len(r.enemies))
	for id := range r.players {
		ids = append(ids, id)
	}
	for id := range r.enemies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := fnv.New64a()
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			fmt.Fprintf(h, "p|%s|%.3f|%.3f|%.3f|%d|%d\n", id, p.Body.Pos.X, p.Body.Pos.Y, p.Body.Pos.Z, p.Health, p.Mana)
			continue
		}
		e := r.enemies[id]
		fmt.Fprintf(h, "e|%s|%.3f|%.3f|%.3f|%d\n", id, e.Pos.X, e.Pos.Y, e.Pos.Z, e.Health)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// drainPortalSpawns registers portals discovered by chunk generation.
func (r *Room) drainPortalSpawns(now uint64) {
	for {
		select {
		case spawns := <-r.portalCh:
			for _, s := range spawns {
				if r.portalByName(s.Name) != nil {
					continue
				}
				id := r.newID("portal")
				p := &Portal{ID: id, Name: s.Name, Pos: s.Pos, Color: s.Color}
				r.portals[id] = p
				r.repPortals.Set(id, ctxGlobal, portalView(p))
			}
		default:
			return
		}
	}
}

func (r *Room) portalByName(name string) *Portal {
	for _, p := range r.portals {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// updateStreaming keeps chunks resident around every connected player.
// The scheduler retains against the whole viewer set, re-announced
// whenever a player crosses a chunk boundary or the set itself changes,
// so no one's footing is evicted on another player's account.
func (r *Room) updateStreaming() {
	e := r.cfg.Tuning.ChunkEdge
	changed := false
	viewers := make([]voxel.ChunkKey, 0, len(r.players))
	seen := map[voxel.ChunkKey]struct{}{}
	for _, p := range r.players {
		if p.Ctx != CtxOverworld {
			continue
		}
		fp := p.Body.Pos.Floor()
		ck := voxel.ChunkKey{
			X: voxel.WorldToChunk(fp.X, e),
			Z: voxel.WorldToChunk(fp.Z, e),
		}
		if ck != p.lastChunk || !p.streamed {
			p.lastChunk = ck
			p.streamed = true
			changed = true
		}
		if _, dup := seen[ck]; !dup {
			seen[ck] = struct{}{}
			viewers = append(viewers, ck)
		}
	}
	if len(viewers) != r.lastViewers {
		r.lastViewers = len(viewers)
		changed = true
	}
	if changed && len(viewers) > 0 {
		r.chunks.OnViewersMoved(viewers)
	}
}
