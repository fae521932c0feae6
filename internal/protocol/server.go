package protocol

// welcome (server -> client): session accepted. CatalogDigests lets
// clients invalidate cached static tables.
type WelcomeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	SessionID       string            `json:"session_id"`
	PlayerID        string            `json:"player_id"`
	WorldParams     WorldParams       `json:"world_params"`
	CatalogDigests  map[string]string `json:"catalog_digests,omitempty"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	ChunkEdge  int   `json:"chunk_edge"`
	Seed       int64 `json:"seed"`
}

// Replicated collections. Clients hold read-only mirrors updated by
// state_diff messages only.
const (
	CollectionPlayers  = "players"
	CollectionEnemies  = "enemies"
	CollectionNPCs     = "npcs"
	CollectionPortals  = "portals"
	CollectionQuests   = "quests"
	CollectionEssences = "essence_drops"
	CollectionStones   = "stone_drops"
)

// Diff operations.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// state_diff: one add/update/remove event against a replicated
// collection. Data is the full entity view for add/update, absent for
// remove.
type StateDiffMsg struct {
	Type       string `json:"type"`
	Tick       uint64 `json:"tick"`
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         string `json:"id"`
	Data       any    `json:"data,omitempty"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ItemRef is the replicated projection of an item: id + name only; the
// full definition lives server-side.
type ItemRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerState struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Pos       Vec3               `json:"pos"`
	Health    int                `json:"health"`
	MaxHealth int                `json:"max_health"`
	Mana      int                `json:"mana"`
	MaxMana   int                `json:"max_mana"`
	Equipment map[string]ItemRef `json:"equipment"` // slot -> item
	Inventory []ItemRef          `json:"inventory"`
	Quests    []QuestState       `json:"quests"`
	Cooldowns map[string]uint64  `json:"cooldowns,omitempty"` // ability -> ready tick
}

type EnemyState struct {
	ID        string `json:"id"`
	EnemyType string `json:"enemy_type"`
	Tier      string `json:"tier"` // "minion" | "elite"
	Pos       Vec3   `json:"pos"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
}

type NPCState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Pos  Vec3   `json:"pos"`
}

type PortalState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Pos   Vec3   `json:"pos"`
	Color string `json:"color"`
}

type DropState struct {
	ID     string `json:"id"`
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Pos    Vec3   `json:"pos"`
}

type QuestState struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Objectives     []ObjectiveState `json:"objectives"`
	ReadyForTurnIn bool             `json:"ready_for_turn_in"`
}

type ObjectiveState struct {
	Description  string `json:"description"`
	Progress     int    `json:"progress"`
	TargetAmount int    `json:"target_amount"`
}

// load_dungeon: the full instance grid, zstd-compressed and base64
// encoded in Blocks, in the same y-major layout as live grids.
type LoadDungeonMsg struct {
	Type    string `json:"type"`
	Blocks  string `json:"blocks"`
	Extents [3]int `json:"extents"` // EX, EY, EZ
	Spawn   Vec3   `json:"spawn_point"`
	Theme   string `json:"theme"`
}

type UnloadDungeonMsg struct {
	Type string `json:"type"`
}

// play_vfx: fire-and-forget cosmetic effect.
type PlayVFXMsg struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
	Pos  Vec3   `json:"position"`
}

type NPCDialogueMsg struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Dialogue string `json:"dialogue"`
	QuestID  string `json:"quest_id,omitempty"`
}

type QuestUpdateMsg struct {
	Type   string       `json:"type"`
	Quests []QuestState `json:"quests"`
}

type ChatBroadcastMsg struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}
