package protocol

// hello (client -> server): the first message on a connection.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
}

// input: the latest held-key snapshot. The room integrates it every
// tick until replaced.
type InputMsg struct {
	Type string    `json:"type"`
	Keys InputKeys `json:"keys"`
}

type InputKeys struct {
	Forward bool    `json:"forward,omitempty"`
	Back    bool    `json:"back,omitempty"`
	Left    bool    `json:"left,omitempty"`
	Right   bool    `json:"right,omitempty"`
	Jump    bool    `json:"jump,omitempty"`
	Yaw     float64 `json:"yaw,omitempty"` // facing, radians
}

type MeleeAttackMsg struct {
	Type string `json:"type"`
}

type UseAbilityMsg struct {
	Type       string  `json:"type"`
	SlotIndex  int     `json:"slot_index"`
	ChargeTime float64 `json:"charge_time,omitempty"` // seconds, CHARGE abilities
}

type UseItemMsg struct {
	Type           string `json:"type"`
	InventoryIndex int    `json:"inventory_index"`
}

type SocketStoneMsg struct {
	Type                string `json:"type"`
	EssenceID           string `json:"essence_id"`
	EssenceSocketIndex  int    `json:"essence_socket_index"`
	StoneInventoryIndex int    `json:"stone_inventory_index"`
}

type StartQuestMsg struct {
	Type    string `json:"type"`
	QuestID string `json:"quest_id"`
}

type InteractNPCMsg struct {
	Type  string `json:"type"`
	NPCID string `json:"npc_id"`
}

type EnterPortalMsg struct {
	Type     string `json:"type"`
	PortalID string `json:"portal_id"`
}

type ExitDungeonMsg struct {
	Type string `json:"type"`
}

type CollectEssenceMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type CollectStoneMsg struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ChatMsg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
