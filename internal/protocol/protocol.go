package protocol

import "encoding/json"

const Version = "1.0"

// Client -> server message types.
const (
	TypeHello          = "hello"
	TypeInput          = "input"
	TypeMeleeAttack    = "melee_attack"
	TypeUseAbility     = "use_ability"
	TypeUseItem        = "use_item"
	TypeSocketStone    = "socket_stone"
	TypeStartQuest     = "start_quest"
	TypeInteractNPC    = "interact_npc"
	TypeEnterPortal    = "enter_portal"
	TypeExitDungeon    = "exit_dungeon"
	TypeCollectEssence = "collect_essence"
	TypeCollectStone   = "collect_stone"
	TypeChat           = "chat"
)

// Server -> client message types.
const (
	TypeWelcome       = "welcome"
	TypeStateDiff     = "state_diff"
	TypeLoadDungeon   = "load_dungeon"
	TypeUnloadDungeon = "unload_dungeon"
	TypePlayVFX       = "play_vfx"
	TypeNPCDialogue   = "npc_dialogue"
	TypeQuestUpdate   = "quest_update"
	TypeChatBroadcast = "chat_broadcast"
)

// BaseMessage routes unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
