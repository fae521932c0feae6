package room

import (
	"encoding/json"

	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
)

// applyMessage routes one staged client message. Payloads were schema
// validated by the transport; anything that still fails to decode or
// refers to stale state is dropped without touching the tick.
func (r *Room) applyMessage(p *Player, env Envelope, now uint64) {
	switch env.Type {
	case protocol.TypeInput:
		var m protocol.InputMsg
		if decode(env.Raw, &m) {
			p.In.Forward = m.Keys.Forward
			p.In.Back = m.Keys.Back
			p.In.Left = m.Keys.Left
			p.In.Right = m.Keys.Right
			p.In.Jump = m.Keys.Jump
			p.In.Yaw = m.Keys.Yaw
		}

	case protocol.TypeMeleeAttack:
		r.handleMelee(p, now)

	case protocol.TypeUseAbility:
		var m protocol.UseAbilityMsg
		if decode(env.Raw, &m) {
			r.handleUseAbility(p, m, now)
		}

	case protocol.TypeUseItem:
		var m protocol.UseItemMsg
		if decode(env.Raw, &m) {
			r.handleUseItem(p, m.InventoryIndex, now)
		}

	case protocol.TypeSocketStone:
		var m protocol.SocketStoneMsg
		if decode(env.Raw, &m) {
			r.handleSocketStone(p, m)
		}

	case protocol.TypeStartQuest:
		var m protocol.StartQuestMsg
		if decode(env.Raw, &m) {
			r.handleStartQuest(p, m.QuestID)
		}

	case protocol.TypeInteractNPC:
		var m protocol.InteractNPCMsg
		if decode(env.Raw, &m) {
			r.handleInteractNPC(p, m.NPCID)
		}

	case protocol.TypeEnterPortal:
		var m protocol.EnterPortalMsg
		if decode(env.Raw, &m) {
			r.handleEnterPortal(p, m.PortalID, now)
		}

	case protocol.TypeExitDungeon:
		r.exitDungeon(p)

	case protocol.TypeCollectEssence:
		var m protocol.CollectEssenceMsg
		if decode(env.Raw, &m) {
			r.handleCollectDrop(p, m.ID, catalogs.ItemEssence)
		}

	case protocol.TypeCollectStone:
		var m protocol.CollectStoneMsg
		if decode(env.Raw, &m) {
			r.handleCollectDrop(p, m.ID, catalogs.ItemAwakeningStone)
		}

	case protocol.TypeChat:
		var m protocol.ChatMsg
		if decode(env.Raw, &m) && m.Content != "" {
			r.broadcastCtx(ctxGlobal, protocol.ChatBroadcastMsg{
				Type: protocol.TypeChatBroadcast, Sender: p.Name, Content: m.Content,
			})
		}
	}
}

func decode(raw []byte, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
