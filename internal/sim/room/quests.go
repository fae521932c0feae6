package room

import (
	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
)

// QuestLog tracks a player's accepted quests. Progress is monotonic:
// counters only grow, capped at each objective's target.
type QuestLog struct {
	order   []string
	entries map[string]*questEntry
}

type questEntry struct {
	def      catalogs.QuestDef
	progress []int
}

func newQuestLog() *QuestLog {
	return &QuestLog{entries: map[string]*questEntry{}}
}

// accept adds a quest at zero progress. Re-accepting is a no-op.
func (q *QuestLog) accept(def catalogs.QuestDef) bool {
	if _, ok := q.entries[def.ID]; ok {
		return false
	}
	q.order = append(q.order, def.ID)
	q.entries[def.ID] = &questEntry{def: def, progress: make([]int, len(def.Objectives))}
	return true
}

// restore rebuilds a persisted quest at the recorded progress, clamped
// to the current objective targets.
func (q *QuestLog) restore(def catalogs.QuestDef, progress []int) {
	if !q.accept(def) {
		return
	}
	e := q.entries[def.ID]
	for i := range e.progress {
		if i < len(progress) {
			e.progress[i] = clamp(progress[i], 0, def.Objectives[i].TargetAmount)
		}
	}
}

// notifyKill advances every kill objective matching the enemy type.
// Returns true when any counter moved.
func (q *QuestLog) notifyKill(enemyType string) bool {
	moved := false
	for _, e := range q.entries {
		for i, obj := range e.def.Objectives {
			if obj.TargetType != enemyType {
				continue
			}
			if e.progress[i] < obj.TargetAmount {
				e.progress[i]++
				moved = true
			}
		}
	}
	return moved
}

func (e *questEntry) complete() bool {
	for i, obj := range e.def.Objectives {
		if e.progress[i] < obj.TargetAmount {
			return false
		}
	}
	return true
}

// states projects the log in accept order for replication.
func (q *QuestLog) states() []protocol.QuestState {
	out := make([]protocol.QuestState, 0, len(q.order))
	for _, id := range q.order {
		e := q.entries[id]
		objs := make([]protocol.ObjectiveState, len(e.def.Objectives))
		for i, obj := range e.def.Objectives {
			objs[i] = protocol.ObjectiveState{
				Description:  obj.Description,
				Progress:     e.progress[i],
				TargetAmount: obj.TargetAmount,
			}
		}
		out = append(out, protocol.QuestState{
			ID:             id,
			Title:          e.def.Title,
			Objectives:     objs,
			ReadyForTurnIn: e.complete(),
		})
	}
	return out
}

func (q *QuestLog) records() []QuestRecord {
	out := make([]QuestRecord, 0, len(q.order))
	for _, id := range q.order {
		e := q.entries[id]
		out = append(out, QuestRecord{ID: id, Progress: append([]int(nil), e.progress...)})
	}
	return out
}

// handleStartQuest accepts a quest offered by an NPC the player is
// standing near. Disabled entirely when the quest table failed to load.
func (r *Room) handleStartQuest(p *Player, questID string) {
	def, ok := r.cats.Quests.ByID[questID]
	if !ok {
		return
	}
	reach := r.cfg.Tuning.Combat.InteractRadius
	offered := false
	for _, n := range r.npcs {
		if n.QuestID == questID && n.Pos.DistSq(p.Body.Pos) <= reach*reach {
			offered = true
			break
		}
	}
	if !offered || p.Ctx != CtxOverworld {
		return
	}
	if !p.Quests.accept(def) {
		return
	}
	r.sendTo(p.ID, protocol.QuestUpdateMsg{Type: protocol.TypeQuestUpdate, Quests: p.Quests.states()})
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

// handleInteractNPC returns the NPC's dialogue, proximity gated.
func (r *Room) handleInteractNPC(p *Player, npcID string) {
	n := r.npcs[npcID]
	if n == nil || p.Ctx != CtxOverworld {
		return
	}
	reach := r.cfg.Tuning.Combat.InteractRadius
	if n.Pos.DistSq(p.Body.Pos) > reach*reach {
		return
	}
	r.sendTo(p.ID, protocol.NPCDialogueMsg{
		Type:     protocol.TypeNPCDialogue,
		Name:     n.Name,
		Dialogue: n.Dialogue,
		QuestID:  n.QuestID,
	})
}
