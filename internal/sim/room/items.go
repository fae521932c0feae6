package room

import (
	"voxelrealm.gg/internal/protocol"
	"voxelrealm.gg/internal/sim/catalogs"
)

const maxEquippedEssences = 3

// handleUseItem consumes, equips, or attunes the inventory item at the
// given index. Invalid indices and kinds are no-ops.
func (r *Room) handleUseItem(p *Player, idx int, now uint64) {
	if idx < 0 || idx >= len(p.Inventory) {
		return
	}
	it := p.Inventory[idx]

	switch it.Kind {
	case catalogs.ItemConsumable:
		p.Health = clamp(p.Health+it.HealHP, 0, p.MaxHealth)
		p.removeInventory(idx)

	case catalogs.ItemWeapon, catalogs.ItemArmor:
		if it.Slot == "" {
			return
		}
		// Equip replaces: whatever held the slot returns to inventory.
		prev, had := p.Equipment[it.Slot]
		p.Equipment[it.Slot] = it
		p.removeInventory(idx)
		if had {
			p.Inventory = append(p.Inventory, prev)
		}

	case catalogs.ItemEssence:
		def, ok := r.cats.Essences.Defs[it.ID]
		if !ok || len(p.Essences) >= maxEquippedEssences {
			return
		}
		for _, ess := range p.Essences {
			if ess.Def.ID == def.ID {
				return
			}
		}
		p.Essences = append(p.Essences, &EquippedEssence{Def: def})
		p.removeInventory(idx)

	default:
		// Awakening stones go through socket_stone.
		return
	}

	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

// handleSocketStone attaches an awakening stone from inventory into an
// empty socket of an equipped essence. Compatibility is the stone's
// explicit allow-list; everything else is a no-op.
func (r *Room) handleSocketStone(p *Player, msg protocol.SocketStoneMsg) {
	idx := msg.StoneInventoryIndex
	if idx < 0 || idx >= len(p.Inventory) {
		return
	}
	it := p.Inventory[idx]
	if it.Kind != catalogs.ItemAwakeningStone {
		return
	}
	stone, ok := r.cats.Stones.Defs[it.ID]
	if !ok || !stone.Compatible(msg.EssenceID) {
		return
	}

	var ess *EquippedEssence
	for _, e := range p.Essences {
		if e.Def.ID == msg.EssenceID {
			ess = e
			break
		}
	}
	if ess == nil {
		return
	}
	si := msg.EssenceSocketIndex
	if si < 0 || si >= essenceSockets || ess.Sockets[si] != nil {
		return
	}

	ess.Sockets[si] = &stone
	p.removeInventory(idx)
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

// handleCollectDrop picks a world drop into the player's inventory,
// gated by pickup proximity and matching kind.
func (r *Room) handleCollectDrop(p *Player, dropID, wantKind string) {
	d := r.drops[dropID]
	if d == nil || d.Ctx != p.Ctx || d.Kind != wantKind {
		return
	}
	reach := r.cfg.Tuning.Combat.PickupRadius
	if d.Pos.DistSq(p.Body.Pos) > reach*reach {
		return
	}
	def, ok := r.cats.Items.Defs[d.ItemID]
	if !ok {
		return
	}
	p.Inventory = append(p.Inventory, def)
	delete(r.drops, dropID)
	r.dropCollection(d.Kind).Remove(dropID)
	r.repPlayers.Set(p.ID, ctxGlobal, r.playerView(p))
}

func (p *Player) removeInventory(idx int) {
	p.Inventory = append(p.Inventory[:idx], p.Inventory[idx+1:]...)
}
