package room

import (
	"encoding/json"
	"reflect"

	"voxelrealm.gg/internal/protocol"
)

// ctxGlobal marks an entity visible to every session regardless of
// which world it is in.
const ctxGlobal Context = ""

type repItem struct {
	ctx  Context
	view any
}

// collection is the server half of one replicated collection: it holds
// the last view sent per entity and emits minimal add/update/remove
// diffs when views actually change.
type collection struct {
	name  string
	items map[string]repItem
	r     *Room
}

func (r *Room) initCollections() {
	mk := func(name string) *collection {
		return &collection{name: name, items: map[string]repItem{}, r: r}
	}
	r.repPlayers = mk(protocol.CollectionPlayers)
	r.repEnemies = mk(protocol.CollectionEnemies)
	r.repNPCs = mk(protocol.CollectionNPCs)
	r.repPortals = mk(protocol.CollectionPortals)
	r.repDrops = map[string]*collection{
		protocol.CollectionEssences: mk(protocol.CollectionEssences),
		protocol.CollectionStones:   mk(protocol.CollectionStones),
	}
}

// Set records the entity view and broadcasts an add or update diff to
// sessions that can see ctx. Unchanged views emit nothing.
func (c *collection) Set(id string, ctx Context, view any) {
	prev, existed := c.items[id]
	if existed && prev.ctx == ctx && reflect.DeepEqual(prev.view, view) {
		return
	}
	c.items[id] = repItem{ctx: ctx, view: view}
	op := protocol.OpUpdate
	if !existed {
		op = protocol.OpAdd
	}
	c.r.broadcastDiff(ctx, protocol.StateDiffMsg{
		Type:       protocol.TypeStateDiff,
		Tick:       c.r.tick.Load(),
		Collection: c.name,
		Op:         op,
		ID:         id,
		Data:       view,
	})
}

func (c *collection) Remove(id string) {
	item, ok := c.items[id]
	if !ok {
		return
	}
	delete(c.items, id)
	c.r.broadcastDiff(item.ctx, protocol.StateDiffMsg{
		Type:       protocol.TypeStateDiff,
		Tick:       c.r.tick.Load(),
		Collection: c.name,
		Op:         protocol.OpRemove,
		ID:         id,
	})
}

// mirrorTo sends the full collection contents visible from ctx as add
// diffs, seeding a freshly joined client's mirror.
func (c *collection) mirrorTo(out chan []byte, ctx Context) {
	for id, item := range c.items {
		if item.ctx != ctxGlobal && item.ctx != ctx {
			continue
		}
		c.r.sendRaw(out, protocol.StateDiffMsg{
			Type:       protocol.TypeStateDiff,
			Tick:       c.r.tick.Load(),
			Collection: c.name,
			Op:         protocol.OpAdd,
			ID:         id,
			Data:       item.view,
		})
	}
}

// broadcastDiff fans a diff out to every session that can observe ctx.
func (r *Room) broadcastDiff(ctx Context, msg protocol.StateDiffMsg) {
	raw, err := json.Marshal(msg)
	if err != nil {
		if r.log != nil {
			r.log.Printf("room %s: marshal diff for %s/%s: %v", r.cfg.ID, msg.Collection, msg.ID, err)
		}
		return
	}
	for _, s := range r.sessions {
		if ctx != ctxGlobal && s.Ctx != ctx {
			continue
		}
		trySend(s.Out, raw)
	}
}

// sendTo delivers a message to a single player's session.
func (r *Room) sendTo(playerID string, msg any) {
	s := r.sessions[playerID]
	if s == nil {
		return
	}
	r.sendRaw(s.Out, msg)
}

// broadcastCtx delivers a message to every session in ctx (or all
// sessions for ctxGlobal).
func (r *Room) broadcastCtx(ctx Context, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, s := range r.sessions {
		if ctx != ctxGlobal && s.Ctx != ctx {
			continue
		}
		trySend(s.Out, raw)
	}
}

func (r *Room) sendRaw(out chan []byte, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		if r.log != nil {
			r.log.Printf("room %s: marshal %T: %v", r.cfg.ID, msg, err)
		}
		return
	}
	trySend(out, raw)
}

// trySend never blocks the tick loop: a session that cannot drain its
// outbound buffer loses messages rather than stalling the room.
func trySend(out chan []byte, raw []byte) {
	select {
	case out <- raw:
	default:
	}
}
