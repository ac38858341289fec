package chat

import (
	"strings"
	"time"

	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

// Ledger appends messages to rooms and owns reaction aggregation and
// deletion. Delivery is never blocked on durability: a failing store write
// is logged and the message rides the volatile path only.
type Ledger struct {
	store    persistence.Store
	registry *Registry
	rooms    *Rooms
}

func NewLedger(store persistence.Store, registry *Registry, rooms *Rooms) *Ledger {
	return &Ledger{store: store, registry: registry, rooms: rooms}
}

// Send builds a message from the sender's current room and identity,
// persists it and broadcasts it to the whole room including the sender.
// A connection with no current room or no identity sends nothing.
func (l *Ledger) Send(connId, text string) []Emission {
	user := l.registry.Resolve(connId)
	roomId := l.rooms.CurrentRoom(connId)
	if user == nil || roomId == "" || strings.TrimSpace(text) == "" {
		return nil
	}
	now := time.Now()
	msg := &types.Message{
		RoomId:     roomId,
		Author:     user.Name,
		AuthorCode: user.Code,
		Text:       text,
		Time:       now.Format("15:04"),
		Timestamp:  now,
		Reactions:  make(types.ReactionMap),
	}
	if err := msg.CreateId(); err != nil {
		globals.AppLogger.Error("could not hash message", "error", err)
		msg.Id = now.Format(time.RFC3339Nano)
	}
	if l.store != nil {
		durableId, err := l.store.AppendMessage(*msg)
		if err != nil {
			globals.AppLogger.Error("could not persist message", "room", roomId, "error", err)
		} else {
			msg.Id = durableId
			msg.Persisted = true
		}
	}
	// the room may have been torn down during the store call, in which
	// case the broadcast is skipped
	if !l.rooms.Exists(roomId) {
		return nil
	}
	l.rooms.appendHistory(roomId, msg)
	emission := toRoom(roomId, types.EventMessageNew, msg)
	emission.Filter = l.rooms.Filter(roomId)
	return []Emission{emission}
}

// AddReaction records reactor under emoji on a message of the sender's
// current room. Idempotent per reactor+emoji; the broadcast carries the
// full reactor list, not the delta. A message that no longer exists is a
// no-op.
func (l *Ledger) AddReaction(connId, messageId, emoji string) []Emission {
	user := l.registry.Resolve(connId)
	roomId := l.rooms.CurrentRoom(connId)
	if user == nil || roomId == "" || emoji == "" {
		return nil
	}
	msg := l.rooms.findMessage(roomId, messageId)
	if msg == nil {
		return nil
	}
	reactors, changed := msg.React(emoji, user.Name)
	if changed && msg.Persisted && l.store != nil {
		if err := l.store.UpsertReaction(msg.Id, emoji, reactors); err != nil {
			globals.AppLogger.Error("could not persist reaction", "message", msg.Id, "error", err)
		}
	}
	return []Emission{toRoom(roomId, types.EventReactionUpdate, types.ReactionUpdatePayload{
		MessageId: msg.Id,
		Emoji:     emoji,
		Reactors:  reactors,
	})}
}

// Delete removes a message if the requester authored it or holds an
// elevated flag. Anything else is a silent no-op, so an unauthorized
// requester cannot probe for message existence.
func (l *Ledger) Delete(connId, messageId, roomId string) []Emission {
	user := l.registry.Resolve(connId)
	if user == nil {
		return nil
	}
	msg := l.rooms.findMessage(roomId, messageId)
	if msg == nil {
		return nil
	}
	if msg.AuthorCode != user.Code && !user.Privileged() {
		return nil
	}
	if msg.Persisted && l.store != nil {
		if err := l.store.DeleteMessage(msg.Id, roomId); err != nil && err != persistence.ErrNotFound {
			globals.AppLogger.Error("could not delete message", "message", msg.Id, "error", err)
		}
	}
	l.rooms.removeMessage(roomId, messageId)
	return []Emission{toRoom(roomId, types.EventMessageDeleted, types.MessageDeletedPayload{
		MessageId: msg.Id,
		RoomId:    roomId,
	})}
}
