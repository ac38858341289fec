package chat

import (
	"encoding/json"

	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

// Core is the session state of the whole process: identity registry, room
// directory, message ledger and friend graph behind a single dispatch
// surface. The hub feeds it one inbound event at a time, so every handler
// runs as one synchronous step and no two handlers interleave. Emissions
// describe the resulting fan-out; the hub delivers them.
type Core struct {
	cfg      *config.Config
	store    persistence.Store
	registry *Registry
	rooms    *Rooms
	ledger   *Ledger
	friends  *Friends
}

func NewCore(cfg *config.Config, store persistence.Store) *Core {
	registry := NewRegistry(cfg, store)
	rooms := NewRooms(cfg, store, registry)
	return &Core{
		cfg:      cfg,
		store:    store,
		registry: registry,
		rooms:    rooms,
		ledger:   NewLedger(store, registry, rooms),
		friends:  NewFriends(store, registry),
	}
}

// HandleEvent dispatches one inbound frame. Malformed or unknown payloads
// are logged and dropped; no inbound frame may take down the loop.
func (c *Core) HandleEvent(connId, event string, data json.RawMessage) []Emission {
	payload, err := types.DecodeInbound(event, data)
	if err != nil {
		globals.AppLogger.Warn("dropping malformed frame", "event", event, "error", err)
		return nil
	}
	switch p := payload.(type) {
	case *types.RegisterPayload:
		user := c.registry.Register(connId, *p)
		return []Emission{toConn(connId, types.EventUserRegistered, types.RegisteredPayload{
			User:    user,
			Friends: c.friends.List(user),
		})}

	case *types.FindByCodePayload:
		user := c.registry.FindByCode(p.Code)
		if user == nil {
			return []Emission{toConn(connId, types.EventUserNotFound, types.FindByCodePayload{Code: p.Code})}
		}
		return []Emission{toConn(connId, types.EventUserFound, PublicProfile(user))}

	case *types.JoinPayload:
		snapshot, emissions := c.rooms.Join(connId, p.RoomId)
		if snapshot != nil {
			emissions = append(emissions, toConn(connId, types.EventRoomSnapshot, snapshot))
		}
		return emissions

	case *types.SendPayload:
		return c.ledger.Send(connId, p.Text)

	case *types.ReactionPayload:
		return c.ledger.AddReaction(connId, p.MessageId, p.Emoji)

	case *types.DeletePayload:
		return c.ledger.Delete(connId, p.MessageId, p.RoomId)

	case *types.CreateRoomPayload:
		return c.rooms.CreatePrivate(connId, p.Name, p.Password)

	case *types.JoinPrivatePayload:
		return c.rooms.JoinPrivate(connId, p.Name, p.Password)

	case *types.FriendRequestPayload:
		return c.friends.Request(connId, p.Code)

	case *types.FriendAcceptPayload:
		return c.friends.Accept(connId, p.From, p.RequestId)

	case *types.FriendDeclinePayload:
		return c.friends.Decline(connId, p.RequestId)
	}
	return nil
}

// Disconnect removes all traces of the connection synchronously: room
// membership first (with the user:left / online:update fan-out), then the
// identity binding.
func (c *Core) Disconnect(connId string) []Emission {
	emissions := c.rooms.Disconnect(connId)
	c.registry.Release(connId)
	return emissions
}

// Members exposes room membership to the hub for multicast delivery.
func (c *Core) Members(roomId string) []string {
	return c.rooms.Members(roomId)
}

// Resolve exposes the identity behind a connection to the hub, for
// per-recipient delivery filters.
func (c *Core) Resolve(connId string) *types.User {
	return c.registry.Resolve(connId)
}

// FlushPresence persists lastSeen for everyone online; scheduled by the
// hub's cron runner.
func (c *Core) FlushPresence() {
	c.registry.FlushPresence()
}
