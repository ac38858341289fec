package chat

import (
	"strings"

	"github.com/google/uuid"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/parlorchat/parlor/types"
)

// roomState is the volatile side of a room: membership keyed by connection
// id plus the message history window. Mutated only through Rooms (membership)
// and Ledger (history).
type roomState struct {
	room    types.Room
	filter  string
	members map[string]struct{}
	history []*types.Message
	byMsgId map[string]*types.Message
}

// Rooms is the room directory and the membership coordinator in one: it
// owns the set of rooms and enforces the at-most-one-room-per-connection
// state machine. Every join-triggering event funnels through Join, so the
// invariant lives in exactly one place.
type Rooms struct {
	cfg      *config.Config
	store    persistence.Store
	registry *Registry

	rooms   map[string]*roomState
	current map[string]string // connection id -> room id
}

func NewRooms(cfg *config.Config, store persistence.Store, registry *Registry) *Rooms {
	r := &Rooms{
		cfg:      cfg,
		store:    store,
		registry: registry,
		rooms:    make(map[string]*roomState),
		current:  make(map[string]string),
	}
	for _, rc := range cfg.PublicRooms() {
		r.addRoom(types.Room{Id: rc.Id, Name: rc.Name}, rc.Filter)
	}
	if store != nil {
		privateRooms, err := store.PrivateRooms()
		if err != nil {
			globals.AppLogger.Error("could not load private rooms", "error", err)
		}
		for _, room := range privateRooms {
			r.addRoom(*room, "")
		}
	}
	return r
}

// addRoom registers the room and seeds its history window from the store.
func (r *Rooms) addRoom(room types.Room, filter string) *roomState {
	rs := &roomState{
		room:    room,
		filter:  filter,
		members: make(map[string]struct{}),
		history: make([]*types.Message, 0),
		byMsgId: make(map[string]*types.Message),
	}
	if r.store != nil {
		messages, err := r.store.MessagesByRoom(room.Id, r.cfg.HistorySize())
		if err != nil {
			globals.AppLogger.Error("could not load room history", "room", room.Id, "error", err)
		}
		for _, msg := range messages {
			rs.history = append(rs.history, msg)
			rs.byMsgId[msg.Id] = msg
		}
	}
	r.rooms[room.Id] = rs
	return rs
}

// Join moves connId into roomId. Any current room is left first; joining an
// unknown room id leaves the connection roomless and yields no snapshot —
// rooms are only created through explicit creation. Repeated joins to the
// same room do not duplicate membership.
func (r *Rooms) Join(connId, roomId string) (*types.RoomSnapshot, []Emission) {
	emissions := r.Leave(connId)
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil, emissions
	}
	// the snapshot reflects the room as the joiner found it; their own
	// presence arrives through the online:update broadcast right after
	snapshot := &types.RoomSnapshot{
		RoomId:      roomId,
		Messages:    r.History(roomId),
		Users:       r.MemberList(roomId),
		OnlineCount: len(rs.members),
	}
	rs.members[connId] = struct{}{}
	r.current[connId] = roomId

	name := displayName(r.registry.Resolve(connId))
	emissions = append(emissions,
		toRoomExcept(roomId, connId, types.EventUserJoined, types.PresencePayload{RoomId: roomId, Name: name}),
		toRoom(roomId, types.EventOnlineUpdate, types.OnlinePayload{RoomId: roomId, Count: len(rs.members)}),
	)
	return snapshot, emissions
}

// Leave removes connId from its current room, if any. Idempotent; the
// online count is only recomputed and broadcast when the connection was
// actually a member.
func (r *Rooms) Leave(connId string) []Emission {
	roomId, ok := r.current[connId]
	if !ok {
		return nil
	}
	delete(r.current, connId)
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	if _, member := rs.members[connId]; !member {
		return nil
	}
	delete(rs.members, connId)
	return []Emission{
		toRoom(roomId, types.EventOnlineUpdate, types.OnlinePayload{RoomId: roomId, Count: len(rs.members)}),
	}
}

// Disconnect removes all traces of the connection and notifies the room it
// occupied.
func (r *Rooms) Disconnect(connId string) []Emission {
	roomId, ok := r.current[connId]
	if !ok {
		return nil
	}
	name := displayName(r.registry.Resolve(connId))
	emissions := r.Leave(connId)
	if len(emissions) > 0 {
		emissions = append([]Emission{
			toRoom(roomId, types.EventUserLeft, types.PresencePayload{RoomId: roomId, Name: name}),
		}, emissions...)
	}
	return emissions
}

// CreatePrivate creates a private room guarded by a name+password pair and
// replies with its generated id. The creator still joins through the normal
// join flow. Duplicate names with different passwords are allowed; the
// password is kept in plaintext.
func (r *Rooms) CreatePrivate(connId, name, password string) []Emission {
	if strings.TrimSpace(name) == "" {
		return []Emission{toConn(connId, types.EventRoomError, types.RoomErrorPayload{Error: "room name must not be empty"})}
	}
	room := types.Room{
		Id:       "priv_" + uuid.NewString()[:8],
		Name:     name,
		Private:  true,
		Password: password,
	}
	r.addRoom(room, "")
	if r.store != nil {
		if err := r.store.CreatePrivateRoom(room); err != nil {
			globals.AppLogger.Error("could not store private room", "room", room.Id, "error", err)
		}
	}
	return []Emission{toConn(connId, types.EventRoomCreated, types.RoomCreatedPayload{Id: room.Id, Name: room.Name})}
}

// JoinPrivate resolves a name+password pair to a private room id. The
// caller then joins via the regular join flow with that id.
func (r *Rooms) JoinPrivate(connId, name, password string) []Emission {
	for _, rs := range r.rooms {
		if rs.room.Private && rs.room.Name == name && rs.room.Password == password {
			return []Emission{toConn(connId, types.EventRoomJoined, types.RoomCreatedPayload{Id: rs.room.Id, Name: rs.room.Name})}
		}
	}
	if r.store != nil {
		room, err := r.store.FindPrivateRoomByNameAndPassword(name, password)
		if err == nil {
			if _, known := r.rooms[room.Id]; !known {
				r.addRoom(*room, "")
			}
			return []Emission{toConn(connId, types.EventRoomJoined, types.RoomCreatedPayload{Id: room.Id, Name: room.Name})}
		}
		if err != persistence.ErrNotFound {
			globals.AppLogger.Error("could not look up private room", "error", err)
		}
	}
	return []Emission{toConn(connId, types.EventRoomError, types.RoomErrorPayload{Error: "room not found or wrong password"})}
}

// CurrentRoom returns the room connId occupies, or "".
func (r *Rooms) CurrentRoom(connId string) string {
	return r.current[connId]
}

// Exists reports whether roomId names a known room.
func (r *Rooms) Exists(roomId string) bool {
	_, ok := r.rooms[roomId]
	return ok
}

// Members returns the connection ids currently in a room.
func (r *Rooms) Members(roomId string) []string {
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(rs.members))
	for connId := range rs.members {
		members = append(members, connId)
	}
	return members
}

// MemberList resolves the membership of a room to user-facing entries.
func (r *Rooms) MemberList(roomId string) []types.RoomUser {
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	users := make([]types.RoomUser, 0, len(rs.members))
	for connId := range rs.members {
		entry := types.RoomUser{Id: connId, Name: "Guest"}
		if user := r.registry.Resolve(connId); user != nil {
			entry.Name = user.Name
			entry.Avatar = user.Avatar
		}
		users = append(users, entry)
	}
	return users
}

// OnlineCount returns the size of the room's membership set.
func (r *Rooms) OnlineCount(roomId string) int {
	rs, ok := r.rooms[roomId]
	if !ok {
		return 0
	}
	return len(rs.members)
}

// Filter returns the delivery filter expression of a room.
func (r *Rooms) Filter(roomId string) string {
	rs, ok := r.rooms[roomId]
	if !ok {
		return ""
	}
	return rs.filter
}

// History returns the room's replay window, oldest first. Durable history
// seeds the window at boot; messages sent since then are appended after it,
// so a fresh join replays the exact insertion order.
func (r *Rooms) History(roomId string) []*types.Message {
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	size := r.cfg.HistorySize()
	history := rs.history
	if len(history) > size {
		history = history[len(history)-size:]
	}
	out := make([]*types.Message, len(history))
	copy(out, history)
	return out
}

func (r *Rooms) appendHistory(roomId string, msg *types.Message) {
	rs, ok := r.rooms[roomId]
	if !ok {
		return
	}
	rs.history = append(rs.history, msg)
	rs.byMsgId[msg.Id] = msg
	if max := 2 * r.cfg.HistorySize(); len(rs.history) > max {
		drop := rs.history[:len(rs.history)-max]
		for _, old := range drop {
			delete(rs.byMsgId, old.Id)
		}
		rs.history = rs.history[len(rs.history)-max:]
	}
}

func (r *Rooms) findMessage(roomId, messageId string) *types.Message {
	rs, ok := r.rooms[roomId]
	if !ok {
		return nil
	}
	return rs.byMsgId[messageId]
}

func (r *Rooms) removeMessage(roomId, messageId string) bool {
	rs, ok := r.rooms[roomId]
	if !ok {
		return false
	}
	if _, known := rs.byMsgId[messageId]; !known {
		return false
	}
	delete(rs.byMsgId, messageId)
	for i, msg := range rs.history {
		if msg.Id == messageId {
			rs.history = append(rs.history[:i], rs.history[i+1:]...)
			break
		}
	}
	return true
}
