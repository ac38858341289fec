package chat

// Scope selects the audience of an emission.
type Scope int

const (
	// ScopeConn addresses a single connection.
	ScopeConn Scope = iota
	// ScopeRoom addresses every current member of a room.
	ScopeRoom
	// ScopeRoomExcept addresses every current member of a room except one
	// connection.
	ScopeRoomExcept
)

// Emission is one outbound event produced by a core handler. The hub owns
// the actual delivery; the core only describes audience, event name and
// payload. Filter is an optional expr expression evaluated per recipient.
type Emission struct {
	Scope   Scope
	ConnId  string // target (ScopeConn) or excluded connection (ScopeRoomExcept)
	RoomId  string
	Event   string
	Payload interface{}
	Filter  string
}

func toConn(connId, event string, payload interface{}) Emission {
	return Emission{Scope: ScopeConn, ConnId: connId, Event: event, Payload: payload}
}

func toRoom(roomId, event string, payload interface{}) Emission {
	return Emission{Scope: ScopeRoom, RoomId: roomId, Event: event, Payload: payload}
}

func toRoomExcept(roomId, connId, event string, payload interface{}) Emission {
	return Emission{Scope: ScopeRoomExcept, RoomId: roomId, ConnId: connId, Event: event, Payload: payload}
}
