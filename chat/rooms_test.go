package chat

import (
	"encoding/json"
	"testing"

	"github.com/parlorchat/parlor/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinLeavesPreviousRoom(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")

	for _, roomId := range []string{"main", "work", "games", "work"} {
		join(t, core, "c1", roomId)
		assert.Equal(t, roomId, core.rooms.CurrentRoom("c1"))
		// at most one room lists the connection as a member
		for _, other := range []string{"main", "work", "games"} {
			if other == roomId {
				assert.Equal(t, 1, core.rooms.OnlineCount(other))
			} else {
				assert.Equal(t, 0, core.rooms.OnlineCount(other))
			}
		}
	}
}

func TestRepeatedJoinDoesNotDuplicateMembership(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")

	join(t, core, "c1", "main")
	join(t, core, "c1", "main")

	assert.Equal(t, 1, core.rooms.OnlineCount("main"))
	assert.Len(t, core.rooms.MemberList("main"), 1)
}

func TestJoinUnknownRoomIsNoOp(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")
	join(t, core, "c1", "main")

	emissions := join(t, core, "c1", "no-such-room")

	assert.Nil(t, firstEmission(emissions, types.EventRoomSnapshot))
	assert.Equal(t, "", core.rooms.CurrentRoom("c1"))
	assert.False(t, core.rooms.Exists("no-such-room"), "joins must not create rooms")
	// the previous room was still left
	assert.Equal(t, 0, core.rooms.OnlineCount("main"))
}

func TestJoinBroadcasts(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")
	register(t, core, "c2", "Bob", "")
	join(t, core, "c1", "main")

	emissions := join(t, core, "c2", "main")

	joined := firstEmission(emissions, types.EventUserJoined)
	require.NotNil(t, joined)
	assert.Equal(t, ScopeRoomExcept, joined.Scope)
	assert.Equal(t, "c2", joined.ConnId, "the joiner must not receive its own join notice")
	assert.Equal(t, "Bob", joined.Payload.(types.PresencePayload).Name)

	online := firstEmission(emissions, types.EventOnlineUpdate)
	require.NotNil(t, online)
	assert.Equal(t, ScopeRoom, online.Scope)
	assert.Equal(t, 2, online.Payload.(types.OnlinePayload).Count)
}

func TestDisconnectRemovesAllTraces(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")
	register(t, core, "c2", "Bob", "")
	join(t, core, "c1", "main")
	join(t, core, "c2", "main")

	emissions := core.Disconnect("c2")

	left := firstEmission(emissions, types.EventUserLeft)
	require.NotNil(t, left)
	assert.Equal(t, "Bob", left.Payload.(types.PresencePayload).Name)
	online := firstEmission(emissions, types.EventOnlineUpdate)
	require.NotNil(t, online)
	assert.Equal(t, 1, online.Payload.(types.OnlinePayload).Count)

	assert.Equal(t, "", core.rooms.CurrentRoom("c2"))
	assert.Equal(t, 1, core.rooms.OnlineCount("main"))
	assert.Nil(t, core.registry.Resolve("c2"))

	// a second disconnect is idempotent
	assert.Empty(t, core.Disconnect("c2"))
}

func TestLeaveDecrementsByExactlyOne(t *testing.T) {
	core := newTestCore(nil)
	for _, connId := range []string{"c1", "c2", "c3"} {
		register(t, core, connId, "user-"+connId, "")
		join(t, core, connId, "main")
	}
	require.Equal(t, 3, core.rooms.OnlineCount("main"))

	core.rooms.Leave("c2")
	assert.Equal(t, 2, core.rooms.OnlineCount("main"))
	core.rooms.Leave("c2")
	assert.Equal(t, 2, core.rooms.OnlineCount("main"))
}

func TestCreateAndJoinPrivateRoom(t *testing.T) {
	store := newFakeStore()
	core := newTestCore(store)
	register(t, core, "c1", "Alice", "")

	payload, _ := json.Marshal(map[string]string{"name": "den", "password": "hunter2"})
	emissions := core.HandleEvent("c1", types.EventRoomCreate, payload)
	created := firstEmission(emissions, types.EventRoomCreated)
	require.NotNil(t, created)
	roomId := created.Payload.(types.RoomCreatedPayload).Id
	assert.Contains(t, roomId, "priv_")
	assert.Len(t, store.rooms, 1)

	// wrong password
	payload, _ = json.Marshal(map[string]string{"name": "den", "password": "wrong"})
	emissions = core.HandleEvent("c1", types.EventRoomJoinPrivate, payload)
	require.NotNil(t, firstEmission(emissions, types.EventRoomError))

	// correct password resolves the id, then the regular join flow applies
	payload, _ = json.Marshal(map[string]string{"name": "den", "password": "hunter2"})
	emissions = core.HandleEvent("c1", types.EventRoomJoinPrivate, payload)
	joined := firstEmission(emissions, types.EventRoomJoined)
	require.NotNil(t, joined)
	assert.Equal(t, roomId, joined.Payload.(types.RoomCreatedPayload).Id)

	join(t, core, "c1", roomId)
	assert.Equal(t, 1, core.rooms.OnlineCount(roomId))
}

func TestPrivateRoomsReloadedAtBoot(t *testing.T) {
	store := newFakeStore()
	store.rooms["priv_cafe1234"] = types.Room{Id: "priv_cafe1234", Name: "den", Private: true, Password: "hunter2"}

	core := newTestCore(store)
	register(t, core, "c1", "Alice", "")
	join(t, core, "c1", "priv_cafe1234")

	assert.Equal(t, "priv_cafe1234", core.rooms.CurrentRoom("c1"))
}

func TestDuplicatePrivateRoomNamesAllowed(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")

	first := core.rooms.CreatePrivate("c1", "den", "pw1")
	second := core.rooms.CreatePrivate("c1", "den", "pw2")
	firstId := firstEmission(first, types.EventRoomCreated).Payload.(types.RoomCreatedPayload).Id
	secondId := firstEmission(second, types.EventRoomCreated).Payload.(types.RoomCreatedPayload).Id
	assert.NotEqual(t, firstId, secondId)

	emissions := core.rooms.JoinPrivate("c1", "den", "pw2")
	joined := firstEmission(emissions, types.EventRoomJoined)
	require.NotNil(t, joined)
	assert.Equal(t, secondId, joined.Payload.(types.RoomCreatedPayload).Id)
}
