package chat

import (
	"encoding/json"
	"testing"

	"github.com/parlorchat/parlor/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	core := newTestCore(nil)

	assert.Empty(t, core.HandleEvent("c1", "no:such:event", nil))
	assert.Empty(t, core.HandleEvent("c1", types.EventRoomJoin, json.RawMessage(`"not an object"`)))
	assert.Empty(t, core.HandleEvent("c1", types.EventRoomJoin, json.RawMessage(`{broken`)))
}

func TestWeaklyTypedPayloadIsAccepted(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "")

	// clients are sloppy about numbers vs. strings
	core.HandleEvent("c1", types.EventRoomJoin, json.RawMessage(`{"roomId":"main","extra":42}`))
	assert.Equal(t, "main", core.rooms.CurrentRoom("c1"))
}

func TestFindByCodeEvent(t *testing.T) {
	core := newTestCore(nil)
	register(t, core, "c1", "Alice", "USR1000")

	payload, _ := json.Marshal(map[string]string{"code": "USR1000"})
	emissions := core.HandleEvent("c2", types.EventUserFindByCode, payload)
	found := firstEmission(emissions, types.EventUserFound)
	require.NotNil(t, found)
	assert.Equal(t, "Alice", found.Payload.(types.FriendInfo).Name)

	payload, _ = json.Marshal(map[string]string{"code": "USR0000"})
	emissions = core.HandleEvent("c2", types.EventUserFindByCode, payload)
	require.NotNil(t, firstEmission(emissions, types.EventUserNotFound))
}

func TestRegisterReplyCarriesFriendList(t *testing.T) {
	store := newFakeStore()
	store.users["USR1000"] = types.User{Code: "USR1000", Name: "Alice", Friends: types.StringList{"USR2000"}}
	store.users["USR2000"] = types.User{Code: "USR2000", Name: "Bob"}
	core := newTestCore(store)

	payload, _ := json.Marshal(map[string]string{"name": "Alice", "friendCode": "USR1000"})
	emissions := core.HandleEvent("c1", types.EventUserRegister, payload)

	registered := firstEmission(emissions, types.EventUserRegistered)
	require.NotNil(t, registered)
	reply := registered.Payload.(types.RegisteredPayload)
	assert.Equal(t, "USR1000", reply.User.Code)
	require.Len(t, reply.Friends, 1)
	assert.Equal(t, "Bob", reply.Friends[0].Name)
}

// The end-to-end scenario: Alice sends "hi" in main, Bob joins afterwards
// and sees her message and the correct online counts.
func TestJoinAfterSendScenario(t *testing.T) {
	core := newTestCore(newFakeStore())

	register(t, core, "alice", "Alice", "USR1000")
	join(t, core, "alice", "main")
	send(t, core, "alice", "hi")

	register(t, core, "bob", "Bob", "USR2000")
	emissions := join(t, core, "bob", "main")

	// the ack shows the room as Bob found it; his own presence arrives
	// via the online:update that follows
	snapshot := firstEmission(emissions, types.EventRoomSnapshot).Payload.(*types.RoomSnapshot)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, "Alice", snapshot.Messages[0].Author)
	assert.Equal(t, "hi", snapshot.Messages[0].Text)
	assert.Equal(t, 1, snapshot.OnlineCount)
	require.Len(t, snapshot.Users, 1)
	assert.Equal(t, "Alice", snapshot.Users[0].Name)

	online := firstEmission(emissions, types.EventOnlineUpdate)
	require.NotNil(t, online)
	assert.Equal(t, 2, online.Payload.(types.OnlinePayload).Count)
}
