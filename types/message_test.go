package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIdIsContentDerived(t *testing.T) {
	now := time.Now()
	a := Message{RoomId: "main", AuthorCode: "USR1000", Text: "hi", Timestamp: now}
	b := Message{RoomId: "main", AuthorCode: "USR1000", Text: "hi", Timestamp: now}
	require.NoError(t, a.CreateId())
	require.NoError(t, b.CreateId())
	assert.Equal(t, a.Id, b.Id)
	assert.Len(t, a.Id, 16)

	// same text, later timestamp: different id
	c := Message{RoomId: "main", AuthorCode: "USR1000", Text: "hi", Timestamp: now.Add(time.Millisecond)}
	require.NoError(t, c.CreateId())
	assert.NotEqual(t, a.Id, c.Id)
}

func TestReactIsIdempotentPerReactor(t *testing.T) {
	msg := Message{}

	reactors, changed := msg.React("👍", "Alice")
	assert.True(t, changed)
	assert.Equal(t, []string{"Alice"}, reactors)

	reactors, changed = msg.React("👍", "Alice")
	assert.False(t, changed)
	assert.Equal(t, []string{"Alice"}, reactors)

	reactors, changed = msg.React("👍", "Bob")
	assert.True(t, changed)
	assert.Equal(t, []string{"Alice", "Bob"}, reactors)

	// the same reactor may react with a different emoji
	reactors, changed = msg.React("🎉", "Alice")
	assert.True(t, changed)
	assert.Equal(t, []string{"Alice"}, reactors)
}
