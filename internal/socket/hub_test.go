package socket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(userID string) *Client {
	return &Client{
		ID:     "client-" + userID,
		UserID: userID,
		Send:   make(chan []byte, 8),
		Rooms:  make(map[string]bool),
	}
}

func TestBroadcastToRoomReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	inRoom := newTestClient("u1")
	outside := newTestClient("u2")

	hub.JoinRoom(inRoom, "org:1")
	hub.JoinRoom(outside, "org:2")

	b := NewBroadcaster(hub)
	b.MemberAdded("1", "u3")

	require.Len(t, inRoom.Send, 1)
	assert.Len(t, outside.Send, 0)

	var msg Message
	require.NoError(t, json.Unmarshal(<-inRoom.Send, &msg))
	assert.Equal(t, MessageMemberAdded, msg.Type)
	assert.Equal(t, "1", msg.Payload["organization_id"])
	assert.Equal(t, "u3", msg.Payload["user_id"])
	assert.False(t, msg.Timestamp.IsZero())
}

func TestBroadcastDropsMessagesForSlowConsumers(t *testing.T) {
	hub := NewHub()
	slow := &Client{
		ID:     "slow",
		UserID: "u1",
		Send:   make(chan []byte), // unbuffered, nobody reading
		Rooms:  make(map[string]bool),
	}
	hub.JoinRoom(slow, "org:1")

	// Must not block.
	hub.BroadcastToRoom("org:1", Message{Type: MessagePing})
}

func TestLeaveRoomRemovesEmptyRooms(t *testing.T) {
	hub := NewHub()
	c := newTestClient("u1")

	hub.JoinRoom(c, "org:1")
	hub.LeaveRoom(c, "org:1")

	b := NewBroadcaster(hub)
	b.OrganizationUpdated("1", "Acme")
	assert.Len(t, c.Send, 0)
}

func TestNilBroadcasterIsSafe(t *testing.T) {
	var b *Broadcaster
	b.MemberAdded("1", "u1")
	b.MemberRemoved("1", "u1")
	b.MemberLevelUpdated("1", "u1", "administrator")
	b.InviteCreated("1", "x@y.io")
	b.OrganizationUpdated("1", "Acme")
}
