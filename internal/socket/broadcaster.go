// internal/socket/broadcaster.go
package socket

import "time"

// Broadcaster publishes organization events to connected clients. All
// events go to the "org:<id>" room so every member of the organization
// with an open socket sees them.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a broadcaster backed by the given hub.
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func (b *Broadcaster) broadcast(organizationID string, msgType MessageType, payload map[string]any) {
	if b == nil || b.hub == nil {
		return
	}
	b.hub.BroadcastToRoom("org:"+organizationID, Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}

// MemberAdded notifies the organization that a user joined.
func (b *Broadcaster) MemberAdded(organizationID, userID string) {
	b.broadcast(organizationID, MessageMemberAdded, map[string]any{
		"organization_id": organizationID,
		"user_id":         userID,
	})
}

// MemberRemoved notifies the organization that a member left or was removed.
func (b *Broadcaster) MemberRemoved(organizationID, userID string) {
	b.broadcast(organizationID, MessageMemberRemoved, map[string]any{
		"organization_id": organizationID,
		"user_id":         userID,
	})
}

// MemberLevelUpdated notifies the organization about a level change.
func (b *Broadcaster) MemberLevelUpdated(organizationID, userID, level string) {
	b.broadcast(organizationID, MessageMemberLevelUpdated, map[string]any{
		"organization_id": organizationID,
		"user_id":         userID,
		"level":           level,
	})
}

// InviteCreated notifies the organization that an invite was created.
func (b *Broadcaster) InviteCreated(organizationID, targetEmail string) {
	b.broadcast(organizationID, MessageInviteCreated, map[string]any{
		"organization_id": organizationID,
		"target_email":    targetEmail,
	})
}

// OrganizationUpdated notifies members that organization settings changed.
func (b *Broadcaster) OrganizationUpdated(organizationID, name string) {
	b.broadcast(organizationID, MessageOrganizationUpdated, map[string]any{
		"organization_id": organizationID,
		"name":            name,
	})
}
