// Package comms is a narrow client for the video/chat communications
// provider. Each accepted booking gets a conversation; participants
// join with short-lived access tokens carrying video and chat grants.
package comms

import (
	"context"
	"strings"
)

// Conversation identifies a provisioned conversation session.
type Conversation struct {
	SID            string
	ChatServiceSID string
}

// Client is the narrow surface the scheduler needs from the provider.
type Client interface {
	// EnsureConversation creates the conversation between a staff and a
	// client, or brings forward the existing one. Conversations persist
	// through the full history of the two users.
	EnsureConversation(ctx context.Context, staffUserID, clientUserID string) (*Conversation, error)
	// AccessToken mints a short-lived token with a grant for the named
	// video room and a chat grant for the conversation service.
	AccessToken(identity, roomName string, conv *Conversation) (string, error)
	// ChatToken mints a token carrying only the chat grant.
	ChatToken(identity string, conv *Conversation) (string, error)
	// CompleteRoom signals the provider to end the named video room.
	CompleteRoom(ctx context.Context, roomName string) error
}

const roomNamePrefix = "TELEHEALTH"

// RoomNameFor derives the stable room name for a booking, so the same
// name can be granted at creation and completed later.
func RoomNameFor(bookingID string) string {
	return roomNamePrefix + "_" + strings.ToUpper(strings.ReplaceAll(bookingID, "-", ""))
}
