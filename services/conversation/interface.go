package conversation

import "context"

// ConversationService drives the scripted booking dialog. One call handles
// one inbound message and returns the reply to show the caller.
type ConversationService interface {
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)
}
