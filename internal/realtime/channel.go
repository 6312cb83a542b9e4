package realtime

import (
	"context"

	"collabdoc/store"
)

// MessageHandler is invoked once per message published on the topic, in
// the order the transport delivers them.
type MessageHandler func(Message)

// PresenceHandler is invoked with the full current roster whenever
// membership changes. Snapshots are authoritative, not deltas.
type PresenceHandler func([]RosterEntry)

// Channel is the pub/sub contract over one document's topic. One topic per
// document, derived deterministically from the document id. Publish is
// fire-and-forget: callers await nothing beyond the call's own error.
type Channel interface {
	Subscribe(ctx context.Context, identity store.Identity, meta PresenceMeta) error
	OnMessage(handler MessageHandler)
	OnPresence(handler PresenceHandler)
	Publish(ctx context.Context, msgType string, payload interface{}) error
	// UpdateCursor refreshes this member's cursor offset in the presence
	// roster and triggers a snapshot to all members.
	UpdateCursor(ctx context.Context, offset int) error
	Close() error
}

// Topic derives the per-document topic name.
func Topic(documentID string) string {
	return "doc:" + documentID
}
