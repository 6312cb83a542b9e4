package realtime

import (
	"encoding/json"
	"errors"

	"collabdoc/store"
)

const (
	ContentUpdateType = "content-update" // Document text changed
	TitleUpdateType   = "title-update"   // Document title committed
	CommentAddedType  = "comment-added"  // New comment anchored
	PresenceType      = "presence"       // Full roster snapshot
	CursorType        = "cursor"         // User moved their cursor
)

// Message is the transport encoding of a state change. It is transient:
// never persisted as its own record.
type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"document_id"`
	SenderID   string          `json:"sender_id"`
	Payload    json.RawMessage `json:"payload"`
}

type ContentUpdate struct {
	Content   string `json:"content"`
	UpdatedBy string `json:"updated_by"`
}

type TitleUpdate struct {
	Title     string `json:"title"`
	UpdatedBy string `json:"updated_by"`
}

type CommentAdded struct {
	Comment store.Comment `json:"comment"`
}

type CursorUpdate struct {
	Offset int `json:"offset"`
}

// PresenceMeta travels with a subscription and in roster snapshots.
type PresenceMeta struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Cursor      int    `json:"cursor"`
}

// RosterEntry is one member of a presence snapshot.
type RosterEntry struct {
	UserID   string       `json:"user_id"`
	Metadata PresenceMeta `json:"metadata"`
}

var ErrMalformedPayload = errors.New("malformed message payload")

// DecodePayload unmarshals a message payload into dst, mapping any decode
// failure to ErrMalformedPayload so handlers can tolerate and skip.
func DecodePayload(msg Message, dst interface{}) error {
	if len(msg.Payload) == 0 {
		return ErrMalformedPayload
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		return ErrMalformedPayload
	}
	return nil
}

// Encode builds a message of the given type with a JSON payload.
func Encode(msgType, documentID, senderID string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, DocumentID: documentID, SenderID: senderID, Payload: raw}, nil
}
