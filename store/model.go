package store

import "time"

type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"` // Opaque serialized rich text from the editor surface
	OwnerID   string    `json:"owner_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is anchored to plain-text character offsets captured at creation
// time. Anchors are never rebased when the document is edited afterwards.
type Comment struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Body        string    `json:"body"`
	AnchorStart int       `json:"anchor_start"`
	AnchorEnd   int       `json:"anchor_end"`
	CreatedAt   time.Time `json:"created_at"`
	Resolved    bool      `json:"resolved"`
}

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// PresenceEntry is one connected collaborator other than self. Entries are
// replaced wholesale on every roster snapshot; liveness is the transport's
// responsibility.
type PresenceEntry struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	CursorOffset int       `json:"cursor_offset"`
	LastSeen     time.Time `json:"last_seen"`
}
