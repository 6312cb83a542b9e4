package store

import "context"

// DocumentFilter narrows a ListDocuments query. Zero-value fields are not
// applied.
type DocumentFilter struct {
	ID      string
	OwnerID string
}

// Store is the durable record storage the sync engine and comment layer
// depend on. Every call is independently fallible; callers treat failures
// as non-fatal and keep local state usable.
type Store interface {
	// ListDocuments returns at most limit documents matching the filter,
	// most recently updated first. limit <= 0 means no limit.
	ListDocuments(ctx context.Context, filter DocumentFilter, limit int) ([]Document, error)

	// UpsertDocument creates the document or overwrites title/content/owner
	// of an existing one. Last write wins.
	UpsertDocument(ctx context.Context, doc Document) error

	// ListComments returns all comments for a document in descending
	// creation order.
	ListComments(ctx context.Context, documentID string) ([]Comment, error)

	CreateComment(ctx context.Context, c Comment) error

	// ResolveComment flips the resolved flag of a comment.
	ResolveComment(ctx context.Context, commentID string) error
}
