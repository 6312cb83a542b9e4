package model

import "time"

type CreateDocRequest struct {
	ID    string `json:"id,omitempty"` // Caller-assigned; generated when empty
	Title string `json:"title"`
}

type CreateDocResponse struct {
	DocID string `json:"document_id"`
}

type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	IsOwner   bool      `json:"is_owner"`
}

type ResolveCommentRequest struct {
	CommentID string `json:"comment_id"`
}
