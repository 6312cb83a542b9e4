package service

import (
	"context"
	"errors"
	"time"

	"collabdoc/internal/document/model"
	"collabdoc/store"
)

type DocumentService struct {
	Store store.Store
}

func NewDocumentService(st store.Store) *DocumentService {
	return &DocumentService{Store: st}
}

// CreateDocument registers a document record. The id is caller-assigned
// when provided, generated otherwise.
func (s *DocumentService) CreateDocument(ctx context.Context, userID, id, title string) (string, error) {
	if id == "" {
		id = store.NewID()
	}
	if id == "" {
		return "", errors.New("failed to generate document ID")
	}
	if title == "" {
		title = "Untitled document"
	}
	err := s.Store.UpsertDocument(ctx, store.Document{
		ID:        id,
		Title:     title,
		Content:   "",
		OwnerID:   userID,
		UpdatedAt: time.Now(),
	})
	return id, err
}

func (s *DocumentService) ListDocuments(ctx context.Context, userID string) ([]model.DocumentSummary, error) {
	docs, err := s.Store.ListDocuments(ctx, store.DocumentFilter{OwnerID: userID}, 0)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, model.DocumentSummary{
			ID:        d.ID,
			Title:     d.Title,
			UpdatedAt: d.UpdatedAt,
			IsOwner:   d.OwnerID == userID,
		})
	}
	return summaries, nil
}

func (s *DocumentService) GetComments(ctx context.Context, docID string) ([]store.Comment, error) {
	return s.Store.ListComments(ctx, docID)
}

func (s *DocumentService) ResolveComment(ctx context.Context, commentID string) error {
	return s.Store.ResolveComment(ctx, commentID)
}
