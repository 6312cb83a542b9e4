package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"collabdoc/pkg/logger"
	"collabdoc/store"
)

// DocumentRepository is the Postgres-backed store.Store.
type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, filter store.DocumentFilter, limit int) ([]store.Document, error) {
	query := "SELECT id, title, content, owner_id, updated_at FROM documents"
	var conds []string
	var args []interface{}
	if filter.ID != "" {
		args = append(args, filter.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents: %v", err)
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var d store.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.OwnerID, &d.UpdatedAt); err != nil {
			logger.Sugar.Errorf("Failed to scan document row: %v", err)
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc store.Document) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, owner_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET title = $2, content = $3, owner_id = $4, updated_at = $5`,
		doc.ID, doc.Title, doc.Content, doc.OwnerID, doc.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to upsert document %s: %v", doc.ID, err)
	}
	return err
}

func (r *DocumentRepository) ListComments(ctx context.Context, documentID string) ([]store.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, document_id, author_id, author_name, body, anchor_start, anchor_end, created_at, resolved
		FROM comments WHERE document_id = $1 ORDER BY created_at DESC`, documentID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list comments for doc %s: %v", documentID, err)
		return nil, err
	}
	defer rows.Close()

	var comments []store.Comment
	for rows.Next() {
		var c store.Comment
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.AuthorID, &c.AuthorName, &c.Body,
			&c.AnchorStart, &c.AnchorEnd, &c.CreatedAt, &c.Resolved); err != nil {
			logger.Sugar.Errorf("Failed to scan comment row: %v", err)
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *DocumentRepository) CreateComment(ctx context.Context, c store.Comment) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO comments (id, document_id, author_id, author_name, body, anchor_start, anchor_end, created_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.DocumentID, c.AuthorID, c.AuthorName, c.Body,
		c.AnchorStart, c.AnchorEnd, c.CreatedAt, c.Resolved)
	if err != nil {
		logger.Sugar.Errorf("Failed to create comment on doc %s: %v", c.DocumentID, err)
	}
	return err
}

func (r *DocumentRepository) ResolveComment(ctx context.Context, commentID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET resolved = NOT resolved WHERE id = $1", commentID)
	if err != nil {
		logger.Sugar.Errorf("Failed to resolve comment %s: %v", commentID, err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
