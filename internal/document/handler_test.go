package document

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collabdoc/internal/document/model"
	"collabdoc/internal/document/service"
	"collabdoc/middleware"
	"collabdoc/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	docs     []store.Document
	comments []store.Comment
	upserts  []store.Document
	failAll  bool
	resolved []string
}

func (f *fakeStore) ListDocuments(ctx context.Context, filter store.DocumentFilter, limit int) ([]store.Document, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []store.Document
	for _, d := range f.docs {
		if filter.OwnerID != "" && d.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
func (f *fakeStore) UpsertDocument(ctx context.Context, doc store.Document) error {
	if f.failAll {
		return errors.New("store down")
	}
	f.upserts = append(f.upserts, doc)
	return nil
}
func (f *fakeStore) ListComments(ctx context.Context, documentID string) ([]store.Comment, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	return f.comments, nil
}
func (f *fakeStore) CreateComment(ctx context.Context, c store.Comment) error { return nil }
func (f *fakeStore) ResolveComment(ctx context.Context, id string) error {
	f.resolved = append(f.resolved, id)
	return nil
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := context.WithValue(req.Context(), middleware.IdentityKey, &store.Identity{
		ID: "user-1", DisplayName: "User One",
	})
	return req.WithContext(ctx)
}

func TestCreateDocument(t *testing.T) {
	st := &fakeStore{}
	h := NewDocumentHandler(service.NewDocumentService(st))

	rec := httptest.NewRecorder()
	h.CreateDocument(rec, authedRequest(http.MethodPost, "/api/documents/create", `{"title":"Plan"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.CreateDocResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.DocID)

	require.Len(t, st.upserts, 1)
	assert.Equal(t, "Plan", st.upserts[0].Title)
	assert.Equal(t, "user-1", st.upserts[0].OwnerID)
}

func TestCreateDocumentKeepsCallerAssignedID(t *testing.T) {
	st := &fakeStore{}
	h := NewDocumentHandler(service.NewDocumentService(st))

	rec := httptest.NewRecorder()
	h.CreateDocument(rec, authedRequest(http.MethodPost, "/api/documents/create", `{"id":"ext-7","title":""}`))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.upserts, 1)
	assert.Equal(t, "ext-7", st.upserts[0].ID)
	assert.Equal(t, "Untitled document", st.upserts[0].Title)
}

func TestGetDocumentsListsOwned(t *testing.T) {
	st := &fakeStore{docs: []store.Document{
		{ID: "d1", Title: "Mine", OwnerID: "user-1", UpdatedAt: time.Now()},
		{ID: "d2", Title: "Theirs", OwnerID: "user-9", UpdatedAt: time.Now()},
	}}
	h := NewDocumentHandler(service.NewDocumentService(st))

	rec := httptest.NewRecorder()
	h.GetDocuments(rec, authedRequest(http.MethodGet, "/api/documents", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var docs []model.DocumentSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)
	assert.True(t, docs[0].IsOwner)
}

func TestGetCommentsRequiresDocID(t *testing.T) {
	h := NewDocumentHandler(service.NewDocumentService(&fakeStore{}))

	rec := httptest.NewRecorder()
	h.GetComments(rec, authedRequest(http.MethodGet, "/api/documents/comments", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComments(t *testing.T) {
	st := &fakeStore{comments: []store.Comment{
		{ID: "c1", DocumentID: "d1", Body: "fix this", AnchorStart: 10, AnchorEnd: 14},
	}}
	h := NewDocumentHandler(service.NewDocumentService(st))

	rec := httptest.NewRecorder()
	h.GetComments(rec, authedRequest(http.MethodGet, "/api/documents/comments?docId=d1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var comments []store.Comment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&comments))
	require.Len(t, comments, 1)
	assert.Equal(t, 10, comments[0].AnchorStart)
}

func TestResolveComment(t *testing.T) {
	st := &fakeStore{}
	h := NewDocumentHandler(service.NewDocumentService(st))

	rec := httptest.NewRecorder()
	h.ResolveComment(rec, authedRequest(http.MethodPost, "/api/documents/comments/resolve", `{"comment_id":"c1"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"c1"}, st.resolved)
}

func TestHandlersRejectWrongMethod(t *testing.T) {
	h := NewDocumentHandler(service.NewDocumentService(&fakeStore{}))

	rec := httptest.NewRecorder()
	h.CreateDocument(rec, authedRequest(http.MethodGet, "/api/documents/create", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.GetDocuments(rec, authedRequest(http.MethodPost, "/api/documents", ""))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
