package document

import (
	"encoding/json"
	"net/http"

	"collabdoc/internal/document/model"
	"collabdoc/internal/document/service"
	"collabdoc/middleware"
	"collabdoc/pkg/logger"
	"collabdoc/store"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity := middleware.IdentityFrom(r.Context())

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default to empty

	docID, err := h.Service.CreateDocument(r.Context(), identity.ID, req.ID, req.Title)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, "Failed to create document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.CreateDocResponse{DocID: docID})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	identity := middleware.IdentityFrom(r.Context())

	docs, err := h.Service.ListDocuments(r.Context(), identity.ID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list documents: %v", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []model.DocumentSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	comments, err := h.Service.GetComments(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to get comments for doc %s: %v", docID, err)
		http.Error(w, "Failed to get comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []store.Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(comments)
}

func (h *DocumentHandler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.ResolveCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommentID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.ResolveComment(r.Context(), req.CommentID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to resolve comment %s: %v", req.CommentID, err)
		http.Error(w, "Failed to resolve comment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Comment resolved"))
}
