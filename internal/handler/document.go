package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"athena/internal/domain/models"
	"athena/internal/domain/repositories"
	"athena/internal/httputil"
	"athena/internal/service/ingest"
)

// DocumentHandler manages knowledge-base documents.
type DocumentHandler struct {
	docs   repositories.DocumentRepository
	ingest *ingest.Service
	logger *slog.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(docs repositories.DocumentRepository, ingestSvc *ingest.Service, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, ingest: ingestSvc, logger: logger}
}

type createDocumentRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

func (r createDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Text, validation.Required, validation.Length(1, 10*1024*1024)),
	)
}

// Create handles POST /api/documents. The document is accepted in
// processing state; indexing completes in the background and the
// status field reports progress.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.ingest.Ingest(r.Context(), userID, req.Filename, req.Text)
	if err != nil {
		h.logger.Error("failed to accept document", "filename", req.Filename, "error", err)
		respondDomainError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, doc)
}

// List handles GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	docs, err := h.docs.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list documents", "user_id", userID, "error", err)
		respondDomainError(w, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// Get handles GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.docs.Get(r.Context(), id, userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete handles DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.GetUserID(r)
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.ingest.Delete(r.Context(), id, userID); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
