package delivery

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Vovarama1992/viewer_host/internal/document"
)

type DocumentHandler struct {
	docs document.Catalog
	log  *logger.ZapLogger
}

func NewDocumentHandler(docs document.Catalog, log *logger.ZapLogger) *DocumentHandler {
	return &DocumentHandler{
		docs: docs,
		log:  log,
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	refs, err := h.docs.List(r.Context())
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "db error", Error: err})
		http.Error(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if refs == nil {
		refs = []document.Reference{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(refs)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ref, err := h.docs.Get(r.Context(), id)
	if err == document.ErrNotFound {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "db error", Error: err})
		http.Error(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.docs.Release(r.Context(), ref); err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "release failed", Error: err})
		http.Error(w, "failed to release document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
