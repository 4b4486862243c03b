package delivery

import (
	"errors"
	"io"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Vovarama1992/viewer_host/internal/document"
	"github.com/Vovarama1992/viewer_host/internal/host"
	"github.com/Vovarama1992/viewer_host/internal/viewer"
)

type ViewerHandler struct {
	host host.ViewerHost
	log  *logger.ZapLogger
}

func NewViewerHandler(h host.ViewerHost, log *logger.ZapLogger) *ViewerHandler {
	return &ViewerHandler{
		host: h,
		log:  log,
	}
}

// SelectFile is the file-picker endpoint: multipart upload that becomes the
// container's current document.
func (h *ViewerHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	if container == "" {
		http.Error(w, "missing container", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "invalid multipart", Error: err})
		http.Error(w, "invalid multipart: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "missing file", Error: err})
		http.Error(w, "missing file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	ref, err := h.host.SelectUpload(
		r.Context(),
		container,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		h.writeBindError(w, ref, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"document": ref,
		"status":   h.host.Status(container),
	})
}

// Bind points the container at a URL or an already-registered document.
func (h *ViewerHandler) Bind(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		URL        string `json:"url"`
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	var ref document.Reference
	switch {
	case req.URL != "":
		ref, err = h.host.SelectURL(r.Context(), container, req.URL)
	case req.DocumentID != "":
		var id uuid.UUID
		id, err = uuid.Parse(req.DocumentID)
		if err != nil {
			http.Error(w, "invalid document_id", http.StatusBadRequest)
			return
		}
		ref, err = h.host.SelectDocument(r.Context(), container, id)
	default:
		http.Error(w, "missing url or document_id", http.StatusBadRequest)
		return
	}

	if err != nil {
		h.writeBindError(w, ref, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"document": ref,
		"status":   h.host.Status(container),
	})
}

func (h *ViewerHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")

	released, err := h.host.Unselect(r.Context(), container)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "error", Message: "unbind failed", Error: err})
		http.Error(w, "unbind failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]any{"released": released})
}

func (h *ViewerHandler) Status(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	h.writeJSON(w, h.host.Status(container))
}

// writeBindError keeps the load-failure contract: the failure is reported as
// a message, the stored reference (if any) is returned for manual retry.
func (h *ViewerHandler) writeBindError(w http.ResponseWriter, ref document.Reference, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, document.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, viewer.ErrNoDocument):
		status = http.StatusBadRequest
	case errors.Is(err, viewer.ErrSuperseded):
		status = http.StatusConflict
	case errors.Is(err, viewer.ErrClosed):
		status = http.StatusServiceUnavailable
	}

	h.log.Log(logger.LogEntry{Level: "error", Message: "bind failed", Error: err})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	out := map[string]any{"error": err.Error()}
	if !ref.IsZero() {
		out["document"] = ref
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (h *ViewerHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
