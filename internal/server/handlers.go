package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/WeWriteApp/pagechain/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the API route handlers.
type Handler struct {
	versions  *service.VersionService
	backlinks *service.BacklinkService
	graphs    *service.GraphService
	propagate *service.PropagationService
	graphAge  time.Duration
}

func NewHandler(versions *service.VersionService, backlinks *service.BacklinkService, graphs *service.GraphService, propagate *service.PropagationService, graphAge time.Duration) *Handler {
	return &Handler{
		versions:  versions,
		backlinks: backlinks,
		graphs:    graphs,
		propagate: propagate,
		graphAge:  graphAge,
	}
}

// writeServiceError maps the service taxonomy onto HTTP statuses.
// NotFound and PermissionDenied both read as a generic not-found so
// private pages do not leak their existence.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrPermissionDenied):
		writeJSON(w, http.StatusNotFound, errorBody("page not found"))
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("page was modified concurrently, reload and retry"))
	case errors.Is(err, service.ErrCorrupted):
		writeJSON(w, http.StatusNotFound, errorBody("page not found"))
	case errors.Is(err, service.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("temporarily unavailable, please retry"))
	default:
		logrus.Errorf("unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doc, res, err := h.versions.CreateDocument(r.Context(), req.ID, req.Title, req.OwnerID, req.Content, req.IsPublic)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": doc,
		"version":  res,
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.versions.GetDocument(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	var req saveVersionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.versions.SaveVersion(r.Context(), chi.URLParam(r, "id"), req.Content, req.AuthorID, service.SaveOptions{
		BatchGroupID:    req.BatchGroupID,
		PreviousContent: req.PreviousContent,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	versions, err := h.versions.ListVersions(r.Context(), chi.URLParam(r, "id"), userID(r), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versions": versions,
		"total":    len(versions),
	})
}

func (h *Handler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.versions.RestoreVersion(r.Context(), chi.URLParam(r, "id"), req.VersionID, req.AuthorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetBacklinks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	summaries, err := h.backlinks.GetBacklinks(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"backlinks": summaries,
		"total":     len(summaries),
	})
}

func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	entry, err := h.graphs.Summary(r.Context(), chi.URLParam(r, "id"), h.graphAge)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ChangeTitle renames a document and kicks off label propagation in
// the background; the response does not wait for the corpus rewrite.
func (h *Handler) ChangeTitle(w http.ResponseWriter, r *http.Request) {
	var req titleChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := h.versions.GetDocument(r.Context(), id, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	oldTitle := req.OldTitle
	if oldTitle == "" {
		oldTitle = doc.Title
	}

	if err := h.versions.UpdateTitle(r.Context(), id, req.UserID, req.NewTitle); err != nil {
		writeServiceError(w, err)
		return
	}

	go func() {
		ctx, cancel := service.BackgroundContext()
		defer cancel()
		if _, err := h.propagate.PropagateTitleChange(ctx, id, req.NewTitle, oldTitle); err != nil {
			logrus.Errorf("title propagation failed for %s: %v", id, err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "title": req.NewTitle})
}

func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.versions.SetVisibility(r.Context(), chi.URLParam(r, "id"), req.UserID, req.IsPublic); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"isPublic": req.IsPublic})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.versions.DeleteDocument(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
