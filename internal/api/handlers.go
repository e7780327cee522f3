package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/figlinq/contents-gateway/internal/apperr"
	"github.com/figlinq/contents-gateway/internal/contents"
)

// Handler holds API route handlers over the content provider.
type Handler struct {
	provider contents.Provider
}

// NewHandler creates a new Handler.
func NewHandler(provider contents.Provider) *Handler {
	return &Handler{provider: provider}
}

// contentPath extracts the logical path from the URL (everything after
// /contents/). Supports encoded slashes from generated clients
// (e.g. reports%2Fq3.ipynb). The empty path is the root.
func contentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// splitCheckpoint detects the checkpoint suffix of a contents URL:
// "<path>/checkpoints" or "<path>/checkpoints/<id>".
func splitCheckpoint(p string) (path, checkpointID string, ok bool) {
	if rest, found := strings.CutSuffix(p, "/checkpoints"); found {
		return rest, "", true
	}
	idx := strings.LastIndex(p, "/checkpoints/")
	if idx < 0 {
		return p, "", false
	}
	id := p[idx+len("/checkpoints/"):]
	if id == "" || strings.Contains(id, "/") {
		return p, "", false
	}
	return p[:idx], id, true
}

// writeError maps adapter errors onto HTTP statuses. Remote rejections and
// transport failures surface as gateway errors rather than internal ones.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	case errors.Is(err, apperr.ErrUnsupportedType):
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.ErrUnsupportedType.Error()))
		return
	case errors.Is(err, apperr.ErrDisposed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("provider disposed"))
		return
	}

	var remoteErr *apperr.RemoteError
	var transportErr *apperr.TransportError
	var validationErr *apperr.ValidationError
	switch {
	case errors.As(err, &remoteErr):
		slog.Error(op+" rejected by remote", slog.String("path", path), slog.Int("status", remoteErr.Status), slog.String("error", remoteErr.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(remoteErr.Error()))
	case errors.As(err, &transportErr):
		slog.Error(op+" transport failure", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("remote unreachable"))
	case errors.As(err, &validationErr):
		slog.Error(op+" produced invalid model", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(validationErr.Error()))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Get handles GET /contents and GET /contents/*.
// Query: content=0 suppresses content, page/page_size paginate listings.
// The checkpoint suffix routes to the checkpoint listing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if p, id, isCkpt := splitCheckpoint(path); isCkpt {
		// Only the bare /checkpoints suffix is a listing; individual
		// checkpoints are not addressable resources.
		if id != "" {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		list, err := h.provider.ListCheckpoints(r.Context(), p)
		if err != nil {
			writeError(w, "list checkpoints", p, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}

	q := r.URL.Query()
	opts := contents.GetOptions{Content: q.Get("content") != "0"}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	entry, err := h.provider.Get(r.Context(), path, opts)
	if err != nil {
		writeError(w, "get", path, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Create handles POST /contents and POST /contents/*: untitled creation or
// server-side copy into the target directory, or checkpoint create/restore
// when the checkpoint suffix is present.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if p, id, isCkpt := splitCheckpoint(path); isCkpt {
		h.checkpointCreateOrRestore(w, r, p, id)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	switch {
	case req.CopyFrom != "":
		entry, err := h.provider.Copy(r.Context(), req.CopyFrom, path)
		if err != nil {
			writeError(w, "copy", req.CopyFrom, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	case req.Type != "":
		entry, err := h.provider.NewUntitled(r.Context(), contents.NewUntitledOptions{
			Path: path,
			Type: contents.Type(req.Type),
		})
		if err != nil {
			writeError(w, "new untitled", path, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	default:
		writeJSON(w, http.StatusBadRequest, errorBody("either type or copy_from is required"))
	}
}

func (h *Handler) checkpointCreateOrRestore(w http.ResponseWriter, r *http.Request, path, id string) {
	if id == "" {
		ckpt, err := h.provider.CreateCheckpoint(r.Context(), path)
		if err != nil {
			writeError(w, "create checkpoint", path, err)
			return
		}
		writeJSON(w, http.StatusCreated, ckpt)
		return
	}
	if err := h.provider.RestoreCheckpoint(r.Context(), path, id); err != nil {
		writeError(w, "restore checkpoint", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Save handles PUT /contents/*.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	entry, err := h.provider.Save(r.Context(), path, contents.SaveOptions{Content: req.Content})
	if err != nil {
		writeError(w, "save", path, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Rename handles PATCH /contents/*.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("new path is required"))
		return
	}

	entry, err := h.provider.Rename(r.Context(), path, req.Path)
	if err != nil {
		writeError(w, "rename", path, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /contents/*, including checkpoint deletion via the
// checkpoint suffix.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if p, id, isCkpt := splitCheckpoint(path); isCkpt && id != "" {
		if err := h.provider.DeleteCheckpoint(r.Context(), p, id); err != nil {
			writeError(w, "delete checkpoint", p, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	if err := h.provider.Delete(r.Context(), path); err != nil {
		writeError(w, "delete", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download handles GET /download?path=: redirects to the direct
// file-bytes URL on the remote.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	http.Redirect(w, r, h.provider.DownloadURL(path), http.StatusFound)
}
