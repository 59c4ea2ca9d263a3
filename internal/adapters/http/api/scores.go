package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/clicker/internal/adapters/mq/queue"
	"github.com/okian/clicker/internal/adapters/repository"
	"github.com/okian/clicker/internal/domain/document"
	"github.com/okian/clicker/internal/domain/types"
)

// maxDocumentBytes bounds a published document body.
const maxDocumentBytes = 4 << 20

// ScoreDependencies is the document store as seen by the API.
type ScoreDependencies interface {
	Publish(ctx context.Context, doc document.Document) (types.PublishResult, error)
	Query(ctx context.Context, hash string) (document.Document, error)
}

// ScoresHandler serves published score documents.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandlePublish handles POST /api/scores. The body is an exported document;
// its hash is recomputed server-side.
func (h *ScoresHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	const op = "api.publish_scores"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	doc, err := document.ParseJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(types.NoticeFormat), err)
		return
	}

	res, err := h.deps.Publish(r.Context(), doc)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, res)
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, res)
	case errors.Is(err, document.ErrFormat):
		writeError(w, http.StatusBadRequest, string(types.NoticeFormat), err)
	case errors.Is(err, queue.ErrBackpressure):
		writeError(w, http.StatusServiceUnavailable, "backpressure", wrapKind(op, ErrBackpressure, err))
	default:
		writeError(w, http.StatusInternalServerError, string(types.NoticeTransport), err)
	}
}

// HandleGet handles GET /api/scores/{hash}.
func (h *ScoresHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	doc, err := h.deps.Query(r.Context(), hash)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, doc)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, string(types.NoticeNotFound), err)
	case errors.Is(err, repository.ErrInvalidHash):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind("api.get_scores", ErrBadRequest, err))
	case errors.Is(err, queue.ErrBackpressure):
		writeError(w, http.StatusServiceUnavailable, "backpressure", wrapKind("api.get_scores", ErrBackpressure, err))
	default:
		writeError(w, http.StatusInternalServerError, string(types.NoticeTransport), err)
	}
}
