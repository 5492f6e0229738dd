package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/winnowhq/winnow/internal/batches"
	"github.com/winnowhq/winnow/pkg/handlers"
	"github.com/winnowhq/winnow/pkg/routes"
	"github.com/winnowhq/winnow/pkg/storage"
)

// payloadHandler serves the archived raw payload of a batch from blob
// storage, for audit and re-submission after a failed ingest.
type payloadHandler struct {
	batches batches.System
	store   storage.System
	logger  *slog.Logger
}

func newPayloadHandler(
	sys batches.System,
	store storage.System,
	logger *slog.Logger,
) *payloadHandler {
	return &payloadHandler{
		batches: sys,
		store:   store,
		logger:  logger.With("handler", "payload"),
	}
}

func (h *payloadHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/batches",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}/payload", Handler: h.download},
		},
	}
}

func (h *payloadHandler) download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, batches.ErrNotFound)
		return
	}

	b, err := h.batches.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, batches.MapHTTPStatus(err), err)
		return
	}

	body, err := h.store.Download(r.Context(), b.StorageKey)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
