package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/flowponder/ponderd/internal/domain"
)

// SnapshotsHandler exposes archived market snapshots from object storage.
type SnapshotsHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewSnapshotsHandler creates a SnapshotsHandler.
func NewSnapshotsHandler(blobs domain.BlobReader, logger *slog.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{blobs: blobs, logger: logger}
}

// ListSnapshots lists archived snapshot objects, optionally under a prefix.
// GET /api/snapshots?prefix=snapshots/2026-08
func (h *SnapshotsHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "snapshot storage not configured")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "snapshots/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list snapshots failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": infos,
		"total":     len(infos),
	})
}

// GetSnapshot streams one archived snapshot file.
// GET /api/snapshots/{date}/{view}
func (h *SnapshotsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "snapshot storage not configured")
		return
	}

	path := "snapshots/" + r.PathValue("date") + "/" + r.PathValue("view") + ".jsonl"
	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get snapshot failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read snapshot")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "snapshot stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
