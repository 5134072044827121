package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "scenecast/internal/pkg/errors"
	"scenecast/internal/ports"
)

// Artifact streams a published object by key.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) error {
	if h.sp == nil {
		return apperrors.Unavailable("artifact storage")
	}
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		return apperrors.ValidationField("key", "artifact key is required")
	}

	rc, ct, size, err := h.sp.GetObject(r.Context(), key)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return apperrors.NotFound("artifact", key)
		}
		return apperrors.Wrap(err, "handlers.artifact", "could not read artifact")
	}
	defer rc.Close()

	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Warn("artifact stream interrupted", "key", key, "error", err.Error())
	}
	return nil
}
