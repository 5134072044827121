package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scenecast/internal/httpkit"
	apperrors "scenecast/internal/pkg/errors"
)

type cleanupResponse struct {
	Success      bool     `json:"success"`
	DeletedCount int      `json:"deletedCount"`
	DeletedPaths []string `json:"deletedPaths"`
	Message      string   `json:"message"`
}

// Cleanup deletes every artifact whose filename contains the job key.
// Filesystem errors are logged by the file manager, never returned.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) error {
	jobKey := chi.URLParam(r, "jobKey")
	if !jobKeyRe.MatchString(jobKey) {
		return apperrors.ValidationField("jobKey", reasonJobKey)
	}

	removed := h.files.Purge(jobKey)
	if removed == nil {
		removed = []string{}
	}
	h.log.FromContext(r.Context()).Info("artifacts purged", "job_key", jobKey, "count", len(removed))

	httpkit.WriteJSON(w, http.StatusOK, cleanupResponse{
		Success:      true,
		DeletedCount: len(removed),
		DeletedPaths: removed,
		Message:      fmt.Sprintf("Cleaned up %d files", len(removed)),
	})
	return nil
}
