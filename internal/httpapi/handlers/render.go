package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"scenecast/internal/httpkit"
	"scenecast/internal/jobs"
	apperrors "scenecast/internal/pkg/errors"
)

type renderRequest struct {
	ScriptText string         `json:"scriptText" validate:"required,min=50"`
	JobKey     string         `json:"jobKey" validate:"required,jobkey"`
	Options    map[string]any `json:"options"`
}

func (rr renderRequest) job() jobs.Request {
	return jobs.Request{ScriptText: rr.ScriptText, JobKey: rr.JobKey, Options: rr.Options}
}

type renderResponse struct {
	Success       bool          `json:"success"`
	OutputPath    string        `json:"outputPath"`
	ThumbnailPath string        `json:"thumbnailPath,omitempty"`
	VideoKey      string        `json:"videoKey,omitempty"`
	ThumbnailKey  string        `json:"thumbnailKey,omitempty"`
	Metrics       *jobs.Metrics `json:"metrics"`
	Message       string        `json:"message"`
}

type asyncResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

// shortID is the random suffix of a synchronous output name.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Render renders a script while the client waits.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) error {
	var req renderRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	outputName := fmt.Sprintf("%s_%s.mp4", req.JobKey, h.newSuffix())
	h.log.FromContext(r.Context()).Info("sync render requested", "job_key", req.JobKey, "output", outputName)

	// A client hanging up must not kill a render that is already running.
	res, err := h.renderer.Render(context.WithoutCancel(r.Context()), req.job(), outputName)
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusOK, renderResponse{
		Success:       true,
		OutputPath:    res.OutputPath,
		ThumbnailPath: res.ThumbnailPath,
		VideoKey:      res.VideoKey,
		ThumbnailKey:  res.ThumbnailKey,
		Metrics:       res.Metrics,
		Message:       "Animation rendered successfully",
	})
	return nil
}

// RenderAsync accepts a render and returns its task id without waiting.
func (h *Handler) RenderAsync(w http.ResponseWriter, r *http.Request) error {
	var req renderRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	taskID, err := h.tracker.Submit(r.Context(), req.job())
	if err != nil {
		return err
	}

	httpkit.WriteJSON(w, http.StatusAccepted, asyncResponse{
		Success: true,
		TaskID:  taskID,
		Message: "Rendering started in background",
	})
	return nil
}

// RenderStatus reports an async render.
func (h *Handler) RenderStatus(w http.ResponseWriter, r *http.Request) error {
	taskID := strings.TrimSpace(chi.URLParam(r, "taskId"))
	if taskID == "" {
		return apperrors.ValidationField("taskId", "task id is required")
	}

	job, err := h.tracker.Query(r.Context(), taskID)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, job)
	return nil
}
