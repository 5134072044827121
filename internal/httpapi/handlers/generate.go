package handlers

import (
	"net/http"

	"scenecast/internal/animation"
	"scenecast/internal/httpkit"
)

const (
	defaultDuration   = 5.0
	defaultFrameRate  = 30
	defaultBackground = "#000000"
)

type generateRequest struct {
	Prompt          string   `json:"prompt" validate:"required,min=10,max=1000"`
	Duration        *float64 `json:"duration" validate:"omitnil,min=1,max=60"`
	Resolution      string   `json:"resolution" validate:"omitempty,oneof=480p 720p 1080p"`
	FrameRate       *int     `json:"frameRate" validate:"omitnil,min=24,max=60"`
	BackgroundColor string   `json:"backgroundColor" validate:"omitempty,hexcolor6"`
}

func (g generateRequest) options() animation.GenerateOptions {
	opts := animation.GenerateOptions{
		Duration:        defaultDuration,
		Resolution:      g.Resolution,
		FrameRate:       defaultFrameRate,
		BackgroundColor: g.BackgroundColor,
	}
	if g.Duration != nil {
		opts.Duration = *g.Duration
	}
	if g.FrameRate != nil {
		opts.FrameRate = *g.FrameRate
	}
	if opts.Resolution == "" {
		opts.Resolution = animation.DefaultResolution.Label
	}
	if opts.BackgroundColor == "" {
		opts.BackgroundColor = defaultBackground
	}
	return opts
}

type generateResponse struct {
	Success        bool    `json:"success"`
	ScriptText     string  `json:"scriptText"`
	Category       string  `json:"category"`
	Message        string  `json:"message"`
	GenerationTime float64 `json:"generationTime"`
}

// Generate turns a prompt into a scene script.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) error {
	var req generateRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	out, err := h.gen.Generate(req.Prompt, req.options())
	if err != nil {
		return err
	}

	h.log.FromContext(r.Context()).Info("script generated",
		"category", string(out.Category),
		"duration_ms", out.Elapsed.Milliseconds(),
	)
	httpkit.WriteJSON(w, http.StatusOK, generateResponse{
		Success:        true,
		ScriptText:     out.Script,
		Category:       string(out.Category),
		Message:        "Scene script generated successfully",
		GenerationTime: out.Elapsed.Seconds(),
	})
	return nil
}
