// Package httpapi assembles the HTTP surface of the render service.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"scenecast/internal/httpapi/handlers"
	"scenecast/internal/httpkit"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/pkg/middleware"
)

type Deps struct {
	Handlers       handlers.Deps
	AllowedOrigins []string
	Log            *logger.Logger
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	d.Handlers.Log = log

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAgeSeconds:    600,
	}))

	h := handlers.New(d.Handlers)
	wrap := func(fn middleware.HandlerFunc) http.HandlerFunc { return middleware.WrapHandler(log, fn) }

	r.Get("/health", h.Health)

	// ---- GENERATION ----
	r.Post("/generate", wrap(h.Generate))
	r.Post("/generate-manim", wrap(h.Generate))

	// ---- RENDERING ----
	r.Post("/render", wrap(h.Render))
	r.Post("/render-animation", wrap(h.Render))
	r.Post("/render-async", wrap(h.RenderAsync))
	r.Get("/render-status/{taskId}", wrap(h.RenderStatus))

	// ---- ARTIFACTS ----
	r.Delete("/cleanup/{jobKey}", wrap(h.Cleanup))
	r.Get("/artifacts/*", wrap(h.Artifact))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpkit.WriteErr(w, http.StatusNotFound, "NOT_FOUND", "route not found", map[string]any{"path": r.URL.Path})
	})
	return r
}
