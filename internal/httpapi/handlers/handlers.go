// Package handlers implements the render service HTTP endpoints.
package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"

	"scenecast/internal/animation"
	"scenecast/internal/jobs"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/ports"
)

// SyncRenderer renders a request while the caller waits.
type SyncRenderer interface {
	Render(ctx context.Context, req jobs.Request, outputName string) (*jobs.Result, error)
}

// JobTracker accepts async renders and reports their state.
type JobTracker interface {
	Submit(ctx context.Context, req jobs.Request) (string, error)
	Query(ctx context.Context, taskID string) (*jobs.Job, error)
}

// Purger deletes the artifacts of a job key.
type Purger interface {
	Purge(jobKey string) []string
}

// VersionReporter reports the installed renderer version.
type VersionReporter interface {
	Version(ctx context.Context) (string, error)
}

// Pinger is implemented by job stores backed by a server.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Generator *animation.Generator
	Renderer  SyncRenderer
	Tracker   JobTracker
	Files     Purger
	// Storage serves /artifacts; optional.
	Storage ports.StorageProvider
	// Version and StoreName are reported by /health.
	Version   VersionReporter
	Store     jobs.Store
	StoreName string
	Log       *logger.Logger
}

type Handler struct {
	gen       *animation.Generator
	renderer  SyncRenderer
	tracker   JobTracker
	files     Purger
	sp        ports.StorageProvider
	version   VersionReporter
	store     jobs.Store
	storeName string
	validate  *validator.Validate
	log       *logger.Logger
	newSuffix func() string
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	gen := d.Generator
	if gen == nil {
		gen = animation.NewGenerator(animation.NewRuleSelector())
	}
	return &Handler{
		gen:       gen,
		renderer:  d.Renderer,
		tracker:   d.Tracker,
		files:     d.Files,
		sp:        d.Storage,
		version:   d.Version,
		store:     d.Store,
		storeName: d.StoreName,
		validate:  newValidator(),
		log:       log.WithComponent("http"),
		newSuffix: shortID,
	}
}
