// Package processor drives one render from script to published artifacts
// and records the outcome on the job.
package processor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"scenecast/internal/jobs"
	"scenecast/internal/pkg/errors"
	"scenecast/internal/pkg/logger"
	"scenecast/internal/ports"
	"scenecast/internal/worker/renderer"
)

// maxErrorLen bounds the error text stored on a failed job.
const maxErrorLen = 2000

// Renderer turns a script into a video file.
type Renderer interface {
	Render(ctx context.Context, script, outputName string, options map[string]any) (*renderer.Output, error)
}

// Thumbnailer grabs a still frame; failures are reported with ok=false.
type Thumbnailer interface {
	Extract(ctx context.Context, videoPath, outputName string) (path string, ok bool)
}

type Deps struct {
	Store       jobs.Store
	Renderer    Renderer
	Thumbnailer Thumbnailer
	// Storage is optional; without it artifacts are only local paths.
	Storage ports.StorageProvider
	Log     *logger.Logger
}

type Processor struct {
	store     jobs.Store
	renderer  Renderer
	thumbs    Thumbnailer
	publisher *Publisher
	log       *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{
		store:     d.Store,
		renderer:  d.Renderer,
		thumbs:    d.Thumbnailer,
		publisher: NewPublisher(d.Storage, log),
		log:       log.WithComponent("processor"),
	}
}

// OutputName is the video filename used for an async job.
func OutputName(jobKey, taskID string) string {
	return fmt.Sprintf("%s_%s.mp4", jobKey, taskID)
}

// ThumbnailName is the still frame filename for a job key.
func ThumbnailName(jobKey string) string {
	return jobKey + "_thumb.jpg"
}

// Render renders req into outputName, extracts a thumbnail and publishes
// both. Only the render itself can fail the call.
func (p *Processor) Render(ctx context.Context, req jobs.Request, outputName string) (*jobs.Result, error) {
	out, err := p.renderer.Render(ctx, req.ScriptText, outputName, req.Options)
	if err != nil {
		return nil, err
	}

	res := &jobs.Result{
		OutputPath: out.Path,
		Metrics: &jobs.Metrics{
			DurationSeconds: out.Metrics.DurationSeconds,
			ByteSize:        out.Metrics.ByteSize,
			Resolution:      out.Metrics.Resolution,
			Filename:        out.Metrics.Filename,
		},
	}

	if p.thumbs != nil {
		if thumb, ok := p.thumbs.Extract(ctx, out.Path, ThumbnailName(req.JobKey)); ok {
			res.ThumbnailPath = thumb
		}
	}

	res.VideoKey = p.publisher.Publish(ctx, res.OutputPath, "videos", "video/mp4")
	res.ThumbnailKey = p.publisher.Publish(ctx, res.ThumbnailPath, "thumbnails", "image/jpeg")
	return res, nil
}

// ProcessJob runs a submitted job to its terminal state. Render failures are
// recorded on the job and also returned for logging.
func (p *Processor) ProcessJob(ctx context.Context, taskID string, req jobs.Request) error {
	ctx = logger.ContextWithTaskID(ctx, taskID)
	log := p.log.FromContext(ctx)

	log.Info("processing job", "job_key", req.JobKey)
	res, err := p.Render(ctx, req, OutputName(req.JobKey, taskID))
	if err != nil {
		return p.failJob(ctx, taskID, err)
	}

	if err := p.store.Complete(ctx, taskID, *res); err != nil {
		log.Error("could not record completed job", "error", err.Error())
		return errors.Wrap(err, "processor.complete", "could not record result")
	}
	log.Info("job completed", "output", res.OutputPath)
	return nil
}

func (p *Processor) failJob(ctx context.Context, taskID string, cause error) error {
	log := p.log.FromContext(ctx)

	msg := FailureMessage(cause)
	var appErr *errors.Error
	if errors.As(cause, &appErr) {
		log.Error("job failed",
			"code", string(appErr.Code),
			"op", appErr.Op,
			"message", appErr.Message,
		)
	} else {
		log.Error("job failed", "error", msg)
	}

	if err := p.store.Fail(ctx, taskID, msg); err != nil {
		log.Error("could not record failed job", "error", err.Error())
	}
	return cause
}

// FailureMessage is the text stored on a failed job: the error message
// followed by the renderer diagnostic when there is one.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var appErr *errors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
		if d, ok := errors.GetFields(err)["diagnostic"].(string); ok && d != "" && d != msg {
			msg += "\n" + d
		}
	}
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	if len(msg) > maxErrorLen {
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
