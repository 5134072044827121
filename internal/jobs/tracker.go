package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "scenecast/internal/pkg/errors"
	"scenecast/internal/pkg/logger"
)

// Dispatcher starts the background render of an accepted job. It must not
// block until the render finishes.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskID string, req Request) error
}

// Tracker accepts render requests and answers status queries.
type Tracker struct {
	store      Store
	dispatcher Dispatcher
	log        *logger.Logger
	newID      func() string
	now        func() time.Time
}

func NewTracker(store Store, dispatcher Dispatcher, log *logger.Logger) *Tracker {
	return &Tracker{
		store:      store,
		dispatcher: dispatcher,
		log:        log.WithComponent("tracker"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Submit records a processing job and hands it to the dispatcher. The record
// exists before Submit returns, so an immediate Query never misses it. If the
// hand-off fails the job is marked failed and the error returned.
func (t *Tracker) Submit(ctx context.Context, req Request) (string, error) {
	const op = "tracker.submit"

	now := t.now().UTC()
	job := &Job{
		ID:        t.newID(),
		JobKey:    req.JobKey,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Create(ctx, job); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return "", apperrors.WrapWithCode(err, apperrors.CodeConflict, op, "task id collision")
		}
		return "", apperrors.Wrap(err, op, "could not record job")
	}

	log := t.log.FromContext(logger.ContextWithTaskID(ctx, job.ID))
	if err := t.dispatcher.Dispatch(ctx, job.ID, req); err != nil {
		if ferr := t.store.Fail(context.WithoutCancel(ctx), job.ID, "dispatch failed: "+err.Error()); ferr != nil {
			log.Error("could not mark undispatched job failed", "error", ferr.Error())
		}
		return "", apperrors.WrapWithCode(err, apperrors.CodeUnavailable, op, "could not start render")
	}

	log.Info("render job accepted", "job_key", req.JobKey)
	return job.ID, nil
}

// Query returns the current record; NOT_FOUND for unknown ids.
func (t *Tracker) Query(ctx context.Context, taskID string) (*Job, error) {
	job, err := t.store.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NotFound("render task", taskID)
		}
		return nil, apperrors.Wrap(err, "tracker.query", "could not load job")
	}
	return job, nil
}
