// Package jobs tracks asynchronous render jobs from submission to a
// terminal state.
package jobs

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrNotFound      = errors.New("job not found")
	ErrAlreadyExists = errors.New("job already exists")
	// ErrTerminal is returned when completing or failing a finished job.
	ErrTerminal = errors.New("job already finished")
)

// Request is what a client submits for rendering. It is not modified after
// submission.
type Request struct {
	ScriptText string         `json:"scriptText"`
	JobKey     string         `json:"jobKey"`
	Options    map[string]any `json:"options,omitempty"`
}

// Metrics describe a finished render.
type Metrics struct {
	DurationSeconds float64 `json:"durationSeconds"`
	ByteSize        int64   `json:"byteSize"`
	Resolution      string  `json:"resolution"`
	Filename        string  `json:"filename"`
}

// Result is recorded when a job completes.
type Result struct {
	OutputPath    string   `json:"outputPath"`
	ThumbnailPath string   `json:"thumbnailPath,omitempty"`
	VideoKey      string   `json:"videoKey,omitempty"`
	ThumbnailKey  string   `json:"thumbnailKey,omitempty"`
	Metrics       *Metrics `json:"metrics,omitempty"`
}

// Job is the status record returned by status queries.
type Job struct {
	ID     string `json:"taskId"`
	JobKey string `json:"jobKey"`
	Status Status `json:"status"`
	Result
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// complete moves a processing job to completed.
func (j *Job) complete(res Result, now time.Time) error {
	if j.Status.Terminal() {
		return ErrTerminal
	}
	j.Status = StatusCompleted
	j.Result = res
	j.UpdatedAt = now
	return nil
}

// fail moves a processing job to failed.
func (j *Job) fail(msg string, now time.Time) error {
	if j.Status.Terminal() {
		return ErrTerminal
	}
	if msg == "" {
		msg = "render failed"
	}
	j.Status = StatusFailed
	j.Error = msg
	j.UpdatedAt = now
	return nil
}
