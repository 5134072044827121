package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scenecast/internal/jobs"
)

const renderJobsDDL = `
CREATE TABLE IF NOT EXISTS render_jobs (
	id             TEXT PRIMARY KEY,
	job_key        TEXT NOT NULL,
	status         TEXT NOT NULL,
	output_path    TEXT,
	thumbnail_path TEXT,
	video_key      TEXT,
	thumbnail_key  TEXT,
	metrics        JSONB,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
)`

const renderJobsIndexDDL = `CREATE INDEX IF NOT EXISTS render_jobs_job_key_idx ON render_jobs (job_key)`

// JobRepository is a jobs.Store on PostgreSQL.
type JobRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db, now: time.Now}
}

// EnsureSchema creates the render_jobs table if missing.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	for _, ddl := range []string{renderJobsDDL, renderJobsIndexDDL} {
		if _, err := r.db.Exec(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (r *JobRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *JobRepository) Create(ctx context.Context, j *jobs.Job) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO render_jobs (id, job_key, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, j.ID, j.JobKey, string(j.Status), j.CreatedAt, j.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return jobs.ErrAlreadyExists
		}
		if IsUndefinedTable(err) {
			return fmt.Errorf("render_jobs table missing, EnsureSchema has not run: %w", err)
		}
		return err
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*jobs.Job, error) {
	var (
		j                                                 jobs.Job
		status                                            string
		outputPath, thumbPath, videoKey, thumbKey, errMsg *string
		metrics                                           *jobs.Metrics
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, job_key, status, output_path, thumbnail_path, video_key, thumbnail_key,
		       metrics, error, created_at, updated_at
		FROM render_jobs
		WHERE id=$1
	`, id).Scan(
		&j.ID,
		&j.JobKey,
		&status,
		&outputPath,
		&thumbPath,
		&videoKey,
		&thumbKey,
		&metrics,
		&errMsg,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrNotFound
		}
		return nil, err
	}
	j.Status = jobs.Status(status)
	j.OutputPath = deref(outputPath)
	j.ThumbnailPath = deref(thumbPath)
	j.VideoKey = deref(videoKey)
	j.ThumbnailKey = deref(thumbKey)
	j.Metrics = metrics
	j.Error = deref(errMsg)
	return &j, nil
}

// Complete only touches rows still in processing, so a terminal row is never
// rewritten.
func (r *JobRepository) Complete(ctx context.Context, id string, res jobs.Result) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE render_jobs
		SET status=$2, output_path=$3, thumbnail_path=$4, video_key=$5, thumbnail_key=$6,
		    metrics=$7, updated_at=$8
		WHERE id=$1 AND status=$9
	`, id, string(jobs.StatusCompleted), res.OutputPath, nullable(res.ThumbnailPath),
		nullable(res.VideoKey), nullable(res.ThumbnailKey), res.Metrics, r.now().UTC(),
		string(jobs.StatusProcessing))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrTerminal(ctx, id)
	}
	return nil
}

func (r *JobRepository) Fail(ctx context.Context, id string, msg string) error {
	if msg == "" {
		msg = "render failed"
	}
	cmd, err := r.db.Exec(ctx, `
		UPDATE render_jobs
		SET status=$2, error=$3, updated_at=$4
		WHERE id=$1 AND status=$5
	`, id, string(jobs.StatusFailed), msg, r.now().UTC(), string(jobs.StatusProcessing))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrTerminal(ctx, id)
	}
	return nil
}

func (r *JobRepository) missOrTerminal(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM render_jobs WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return jobs.ErrNotFound
	}
	return jobs.ErrTerminal
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
