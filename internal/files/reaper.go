package files

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"scenecast/internal/pkg/logger"
)

// Reaper runs Manager.ReapStale on a cron schedule.
type Reaper struct {
	mgr    *Manager
	maxAge time.Duration
	cron   *cron.Cron
	log    *logger.Logger
}

// NewReaper parses schedule (standard cron or "@every 1h" descriptors).
func NewReaper(mgr *Manager, schedule string, maxAge time.Duration, log *logger.Logger) (*Reaper, error) {
	r := &Reaper{
		mgr:    mgr,
		maxAge: maxAge,
		cron:   cron.New(),
		log:    log.WithComponent("reaper"),
	}
	if _, err := r.cron.AddFunc(schedule, r.RunOnce); err != nil {
		return nil, err
	}
	return r, nil
}

// RunOnce reaps immediately.
func (r *Reaper) RunOnce() {
	n := r.mgr.ReapStale(r.maxAge)
	r.log.Debug("reap pass finished", "removed", n, "max_age", r.maxAge.String())
}

func (r *Reaper) Start() {
	r.cron.Start()
	r.log.Info("stale file reaper started", "max_age", r.maxAge.String())
}

// Stop waits for a running pass (or ctx) and then reaps one last time.
func (r *Reaper) Stop(ctx context.Context) error {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	r.RunOnce()
	return nil
}
