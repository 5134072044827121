// Package shutdown runs ordered cleanup when the process is asked to stop.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"scenecast/internal/pkg/logger"
)

// Manager collects cleanup steps and runs them once, last registered first.
// Steps run one after another so that, for example, the HTTP server stops
// accepting renders before in-flight renders are drained and before the job
// store connection closes.
type Manager struct {
	log     *logger.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []step

	once sync.Once
	done chan struct{}
}

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// NewManager creates a Manager. A zero timeout means 30s.
func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{log: log, timeout: timeout, done: make(chan struct{})}
}

// Register adds a cleanup step.
func (m *Manager) Register(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, fn: fn})
	m.log.Debug("registered shutdown step", "name", name)
}

// RegisterSimple adds a step that cannot fail.
func (m *Manager) RegisterSimple(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Wait blocks until SIGINT, SIGTERM or SIGHUP, or until ctx is done, then
// runs Shutdown.
func (m *Manager) Wait(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		m.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		m.log.Info("context canceled, initiating shutdown")
	}
	m.Shutdown()
}

// Shutdown runs every step in reverse registration order under one shared
// deadline. Later calls are no-ops.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		defer close(m.done)

		m.mu.Lock()
		steps := append([]step(nil), m.steps...)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		m.log.Info("starting graceful shutdown", "steps", len(steps), "timeout", m.timeout.String())
		for i := len(steps) - 1; i >= 0; i-- {
			s := steps[i]
			if ctx.Err() != nil {
				m.log.Warn("shutdown deadline exceeded, skipping step", "name", s.name)
				continue
			}
			start := time.Now()
			if err := s.fn(ctx); err != nil {
				m.log.Error("shutdown step failed",
					"name", s.name,
					"error", err.Error(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
				continue
			}
			m.log.Debug("shutdown step completed", "name", s.name, "duration_ms", time.Since(start).Milliseconds())
		}
		m.log.Info("graceful shutdown completed")
	})
}

// Done is closed once Shutdown has finished.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
