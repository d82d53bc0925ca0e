package workers

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Manager starts workers in order and stops them in reverse.
type Manager struct {
	workers []Worker
	started []Worker
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger, workers ...Worker) *Manager {
	return &Manager{
		workers: workers,
		logger:  logger,
	}
}

// Start starts every worker. If one fails, the ones already running are
// stopped before the error is returned.
func (m *Manager) Start() error {
	m.logger.Info("Starting workers", "worker_count", len(m.workers))

	for _, w := range m.workers {
		if err := w.Start(); err != nil {
			m.Stop()
			return errors.Wrapf(err, "start worker %s", w.Name())
		}
		m.started = append(m.started, w)
		m.logger.Info("Worker started", "name", w.Name())
	}
	return nil
}

func (m *Manager) Stop() {
	for i := len(m.started) - 1; i >= 0; i-- {
		w := m.started[i]
		m.logger.Info("Stopping worker", "name", w.Name())
		w.Stop()
	}
	m.started = nil
	m.logger.Info("All workers stopped")
}
