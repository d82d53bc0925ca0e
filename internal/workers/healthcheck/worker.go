package healthcheck

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultInterval = 30 * time.Second
	probeTimeout    = 10 * time.Second
)

type probeStatus struct {
	isUp         bool
	lastCheck    time.Time
	downSince    time.Time
	failureCount int
}

// Worker runs probes on a ticker and tracks which dependencies are up. The
// first round runs on Start so readiness is known immediately.
type Worker struct {
	probes   map[string]Probe
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	statusMu sync.RWMutex
	statuses map[string]*probeStatus

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWorker(probes map[string]Probe, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		probes:   probes,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		statuses: make(map[string]*probeStatus),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return "healthcheck"
}

func (w *Worker) Start() error {
	w.logger.Info("Starting health check worker",
		"interval", w.interval,
		"probes", lo.Keys(w.probes))

	w.checkAll(context.Background())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Panic in healthcheck worker goroutine", "panic", r)
			}
		}()
		w.run()
	}()
	return nil
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// Ready reports whether every probe passed its last check. It is false
// until the first round completes.
func (w *Worker) Ready() bool {
	w.statusMu.RLock()
	defer w.statusMu.RUnlock()

	if len(w.statuses) < len(w.probes) {
		return false
	}
	for _, st := range w.statuses {
		if !st.isUp {
			return false
		}
	}
	return true
}

// Down lists the failing probes in name order.
func (w *Worker) Down() []string {
	w.statusMu.RLock()
	defer w.statusMu.RUnlock()

	down := make([]string, 0)
	for name, st := range w.statuses {
		if !st.isUp {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	return down
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkAll(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) checkAll(ctx context.Context) {
	for name, probe := range w.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := probe(probeCtx)
		cancel()

		if err != nil {
			w.logger.Warn("Health check failed", "probe", name, "error", err)
		}
		w.updateStatus(name, err == nil)
	}
}

func (w *Worker) updateStatus(name string, isUp bool) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()

	now := w.now()
	prev, exists := w.statuses[name]
	if !exists {
		st := &probeStatus{isUp: isUp, lastCheck: now}
		if !isUp {
			st.failureCount = 1
			st.downSince = now
		}
		w.statuses[name] = st
		return
	}

	switch {
	case prev.isUp && !isUp:
		prev.isUp = false
		prev.failureCount = 1
		prev.downSince = now
		w.logger.Error("Dependency down", "probe", name)
	case !prev.isUp && !isUp:
		prev.failureCount++
		w.logger.Error("Dependency still down", "probe", name, "failed_checks", prev.failureCount)
	case !prev.isUp && isUp:
		w.logger.Info("Dependency recovered", "probe", name, "downtime", formatDuration(now.Sub(prev.downSince)))
		prev.isUp = true
		prev.failureCount = 0
	}
	prev.lastCheck = now
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d sec", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d min %d sec", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d h %d min", int(d.Hours()), int(d.Minutes())%60)
}
