package catalogrefresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "*/15 * * * *"

// Worker keeps cached voucher catalogues fresh for the configured services.
type Worker struct {
	refresher  Refresher
	serviceIDs []string
	schedule   string
	timeout    time.Duration
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewWorker(refresher Refresher, serviceIDs []string, schedule string, logger *slog.Logger) *Worker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Worker{
		refresher:  refresher,
		serviceIDs: serviceIDs,
		schedule:   schedule,
		timeout:    time.Minute,
		logger:     logger,
		cron:       cron.New(),
	}
}

func (w *Worker) Name() string {
	return "catalogrefresh"
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		w.run(ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "schedule %q", w.schedule)
	}

	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

// run refreshes every service and reports how many succeeded.
func (w *Worker) run(ctx context.Context) int {
	refreshed := 0
	for _, id := range w.serviceIDs {
		if err := w.refresher.RefreshCatalogue(ctx, id); err != nil {
			w.logger.Warn("Voucher catalogue refresh failed", "service_id", id, "error", err)
			continue
		}
		refreshed++
	}

	w.logger.Info("Voucher catalogues refreshed", "refreshed", refreshed, "total", len(w.serviceIDs))
	return refreshed
}
