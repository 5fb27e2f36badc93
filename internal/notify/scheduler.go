package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the digests from inside the server for deployments
// without an external cron. The 30 day window is due every day, the month
// window on the first of the month. A window counts as done for the day
// only when every recipient was mailed.
type Scheduler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	interval   time.Duration

	mu   sync.Mutex
	done map[Window]string
}

// NewScheduler checks every interval, hourly when interval is not positive.
func NewScheduler(d *Dispatcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		dispatcher: d,
		logger:     logger,
		interval:   interval,
		done:       make(map[Window]string),
	}
}

// Start ticks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every window that is due today and not done yet.
func (s *Scheduler) Tick(ctx context.Context) []Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.dispatcher.source.Today()
	day := today.Format(time.DateOnly)

	var reports []Report
	for _, w := range due(today) {
		if s.done[w] == day {
			continue
		}
		report, err := s.dispatcher.Run(ctx, w)
		if err != nil {
			s.logger.Error("Scheduled digest failed", "window", w, "error", err)
			continue
		}
		reports = append(reports, report)
		if report.OK() {
			s.done[w] = day
		}
	}
	return reports
}

func due(today time.Time) []Window {
	if today.Day() == 1 {
		return []Window{Window30Days, WindowMonth}
	}
	return []Window{Window30Days}
}
