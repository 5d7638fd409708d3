package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically refreshes the server's events.
type Scheduler struct {
	logger  *slog.Logger
	cron    *cron.Cron
	refresh func(ctx context.Context) error
	timeout time.Duration
}

// NewScheduler runs refresh on the standard five-field cron spec (or an
// "@every" descriptor).
func NewScheduler(logger *slog.Logger, spec string, refresh func(ctx context.Context) error) (*Scheduler, error) {
	s := &Scheduler{
		logger:  logger,
		cron:    cron.New(),
		refresh: refresh,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "entries", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.refresh(ctx); err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
	}
}
