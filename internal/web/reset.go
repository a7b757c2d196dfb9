package web

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "shiftcal/internal/log"
)

// ResetScheduler clears abandoned batches on a cron schedule.
type ResetScheduler struct {
	c *cron.Cron
}

// NewResetScheduler runs reset on a standard five-field cron schedule
// evaluated in loc. An empty schedule returns nil with no error.
func NewResetScheduler(schedule string, loc *time.Location, reset func()) (*ResetScheduler, error) {
	if schedule == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(schedule, func() {
		reset()
		appLog.Info("scheduled batch reset done", "schedule", schedule)
	})
	if err != nil {
		return nil, fmt.Errorf("web: reset schedule %q: %w", schedule, err)
	}
	return &ResetScheduler{c: c}, nil
}

// Start runs the schedule in the background.
func (r *ResetScheduler) Start() {
	if r == nil {
		return
	}
	r.c.Start()
}

// Stop halts the schedule and waits for a running reset, or ctx.
func (r *ResetScheduler) Stop(ctx context.Context) {
	if r == nil {
		return
	}
	select {
	case <-r.c.Stop().Done():
	case <-ctx.Done():
	}
}
