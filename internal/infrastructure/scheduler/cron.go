// Package scheduler fires the dispatch job at every UTC hour boundary with
// the matching "0 H * * *" trigger string.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"newsbot/internal/ports"
)

// HourlyDriver invokes the job once per UTC hour. It passes the cron string
// for the hour that just started; matching against stored schedules is the
// job's business.
type HourlyDriver struct {
	stop chan struct{}
	done chan struct{}
	now  func() time.Time
}

var _ ports.Scheduler = (*HourlyDriver)(nil)

// NewHourlyDriver builds a stopped driver.
func NewHourlyDriver() *HourlyDriver {
	return &HourlyDriver{now: time.Now}
}

// CronFor formats the trigger string for t's UTC hour.
func CronFor(t time.Time) string {
	return fmt.Sprintf("0 %d * * *", t.UTC().Hour())
}

// Start launches the tick loop. Calling Start on a running driver is a no-op.
func (d *HourlyDriver) Start(ctx context.Context, job func(cron string)) error {
	if job == nil {
		return fmt.Errorf("scheduler job must not be nil")
	}
	if d.stop != nil {
		return nil
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for {
			next := d.now().UTC().Truncate(time.Hour).Add(time.Hour)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				job(CronFor(next))
			case <-ctx.Done():
				timer.Stop()
				return
			case <-d.stop:
				timer.Stop()
				return
			}
		}
	}()
	return nil
}

// Stop halts the tick loop and waits for it to exit.
func (d *HourlyDriver) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.stop = nil
	return nil
}
