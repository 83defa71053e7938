package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/lineside/internal/notify"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextFire parses a 5-field cron expression and returns the next fire time
// after now.
func NextFire(expr string, now time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("digest: parse schedule %q: %w", expr, err)
	}
	return sched.Next(now), nil
}

// Scheduler posts a digest through an adapter on a cron schedule. Each
// report covers the window since the previous fire.
type Scheduler struct {
	DB       *gorm.DB
	Adapter  notify.Adapter
	Schedule string

	now func() time.Time // test hook, defaults to time.Now
}

// Run blocks until ctx is cancelled, firing digests per the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Adapter == nil {
		return fmt.Errorf("digest: adapter is required")
	}
	nowFn := s.now
	if nowFn == nil {
		nowFn = time.Now
	}
	if _, err := cronParser.Parse(s.Schedule); err != nil {
		return fmt.Errorf("digest: parse schedule %q: %w", s.Schedule, err)
	}

	last := nowFn()
	for {
		next, err := NextFire(s.Schedule, nowFn())
		if err != nil {
			return err
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		now := nowFn()
		if err := s.fire(ctx, last, now); err != nil {
			log.Printf("digest: %v", err)
		}
		last = now
	}
}

// fire builds and sends one digest covering [since, until).
func (s *Scheduler) fire(ctx context.Context, since, until time.Time) error {
	r, err := Build(s.DB, since, until)
	if err != nil {
		return err
	}
	return s.Adapter.Send(ctx, Event(r))
}
