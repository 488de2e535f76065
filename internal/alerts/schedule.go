package alerts

import (
	"context"
	"time"
)

// PollPolicy decides how soon the next cycle should run.
type PollPolicy struct {
	Fast     time.Duration // inside the game window
	Slow     time.Duration // everything else
	Location *time.Location

	WeekdayStartHour int
	WeekendStartHour int
	EndHour          int // exclusive
}

// DefaultPollPolicy polls every 30s on weekday evenings (18:00-23:00) and
// weekend days (11:00-23:00) Chicago time, every 5 minutes otherwise.
func DefaultPollPolicy() PollPolicy {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		loc = time.Local
	}
	return PollPolicy{
		Fast:             30 * time.Second,
		Slow:             5 * time.Minute,
		Location:         loc,
		WeekdayStartHour: 18,
		WeekendStartHour: 11,
		EndHour:          23,
	}
}

// InGameWindow reports whether now falls inside the local game window.
func (p PollPolicy) InGameWindow(now time.Time) bool {
	if p.Location != nil {
		now = now.In(p.Location)
	}
	start := p.WeekdayStartHour
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		start = p.WeekendStartHour
	}
	h := now.Hour()
	return h >= start && h < p.EndHour
}

// RecommendedInterval returns the advisory delay before the next cycle. It
// has no side effects.
func (p PollPolicy) RecommendedInterval(now time.Time) time.Duration {
	if p.InGameWindow(now) {
		return p.Fast
	}
	return p.Slow
}

// Loop runs a cycle, sleeps for the recommended interval, and repeats until
// ctx is cancelled. Intended to be called with `go`.
func (o *Orchestrator) Loop(ctx context.Context, p PollPolicy) {
	o.logger.Info("alert scheduler started", "fast", p.Fast, "slow", p.Slow)
	for {
		o.RunCycle(ctx)

		wait := p.RecommendedInterval(time.Now())
		o.logger.Debug("next cycle scheduled", "in", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			o.logger.Info("alert scheduler stopped")
			return
		}
	}
}
