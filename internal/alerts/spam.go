package alerts

import (
	"sync"
	"time"
)

// FilterReason explains why Admit rejected an event.
type FilterReason string

const (
	ReasonNone      FilterReason = ""
	ReasonPerKeyCap FilterReason = "per_key_cap"
	ReasonMinGap    FilterReason = "min_gap"
	ReasonGlobalCap FilterReason = "global_cap"
)

// SpamConfig controls the anti-spam policy.
type SpamConfig struct {
	MaxPerKey    int           // per dispatch key, per window
	MaxPerWindow int           // across all keys, per window
	MinGap       time.Duration // since the key's last send
	Window       time.Duration // counter reset cadence, measured from construction
}

// DefaultSpamConfig returns production defaults.
func DefaultSpamConfig() SpamConfig {
	return SpamConfig{
		MaxPerKey:    15,
		MaxPerWindow: 10,
		MinGap:       60 * time.Second,
		Window:       time.Hour,
	}
}

type rateCounter struct {
	count      int
	lastSentAt time.Time
}

// SpamFilter is a per-dispatch-key rate limiter.
//
// Counts reset every Window from the moment the filter is created, not at
// clock-hour boundaries. lastSentAt survives resets so the minimum gap still
// applies across a window edge.
type SpamFilter struct {
	mu          sync.Mutex
	cfg         SpamConfig
	counters    map[string]*rateCounter
	windowStart time.Time
	now         func() time.Time
}

// NewSpamFilter creates a filter. clock may be nil (time.Now).
func NewSpamFilter(cfg SpamConfig, clock func() time.Time) *SpamFilter {
	if clock == nil {
		clock = time.Now
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &SpamFilter{
		cfg:         cfg,
		counters:    make(map[string]*rateCounter),
		windowStart: clock(),
		now:         clock,
	}
}

// Admit reports whether e may be dispatched now. The orchestrator calls
// Check instead so it can label the rejection in metrics.
func (f *SpamFilter) Admit(e AlertEvent) bool {
	ok, _ := f.Check(e)
	return ok
}

// Check is Admit with the rejection reason. Checks run in a fixed order:
// per-key cap, minimum gap, global cap. The per-key cap is evaluated before
// the global one, so one noisy key can use up the whole window's budget.
func (f *SpamFilter) Check(e AlertEvent) (bool, FilterReason) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.rollWindow(now)

	c := f.counters[e.DispatchKey()]
	if c != nil {
		if c.count >= f.cfg.MaxPerKey {
			return false, ReasonPerKeyCap
		}
		if !c.lastSentAt.IsZero() && now.Sub(c.lastSentAt) < f.cfg.MinGap {
			return false, ReasonMinGap
		}
	}
	if f.totalLocked() >= f.cfg.MaxPerWindow {
		return false, ReasonGlobalCap
	}
	return true, ReasonNone
}

// RecordSent charges e against its key. Call only after a successful
// dispatch.
func (f *SpamFilter) RecordSent(e AlertEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	f.rollWindow(now)

	key := e.DispatchKey()
	c := f.counters[key]
	if c == nil {
		c = &rateCounter{}
		f.counters[key] = c
	}
	c.count++
	c.lastSentAt = now
}

// SentThisWindow returns the total count across keys in the current window.
func (f *SpamFilter) SentThisWindow() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollWindow(f.now())
	return f.totalLocked()
}

// rollWindow clears counts when one or more windows have elapsed since
// windowStart. Must be called with f.mu held.
func (f *SpamFilter) rollWindow(now time.Time) {
	elapsed := now.Sub(f.windowStart)
	if elapsed < f.cfg.Window {
		return
	}
	f.windowStart = f.windowStart.Add(elapsed / f.cfg.Window * f.cfg.Window)
	for _, c := range f.counters {
		c.count = 0
	}
}

func (f *SpamFilter) totalLocked() int {
	total := 0
	for _, c := range f.counters {
		total += c.count
	}
	return total
}
