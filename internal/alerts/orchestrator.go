package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albapepper/scoracle-alerts/internal/metrics"
)

// Delivery is the dispatcher's report for one notification: the event that
// was actually sent and every admitted event it stood for.
type Delivery struct {
	Notification AlertEvent
	Events       []AlertEvent
	Err          error
}

// Dispatcher sends admitted events.
type Dispatcher interface {
	Send(ctx context.Context, events []AlertEvent) []Delivery
}

// Orchestrator is the single entry point for a cycle. At most one cycle runs
// at a time; overlapping calls return a zero result immediately.
type Orchestrator struct {
	running    atomic.Bool
	discovery  *Discovery
	filter     *SpamFilter
	dispatcher Dispatcher
	games      *GameStateStore
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu         sync.Mutex
	lastRun    time.Time
	lastResult CycleResult
	lastErrors []string
}

// NewOrchestrator wires one cycle's collaborators. games is only read for
// status reporting.
func NewOrchestrator(discovery *Discovery, filter *SpamFilter, dispatcher Dispatcher, games *GameStateStore, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		discovery:  discovery,
		filter:     filter,
		dispatcher: dispatcher,
		games:      games,
		metrics:    m,
		logger:     logger,
	}
}

// RunCycle runs discovery → admission → dispatch → RecordSent once.
// The orchestrator always returns to idle, even if a collaborator panics.
func (o *Orchestrator) RunCycle(ctx context.Context) (result CycleResult) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Info("cycle already running, skipping")
		o.metrics.CycleFinished("skipped", 0)
		return CycleResult{}
	}
	defer o.running.Store(false)

	start := time.Now()
	var errs []string
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			errs = append(errs, fmt.Sprintf("panic: %v", r))
			o.logger.Error("cycle panicked", "panic", r)
		}
		o.metrics.CycleFinished(outcome, time.Since(start))
		o.mu.Lock()
		o.lastRun = start
		o.lastResult = result
		o.lastErrors = errs
		o.mu.Unlock()
	}()

	disc := o.discovery.Run(ctx)
	errs = append(errs, disc.Errors...)
	result.Discovered = len(disc.Events)

	admitted := make([]AlertEvent, 0, len(disc.Events))
	for _, e := range disc.Events {
		ok, reason := o.filter.Check(e)
		if !ok {
			o.logger.Debug("alert filtered", "type", e.Type, "key", e.DispatchKey(), "reason", reason)
			o.metrics.EventFiltered(string(reason))
			continue
		}
		admitted = append(admitted, e)
	}
	result.Filtered = result.Discovered - len(admitted)

	if len(admitted) > 0 && o.dispatcher != nil {
		for _, d := range o.dispatcher.Send(ctx, admitted) {
			if d.Err != nil {
				errs = append(errs, fmt.Sprintf("send %s: %v", d.Notification.DispatchKey(), d.Err))
				continue
			}
			result.Sent++
			for _, e := range d.Events {
				o.filter.RecordSent(e)
			}
		}
	}

	if len(errs) > 0 {
		outcome = "partial"
	}
	o.logger.Info("cycle complete",
		"discovered", result.Discovered, "sent", result.Sent, "filtered", result.Filtered,
		"errors", len(errs), "duration", time.Since(start).Round(time.Millisecond))
	return result
}

// Running reports whether a cycle is in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Status returns a snapshot for the status endpoint.
func (o *Orchestrator) Status() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	var lastRun interface{}
	if !o.lastRun.IsZero() {
		lastRun = o.lastRun.UTC().Format(time.RFC3339)
	}
	status := map[string]interface{}{
		"running":          o.running.Load(),
		"last_run":         lastRun,
		"last_result":      o.lastResult,
		"last_errors":      o.lastErrors,
		"sent_this_window": o.filter.SentThisWindow(),
	}
	if o.games != nil {
		status["tracked_games"] = o.games.Len()
	}
	return status
}
