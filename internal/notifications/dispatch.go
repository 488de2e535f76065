package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
	"github.com/albapepper/scoracle-alerts/internal/metrics"
)

// Sender delivers one push. *OneSignalSender implements it.
type Sender interface {
	Send(ctx context.Context, p Push) error
}

// Log records dispatch outcomes. *PGLog implements it.
type Log interface {
	Record(ctx context.Context, d alerts.Delivery) error
}

// DispatchConfig holds channel routing and pacing.
type DispatchConfig struct {
	GameChannelID string
	NewsChannelID string
	SendDelay     time.Duration
}

// Dispatcher groups admitted events and sends one push per dispatch key.
type Dispatcher struct {
	sender  Sender
	log     Log
	cfg     DispatchConfig
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. sender may be nil (push disabled: sends
// are logged and reported as delivered); log may be nil.
func NewDispatcher(sender Sender, log Log, cfg DispatchConfig, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = defaultSendDelay
	}
	return &Dispatcher{
		sender:  sender,
		log:     log,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.SendDelay), 1),
		metrics: m,
		logger:  logger,
	}
}

// Group is the set of admitted events sharing a dispatch key.
type Group struct {
	Key    string
	Events []alerts.AlertEvent
}

// GroupEvents groups events by dispatch key, keeping first-seen order for
// both groups and their members.
func GroupEvents(events []alerts.AlertEvent) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, e := range events {
		key := e.DispatchKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Events = append(groups[i].Events, e)
	}
	return groups
}

// Representative returns the event to send for g: the highest-priority
// member (earliest on ties), with " (+N more)" appended for groups of more
// than one. The group's events are not modified.
func Representative(g Group) alerts.AlertEvent {
	best := g.Events[0]
	for _, e := range g.Events[1:] {
		if e.Priority.Rank() < best.Priority.Rank() {
			best = e
		}
	}
	if n := len(g.Events); n > 1 {
		best.Body = fmt.Sprintf("%s (+%d more)", best.Body, n-1)
		best.Data = maps.Clone(best.Data)
	}
	return best
}

// BuildPush resolves audience, channel and payload for one event.
func (d *Dispatcher) BuildPush(e alerts.AlertEvent) Push {
	data := make(map[string]string, len(e.Data)+3)
	maps.Copy(data, e.Data)
	data["type"] = string(e.Type)
	data["team"] = e.Team
	if e.GameID != "" {
		data["gameId"] = e.GameID
	}

	channel := d.cfg.NewsChannelID
	if e.Type.IsGameEvent() {
		channel = d.cfg.GameChannelID
	}

	priority := priorityNormal
	if e.Priority == alerts.PriorityHigh {
		priority = priorityHigh
	}

	return Push{
		ExternalID: e.ID,
		Heading:    e.Title,
		Content:    e.Body,
		Data:       data,
		Filters:    audience(e),
		ChannelID:  channel,
		Priority:   priority,
		TTL:        notificationTTL,
	}
}

// Send dispatches admitted events, one provider call per group, paced by
// SendDelay. A failed call is logged and does not stop the batch.
func (d *Dispatcher) Send(ctx context.Context, events []alerts.AlertEvent) []alerts.Delivery {
	groups := GroupEvents(events)
	deliveries := make([]alerts.Delivery, 0, len(groups))

	for _, g := range groups {
		rep := Representative(g)
		delivery := alerts.Delivery{Notification: rep, Events: g.Events}

		if err := d.limiter.Wait(ctx); err != nil {
			delivery.Err = fmt.Errorf("pacing wait: %w", err)
		} else {
			delivery.Err = d.deliver(ctx, rep)
		}

		if delivery.Err != nil {
			d.logger.Warn("push send failed",
				"key", g.Key, "type", rep.Type, "grouped", len(g.Events), "error", delivery.Err)
		} else {
			d.logger.Info("push sent",
				"key", g.Key, "type", rep.Type, "title", rep.Title, "grouped", len(g.Events))
		}

		if d.log != nil {
			if err := d.log.Record(ctx, delivery); err != nil {
				d.logger.Warn("record delivery failed", "key", g.Key, "error", err)
			}
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries
}

func (d *Dispatcher) deliver(ctx context.Context, e alerts.AlertEvent) error {
	push := d.BuildPush(e)
	if d.sender == nil {
		d.logger.Info("push disabled, not sent", "title", push.Heading, "body", push.Content)
		return nil
	}

	start := time.Now()
	err := d.sender.Send(ctx, push)
	d.metrics.NotificationSent(err == nil, time.Since(start))
	return err
}
