// Package notifications turns admitted alert events into push notifications.
//
// Pipeline: group by dispatch key → pick a representative per group →
// resolve audience + channel → paced provider send → optional audit log.
package notifications

import (
	"time"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultSendDelay = 100 * time.Millisecond
	providerTimeout  = 15 * time.Second
	notificationTTL  = 3600 // seconds

	priorityHigh   = 10
	priorityNormal = 5
)

// Audience tags set on devices by the mobile app.
const (
	tagEnabled      = "notifications_enabled"
	tagFollowPrefix = "follows_"

	tagScores   = "alerts_scores"
	tagInjuries = "alerts_injuries"
	tagTrades   = "alerts_trades"
	tagBreaking = "alerts_breaking"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Filter is one audience condition. Adjacent filters are AND-ed by the
// provider.
type Filter struct {
	Field    string `json:"field"`
	Key      string `json:"key"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

// Push is a provider-neutral outbound notification.
type Push struct {
	ExternalID string
	Heading    string
	Content    string
	Data       map[string]string
	Filters    []Filter
	ChannelID  string
	Priority   int
	TTL        int
}

// categoryTag maps an event type to the opt-in tag for its alert category.
func categoryTag(t alerts.EventType) string {
	switch {
	case t.IsGameEvent():
		return tagScores
	case t == alerts.Injury:
		return tagInjuries
	case t == alerts.Trade || t == alerts.RosterMove:
		return tagTrades
	default:
		return tagBreaking
	}
}

func tagFilter(key string) Filter {
	return Filter{Field: "tag", Key: key, Relation: "=", Value: "true"}
}

// audience builds the AND-ed filter list for an event.
func audience(e alerts.AlertEvent) []Filter {
	filters := []Filter{tagFilter(tagEnabled)}
	if e.Team != "" && e.Team != alerts.CityWideTeam {
		filters = append(filters, tagFilter(tagFollowPrefix+e.Team))
	}
	return append(filters, tagFilter(categoryTag(e.Type)))
}
