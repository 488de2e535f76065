package alerts

import (
	"context"
	"strings"

	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/external"
)

const newsBodyMaxRunes = 100

// chicagoKeywords decide whether an item is about a tracked team at all.
var chicagoKeywords = []string{
	"bears", "bulls", "cubs", "white sox", "whitesox", "blackhawks", "chicago",
}

// newsRule maps keywords to an alert type. Rules are tried in order.
type newsRule struct {
	eventType EventType
	label     string
	keywords  []string
}

var newsRules = []newsRule{
	{Injury, "Injury Update", []string{"injury", "injured", "questionable", "doubtful", "out for", "surgery"}},
	{Trade, "Trade Alert", []string{"trade", "sign", "acquire", "deal", "contract"}},
	{BreakingNews, "Breaking News", []string{"breaking", "just in", "report:"}},
}

// newsTeams resolves the audience team from the text, first match wins.
var newsTeams = []struct {
	id       string
	label    string
	keywords []string
}{
	{"bears", "Bears", []string{"bears"}},
	{"bulls", "Bulls", []string{"bulls"}},
	{"cubs", "Cubs", []string{"cubs"}},
	{"whitesox", "White Sox", []string{"white sox", "whitesox"}},
	{"blackhawks", "Blackhawks", []string{"blackhawks"}},
}

// ClassifyNews turns one feed item into at most one alert. Every item is
// recorded as seen on first sight, whether or not it produces an event.
func (c *Classifier) ClassifyNews(ctx context.Context, feed config.Feed, item external.NewsItem) (AlertEvent, bool) {
	if item.Link == "" {
		return AlertEvent{}, false
	}

	seen, err := c.seen.SeenAndRecord(ctx, item.Link)
	if err != nil {
		// Without a dedup answer the item could re-alert later; drop it.
		c.logger.Warn("seen store unavailable, skipping news item",
			"feed", feed.Name, "link", item.Link, "error", err)
		return AlertEvent{}, false
	}
	if seen {
		return AlertEvent{}, false
	}

	text := strings.ToLower(item.Title + " " + item.Description)
	if !containsAny(text, chicagoKeywords) {
		return AlertEvent{}, false
	}

	var rule *newsRule
	for i := range newsRules {
		if containsAny(text, newsRules[i].keywords) {
			rule = &newsRules[i]
			break
		}
	}
	if rule == nil {
		return AlertEvent{}, false
	}

	teamID, teamLabel := CityWideTeam, "Chicago"
	for _, t := range newsTeams {
		if containsAny(text, t.keywords) {
			teamID, teamLabel = t.id, t.label
			break
		}
	}

	return AlertEvent{
		ID:       c.newID(),
		Type:     rule.eventType,
		Team:     teamID,
		Title:    teamLabel + " " + rule.label,
		Body:     truncateRunes(item.Title, newsBodyMaxRunes),
		Priority: PriorityHigh,
		Data: map[string]string{
			"link": item.Link,
			"feed": feed.Name,
		},
		Timestamp: c.now(),
	}, true
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
