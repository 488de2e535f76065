package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultScoreboardURL is ESPN's public site API root.
const DefaultScoreboardURL = "https://site.api.espn.com/apis/site/v2/sports"

// ---------------------------------------------------------------------------
// Scoreboard JSON shape (only the fields the classifier reads)
// ---------------------------------------------------------------------------

// ScoreboardEvent is one contest from a scoreboard response.
type ScoreboardEvent struct {
	ID           string        `json:"id"`
	Competitions []Competition `json:"competitions"`
}

// Competition is one matchup within an event.
type Competition struct {
	Competitors []Competitor      `json:"competitors"`
	Status      CompetitionStatus `json:"status"`
}

// Competitor is one side of a competition.
type Competitor struct {
	HomeAway string         `json:"homeAway"`
	Team     CompetitorTeam `json:"team"`
	// Score is a string in ESPN responses but a number in some leagues.
	Score interface{} `json:"score"`
}

// CompetitorTeam identifies a competitor's franchise.
type CompetitorTeam struct {
	DisplayName  string `json:"displayName"`
	Abbreviation string `json:"abbreviation"`
}

// CompetitionStatus carries the game clock and its pre/in/post state.
type CompetitionStatus struct {
	Period       interface{} `json:"period"`
	DisplayClock string      `json:"displayClock"`
	Type         struct {
		State string `json:"state"`
	} `json:"type"`
}

// ---------------------------------------------------------------------------
// ScoreboardClient
// ---------------------------------------------------------------------------

// ScoreboardClient fetches live scoreboards, one GET per sport.
type ScoreboardClient struct {
	baseURL string
	paths   map[string]string // sport key -> "football/nfl"
	f       *fetcher
}

// NewScoreboardClient creates a scoreboard client. paths maps sport keys to
// their ESPN path segment.
func NewScoreboardClient(baseURL string, paths map[string]string, timeout time.Duration, logger *slog.Logger) *ScoreboardClient {
	if baseURL == "" {
		baseURL = DefaultScoreboardURL
	}
	return &ScoreboardClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   paths,
		f:       newFetcher(timeout, logger),
	}
}

// Fetch returns the current scoreboard events for a sport. Events that do not
// decode are dropped individually; the rest are still returned.
func (c *ScoreboardClient) Fetch(ctx context.Context, sport string) ([]ScoreboardEvent, error) {
	path, ok := c.paths[sport]
	if !ok {
		return nil, fmt.Errorf("scoreboard %s: unsupported sport", sport)
	}

	u := fmt.Sprintf("%s/%s/scoreboard", c.baseURL, path)
	body, err := c.f.get(ctx, u, "application/json")
	if err != nil {
		return nil, fmt.Errorf("scoreboard %s: %w", sport, err)
	}

	events, dropped, err := ParseScoreboard(body)
	if err != nil {
		return nil, fmt.Errorf("scoreboard %s: %w", sport, err)
	}
	if dropped > 0 {
		c.f.logger.Warn("dropped malformed scoreboard events", "sport", sport, "count", dropped)
	}
	return events, nil
}

// ParseScoreboard decodes a scoreboard body event by event. It fails only if
// the envelope itself is not a JSON object with an events array.
func ParseScoreboard(body []byte) (events []ScoreboardEvent, dropped int, err error) {
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode scoreboard: %w", err)
	}

	events = make([]ScoreboardEvent, 0, len(envelope.Events))
	for _, raw := range envelope.Events {
		var ev ScoreboardEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			dropped++
			continue
		}
		events = append(events, ev)
	}
	return events, dropped, nil
}
