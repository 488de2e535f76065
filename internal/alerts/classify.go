package alerts

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/external"
	"github.com/albapepper/scoracle-alerts/internal/provider"
)

// --------------------------------------------------------------------------
// Sport rules
// --------------------------------------------------------------------------

type sportRules struct {
	closeThreshold    int // score differential at or below which a game is close
	regulationPeriods int
}

var rulesBySport = map[string]sportRules{
	"nfl":  {closeThreshold: 8, regulationPeriods: 4},
	"nba":  {closeThreshold: 10, regulationPeriods: 4},
	"wnba": {closeThreshold: 10, regulationPeriods: 4},
	"nhl":  {closeThreshold: 1, regulationPeriods: 3},
	"mlb":  {closeThreshold: 2, regulationPeriods: 9},
}

var defaultRules = sportRules{closeThreshold: 5, regulationPeriods: 4}

func rulesFor(sport string) sportRules {
	if r, ok := rulesBySport[sport]; ok {
		return r
	}
	return defaultRules
}

// isClose reports whether s is within its sport's close-game margin. Margins
// only count once regulation periods are reached.
func isClose(s GameState) bool {
	r := rulesFor(s.Sport)
	if s.Period < r.regulationPeriods {
		return false
	}
	return absInt(s.HomeScore-s.AwayScore) <= r.closeThreshold
}

// becameClose reports the not-close → close edge between two snapshots.
func becameClose(prev, cur GameState) bool {
	return isClose(cur) && !isClose(prev)
}

// enteredOvertime reports the regulation → overtime edge.
func enteredOvertime(prev, cur GameState) bool {
	reg := rulesFor(cur.Sport).regulationPeriods
	return cur.Period > reg && prev.Period <= reg
}

// scoringPlay names a scoring update of the given size.
func scoringPlay(sport string, points int) string {
	switch sport {
	case "nfl":
		switch {
		case points >= 6:
			return "TOUCHDOWN"
		case points == 3:
			return "FIELD GOAL"
		case points == 2:
			return "SAFETY"
		}
	case "nhl":
		return "GOAL"
	}
	return ""
}

// --------------------------------------------------------------------------
// Classifier
// --------------------------------------------------------------------------

// Classifier diffs new observations against the stores and emits events.
// It is not safe for concurrent use; the orchestrator serializes calls.
type Classifier struct {
	games  *GameStateStore
	seen   SeenStore
	sports map[string]config.SportConfig
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewClassifier wires a classifier to its stores. sports is normally
// config.SportRegistry.
func NewClassifier(games *GameStateStore, seen SeenStore, sports map[string]config.SportConfig, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		games:  games,
		seen:   seen,
		sports: sports,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// ClassifyGame turns one scoreboard event into at most one alert. The second
// return value is false when the event is discarded or nothing changed.
func (c *Classifier) ClassifyGame(sport string, ev external.ScoreboardEvent) (AlertEvent, bool) {
	cur, ok := c.buildState(sport, ev)
	if !ok {
		return AlertEvent{}, false
	}

	prev, seen := c.games.Get(cur.Key())
	c.games.Put(cur)

	if !seen {
		if cur.Status == StatusIn {
			return c.gameStart(cur), true
		}
		return AlertEvent{}, false
	}

	// First match wins.
	switch {
	case prev.Status != StatusPost && cur.Status == StatusPost:
		return c.gameEnd(cur), true
	case prev.Status == StatusPre && cur.Status == StatusIn:
		return c.gameStart(cur), true
	case prev.HomeScore != cur.HomeScore || prev.AwayScore != cur.AwayScore:
		return c.scoreChange(prev, cur), true
	case cur.Status == StatusIn && becameClose(prev, cur):
		return c.closeGame(cur), true
	case cur.Status == StatusIn && enteredOvertime(prev, cur):
		return c.overtime(cur), true
	}
	return AlertEvent{}, false
}

// buildState extracts a GameState, or reports false if the event is
// structurally incomplete or involves no tracked team.
func (c *Classifier) buildState(sport string, ev external.ScoreboardEvent) (GameState, bool) {
	if ev.ID == "" || len(ev.Competitions) == 0 {
		return GameState{}, false
	}
	comp := ev.Competitions[0]

	var home, away *external.Competitor
	for i := range comp.Competitors {
		switch comp.Competitors[i].HomeAway {
		case "home":
			home = &comp.Competitors[i]
		case "away":
			away = &comp.Competitors[i]
		}
	}
	if home == nil || away == nil || home.Team.DisplayName == "" || away.Team.DisplayName == "" {
		return GameState{}, false
	}

	sc, ok := c.sports[sport]
	if !ok {
		return GameState{}, false
	}
	// Home side is checked first; a crosstown game is tracked as the home team's.
	teamID, isHome := "", false
	if t, ok := matchTeam(sc.Teams, home.Team); ok {
		teamID, isHome = t.ID, true
	} else if t, ok := matchTeam(sc.Teams, away.Team); ok {
		teamID = t.ID
	}
	if teamID == "" {
		return GameState{}, false
	}

	clock := strings.TrimSpace(comp.Status.DisplayClock)
	if clock == "" {
		clock = "0:00"
	}

	return GameState{
		GameID:        ev.ID,
		Sport:         sport,
		HomeTeam:      home.Team.DisplayName,
		AwayTeam:      away.Team.DisplayName,
		HomeScore:     provider.IntOr(home.Score, 0),
		AwayScore:     provider.IntOr(away.Score, 0),
		Period:        provider.IntOr(comp.Status.Period, 0),
		Clock:         clock,
		Status:        parseStatus(comp.Status.Type.State),
		ChicagoTeamID: teamID,
		ChicagoIsHome: isHome,
		LastUpdated:   c.now(),
	}, true
}

func matchTeam(teams []config.Team, t external.CompetitorTeam) (config.Team, bool) {
	for _, tracked := range teams {
		if strings.EqualFold(tracked.Name, t.DisplayName) {
			return tracked, true
		}
		for _, abbr := range tracked.Abbreviations {
			if strings.EqualFold(abbr, t.Abbreviation) {
				return tracked, true
			}
		}
	}
	return config.Team{}, false
}

func parseStatus(s string) GameStatus {
	switch GameStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusIn:
		return StatusIn
	case StatusPost:
		return StatusPost
	default:
		return StatusPre
	}
}

// --------------------------------------------------------------------------
// Event builders
// --------------------------------------------------------------------------

func (c *Classifier) gameEvent(t EventType, p Priority, s GameState, title, body string) AlertEvent {
	return AlertEvent{
		ID:       c.newID(),
		Type:     t,
		GameID:   s.GameID,
		Sport:    s.Sport,
		Team:     s.ChicagoTeamID,
		Title:    title,
		Body:     body,
		Priority: p,
		Data: map[string]string{
			"gameId":    s.GameID,
			"sport":     s.Sport,
			"homeTeam":  s.HomeTeam,
			"awayTeam":  s.AwayTeam,
			"homeScore": strconv.Itoa(s.HomeScore),
			"awayScore": strconv.Itoa(s.AwayScore),
			"period":    strconv.Itoa(s.Period),
			"clock":     s.Clock,
			"status":    string(s.Status),
		},
		Timestamp: c.now(),
	}
}

func (c *Classifier) gameStart(s GameState) AlertEvent {
	title := fmt.Sprintf("%s at %s", s.AwayTeam, s.HomeTeam)
	body := fmt.Sprintf("%s is underway. %s", chicagoName(s), scoreLine(s))
	return c.gameEvent(GameStart, PriorityNormal, s, title, body)
}

func (c *Classifier) gameEnd(s GameState) AlertEvent {
	us, them := s.HomeScore, s.AwayScore
	if !s.ChicagoIsHome {
		us, them = them, us
	}
	final := fmt.Sprintf("Final: %s %d, %s %d", s.AwayTeam, s.AwayScore, s.HomeTeam, s.HomeScore)

	var body string
	switch {
	case us > them:
		body = fmt.Sprintf("%s win! %s", chicagoName(s), final)
	case us < them:
		body = fmt.Sprintf("%s lose. %s", chicagoName(s), final)
	default:
		body = fmt.Sprintf("%s draw. %s", chicagoName(s), final)
	}
	return c.gameEvent(GameEnd, PriorityHigh, s, "FINAL", body)
}

func (c *Classifier) scoreChange(prev, cur GameState) AlertEvent {
	homePts := cur.HomeScore - prev.HomeScore
	awayPts := cur.AwayScore - prev.AwayScore

	scorer, points := cur.HomeTeam, homePts
	if awayPts > homePts {
		scorer, points = cur.AwayTeam, awayPts
	}

	var title string
	switch play := scoringPlay(cur.Sport, points); {
	case points <= 0:
		title = "Score update"
	case play != "":
		title = fmt.Sprintf("%s! %s", play, scorer)
	default:
		title = fmt.Sprintf("%s scores", scorer)
	}
	return c.gameEvent(ScoreChange, PriorityHigh, cur, title, scoreLine(cur))
}

func (c *Classifier) closeGame(s GameState) AlertEvent {
	return c.gameEvent(CloseGame, PriorityHigh, s, "Close game", scoreLine(s))
}

func (c *Classifier) overtime(s GameState) AlertEvent {
	title := "OVERTIME"
	if s.Sport == "mlb" {
		title = "EXTRA INNINGS"
	}
	return c.gameEvent(Overtime, PriorityHigh, s, title, scoreLine(s))
}

// scoreLine renders "Away X, Home Y - <clock>".
func scoreLine(s GameState) string {
	return fmt.Sprintf("%s %d, %s %d - %s", s.AwayTeam, s.AwayScore, s.HomeTeam, s.HomeScore, formatClock(s))
}

func formatClock(s GameState) string {
	if s.Status == StatusPost {
		return "Final"
	}
	if s.Period <= 0 {
		return s.Clock
	}
	reg := rulesFor(s.Sport).regulationPeriods
	switch s.Sport {
	case "mlb":
		return fmt.Sprintf("Inning %d", s.Period)
	case "nhl":
		if s.Period > reg {
			return fmt.Sprintf("OT %s", s.Clock)
		}
		return fmt.Sprintf("P%d %s", s.Period, s.Clock)
	case "mls":
		return s.Clock
	default:
		if s.Period > reg {
			return fmt.Sprintf("OT %s", s.Clock)
		}
		return fmt.Sprintf("Q%d %s", s.Period, s.Clock)
	}
}

func chicagoName(s GameState) string {
	if s.ChicagoIsHome {
		return s.HomeTeam
	}
	return s.AwayTeam
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
