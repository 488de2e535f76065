package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
)

type recordingSender struct {
	mu     sync.Mutex
	pushes []Push
	at     []time.Time
	fail   map[string]error // by heading
}

func (s *recordingSender) Send(ctx context.Context, p Push) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, p)
	s.at = append(s.at, time.Now())
	return s.fail[p.Heading]
}

type recordingLog struct {
	deliveries []alerts.Delivery
}

func (l *recordingLog) Record(ctx context.Context, d alerts.Delivery) error {
	l.deliveries = append(l.deliveries, d)
	return nil
}

func event(id string, t alerts.EventType, team, gameID string, p alerts.Priority, body string) alerts.AlertEvent {
	return alerts.AlertEvent{
		ID: id, Type: t, Team: team, GameID: gameID, Priority: p,
		Title: "title-" + id, Body: body,
		Data: map[string]string{"sport": "nfl"},
	}
}

func TestGrouping(t *testing.T) {
	Convey("Given three events for bears-123 and one for bulls-news", t, func() {
		events := []alerts.AlertEvent{
			event("a", alerts.ScoreChange, "bears", "123", alerts.PriorityNormal, "normal body"),
			event("n", alerts.Trade, "bulls", "", alerts.PriorityHigh, "trade body"),
			event("b", alerts.ScoreChange, "bears", "123", alerts.PriorityHigh, "high body"),
			event("c", alerts.ScoreChange, "bears", "123", alerts.PriorityLow, "low body"),
		}

		Convey("Groups keep first-seen order", func() {
			groups := GroupEvents(events)
			So(groups, ShouldHaveLength, 2)
			So(groups[0].Key, ShouldEqual, "bears-123")
			So(groups[0].Events, ShouldHaveLength, 3)
			So(groups[1].Key, ShouldEqual, "bulls-news")
		})

		Convey("The representative is the high event with a count suffix", func() {
			rep := Representative(GroupEvents(events)[0])
			So(rep.ID, ShouldEqual, "b")
			So(rep.Body, ShouldEqual, "high body (+2 more)")
			So(events[2].Body, ShouldEqual, "high body")
		})

		Convey("Singletons are sent as-is", func() {
			rep := Representative(GroupEvents(events)[1])
			So(rep.Body, ShouldEqual, "trade body")
		})

		Convey("Equal priorities keep the earliest event", func() {
			rep := Representative(Group{Events: []alerts.AlertEvent{
				event("x", alerts.Injury, "cubs", "", alerts.PriorityHigh, "first"),
				event("y", alerts.Trade, "cubs", "", alerts.PriorityHigh, "second"),
			}})
			So(rep.ID, ShouldEqual, "x")
			So(rep.Body, ShouldEqual, "first (+1 more)")
		})
	})
}

func TestBuildPush(t *testing.T) {
	Convey("Given a dispatcher with separate game and news channels", t, func() {
		d := NewDispatcher(nil, nil, DispatchConfig{GameChannelID: "game-ch", NewsChannelID: "news-ch"}, nil, nil)

		Convey("Score events target followers of the team who opted into scores", func() {
			p := d.BuildPush(event("a", alerts.ScoreChange, "bears", "123", alerts.PriorityHigh, "b"))
			So(p.ExternalID, ShouldEqual, "a")
			So(p.ChannelID, ShouldEqual, "game-ch")
			So(p.Priority, ShouldEqual, 10)
			So(p.TTL, ShouldEqual, 3600)
			So(p.Filters, ShouldResemble, []Filter{
				{Field: "tag", Key: "notifications_enabled", Relation: "=", Value: "true"},
				{Field: "tag", Key: "follows_bears", Relation: "=", Value: "true"},
				{Field: "tag", Key: "alerts_scores", Relation: "=", Value: "true"},
			})
			So(p.Data["type"], ShouldEqual, "SCORE_CHANGE")
			So(p.Data["team"], ShouldEqual, "bears")
			So(p.Data["gameId"], ShouldEqual, "123")
			So(p.Data["sport"], ShouldEqual, "nfl")
		})

		Convey("City-wide news skips the follow filter and uses the news channel", func() {
			p := d.BuildPush(event("n", alerts.BreakingNews, alerts.CityWideTeam, "", alerts.PriorityNormal, "b"))
			So(p.ChannelID, ShouldEqual, "news-ch")
			So(p.Priority, ShouldEqual, 5)
			So(p.Filters, ShouldHaveLength, 2)
			So(p.Filters[1].Key, ShouldEqual, "alerts_breaking")
			_, hasGame := p.Data["gameId"]
			So(hasGame, ShouldBeFalse)
		})

		Convey("Category tags follow the event type", func() {
			So(categoryTag(alerts.Injury), ShouldEqual, "alerts_injuries")
			So(categoryTag(alerts.Trade), ShouldEqual, "alerts_trades")
			So(categoryTag(alerts.RosterMove), ShouldEqual, "alerts_trades")
			So(categoryTag(alerts.Overtime), ShouldEqual, "alerts_scores")
		})
	})
}

func TestDispatcherSend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher with a recording sender", t, func() {
		sender := &recordingSender{}
		log := &recordingLog{}
		d := NewDispatcher(sender, log, DispatchConfig{SendDelay: 20 * time.Millisecond}, nil, nil)

		Convey("Three bears-123 events produce exactly one push", func() {
			deliveries := d.Send(ctx, []alerts.AlertEvent{
				event("a", alerts.ScoreChange, "bears", "123", alerts.PriorityNormal, "normal body"),
				event("b", alerts.ScoreChange, "bears", "123", alerts.PriorityHigh, "high body"),
				event("c", alerts.ScoreChange, "bears", "123", alerts.PriorityLow, "low body"),
			})
			So(sender.pushes, ShouldHaveLength, 1)
			So(sender.pushes[0].Content, ShouldEqual, "high body (+2 more)")
			So(deliveries, ShouldHaveLength, 1)
			So(deliveries[0].Err, ShouldBeNil)
			So(deliveries[0].Events, ShouldHaveLength, 3)
			So(log.deliveries, ShouldHaveLength, 1)
		})

		Convey("A failed send is reported and the batch continues", func() {
			sender.fail = map[string]error{"title-a": errors.New("boom")}
			deliveries := d.Send(ctx, []alerts.AlertEvent{
				event("a", alerts.GameStart, "bears", "1", alerts.PriorityNormal, "x"),
				event("b", alerts.GameStart, "bulls", "2", alerts.PriorityNormal, "y"),
			})
			So(sender.pushes, ShouldHaveLength, 2)
			So(deliveries[0].Err, ShouldNotBeNil)
			So(deliveries[1].Err, ShouldBeNil)
		})

		Convey("Sends are spaced by the configured delay", func() {
			d.Send(ctx, []alerts.AlertEvent{
				event("a", alerts.GameStart, "bears", "1", alerts.PriorityNormal, "x"),
				event("b", alerts.GameStart, "bulls", "2", alerts.PriorityNormal, "y"),
				event("c", alerts.GameStart, "cubs", "3", alerts.PriorityNormal, "z"),
			})
			So(sender.at, ShouldHaveLength, 3)
			So(sender.at[2].Sub(sender.at[0]), ShouldBeGreaterThanOrEqualTo, 35*time.Millisecond)
		})

		Convey("A cancelled context fails the remaining groups", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			deliveries := d.Send(cctx, []alerts.AlertEvent{
				event("a", alerts.GameStart, "bears", "1", alerts.PriorityNormal, "x"),
			})
			So(deliveries, ShouldHaveLength, 1)
			So(deliveries[0].Err, ShouldNotBeNil)
			So(sender.pushes, ShouldBeEmpty)
		})
	})

	Convey("Without a sender, pushes are logged and reported as delivered", t, func() {
		d := NewDispatcher(nil, nil, DispatchConfig{}, nil, nil)
		deliveries := d.Send(ctx, []alerts.AlertEvent{
			event("a", alerts.Injury, "bears", "", alerts.PriorityHigh, "x"),
		})
		So(deliveries, ShouldHaveLength, 1)
		So(deliveries[0].Err, ShouldBeNil)
	})
}
