package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/external"
)

type failingSeenStore struct{}

func (failingSeenStore) SeenAndRecord(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingSeenStore) Size(context.Context) (int64, error) { return 0, nil }

func TestClassifyNews(t *testing.T) {
	ctx := context.Background()
	feed := config.Feed{Name: "espn-nfl", URL: "https://example.com/nfl.rss"}

	Convey("Given a classifier with an empty seen store", t, func() {
		c, _ := newTestClassifier()

		Convey("A Chicago injury item becomes an INJURY alert for its team", func() {
			item := external.NewsItem{Title: "Bears QB injured in practice", Link: "https://example.com/a1"}
			ev, ok := c.ClassifyNews(ctx, feed, item)
			So(ok, ShouldBeTrue)
			So(ev.Type, ShouldEqual, Injury)
			So(ev.Team, ShouldEqual, "bears")
			So(ev.Title, ShouldEqual, "Bears Injury Update")
			So(ev.Body, ShouldEqual, item.Title)
			So(ev.Priority, ShouldEqual, PriorityHigh)
			So(ev.GameID, ShouldBeEmpty)
			So(ev.DispatchKey(), ShouldEqual, "bears-news")
			So(ev.Data, ShouldResemble, map[string]string{"link": item.Link, "feed": "espn-nfl"})

			Convey("and the same link never alerts again, even with a new title", func() {
				item.Title = "UPDATE: Bears QB injured, out for season"
				_, ok := c.ClassifyNews(ctx, feed, item)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Trade keywords produce a TRADE alert", func() {
			ev, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: "White Sox acquire reliever from Rays", Link: "l2"})
			So(ok, ShouldBeTrue)
			So(ev.Type, ShouldEqual, Trade)
			So(ev.Team, ShouldEqual, "whitesox")
			So(ev.Title, ShouldEqual, "White Sox Trade Alert")
		})

		Convey("Breaking news without a franchise goes to the city-wide bucket", func() {
			ev, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: "Just in: Chicago to host 2028 draft", Link: "l3"})
			So(ok, ShouldBeTrue)
			So(ev.Type, ShouldEqual, BreakingNews)
			So(ev.Team, ShouldEqual, CityWideTeam)
			So(ev.Title, ShouldEqual, "Chicago Breaking News")
		})

		Convey("Keywords in the description count", func() {
			ev, ok := c.ClassifyNews(ctx, feed, external.NewsItem{
				Title:       "Roster news",
				Description: "The Blackhawks placed their captain on injured reserve.",
				Link:        "l4",
			})
			So(ok, ShouldBeTrue)
			So(ev.Type, ShouldEqual, Injury)
			So(ev.Team, ShouldEqual, "blackhawks")
		})

		Convey("Items not about Chicago are dropped but still recorded", func() {
			item := external.NewsItem{Title: "Packers QB injured", Link: "l5"}
			_, ok := c.ClassifyNews(ctx, feed, item)
			So(ok, ShouldBeFalse)

			item.Title = "Bears QB injured"
			_, ok = c.ClassifyNews(ctx, feed, item)
			So(ok, ShouldBeFalse)
		})

		Convey("Chicago items with no category keyword are dropped", func() {
			_, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: "Cubs fans enjoy the sunshine", Link: "l6"})
			So(ok, ShouldBeFalse)
		})

		Convey("Bodies are cut to 100 characters", func() {
			title := "Bulls injury report: " + strings.Repeat("é", 150)
			ev, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: title, Link: "l7"})
			So(ok, ShouldBeTrue)
			So(utf8.RuneCountInString(ev.Body), ShouldEqual, 100)
			So(strings.HasPrefix(title, ev.Body), ShouldBeTrue)
		})

		Convey("Items without a link are ignored", func() {
			_, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: "Bears injury"})
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a seen store that fails", t, func() {
		c := NewClassifier(NewGameStateStore(), failingSeenStore{}, config.SportRegistry, nil)

		Convey("the item is skipped", func() {
			_, ok := c.ClassifyNews(ctx, feed, external.NewsItem{Title: "Bears QB injured", Link: "l8"})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMemorySeenStore(t *testing.T) {
	ctx := context.Background()

	Convey("An unbounded store remembers every link", t, func() {
		s := NewMemorySeenStore(0)
		seen, err := s.SeenAndRecord(ctx, "a")
		So(err, ShouldBeNil)
		So(seen, ShouldBeFalse)

		seen, _ = s.SeenAndRecord(ctx, "a")
		So(seen, ShouldBeTrue)

		n, _ := s.Size(ctx)
		So(n, ShouldEqual, 1)
	})

	Convey("A bounded store evicts the oldest link", t, func() {
		s := NewMemorySeenStore(2)
		s.SeenAndRecord(ctx, "a")
		s.SeenAndRecord(ctx, "b")
		s.SeenAndRecord(ctx, "c")

		n, _ := s.Size(ctx)
		So(n, ShouldEqual, 2)

		seen, _ := s.SeenAndRecord(ctx, "c")
		So(seen, ShouldBeTrue)
		seen, _ = s.SeenAndRecord(ctx, "a")
		So(seen, ShouldBeFalse)
	})
}

func TestGameStateStore(t *testing.T) {
	Convey("States without a tracked team are not stored", t, func() {
		s := NewGameStateStore()
		s.Put(GameState{GameID: "1", Sport: "nfl"})
		So(s.Len(), ShouldEqual, 0)

		s.Put(GameState{GameID: "1", Sport: "nfl", ChicagoTeamID: "bears", HomeScore: 3})
		s.Put(GameState{GameID: "1", Sport: "nfl", ChicagoTeamID: "bears", HomeScore: 10})
		st, ok := s.Get("nfl-1")
		So(ok, ShouldBeTrue)
		So(st.HomeScore, ShouldEqual, 10)
		So(s.Len(), ShouldEqual, 1)
	})
}
