package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/albapepper/scoracle-alerts/internal/provider"
)

const sampleScoreboard = `{
  "events": [
    {
      "id": "401",
      "competitions": [{
        "competitors": [
          {"homeAway": "home", "score": "14", "team": {"displayName": "Chicago Bears", "abbreviation": "CHI"}},
          {"homeAway": "away", "score": 10, "team": {"displayName": "Green Bay Packers", "abbreviation": "GB"}}
        ],
        "status": {"period": 3, "displayClock": "4:12", "type": {"state": "in"}}
      }]
    },
    {"id": 12345, "competitions": "nope"},
    {"id": "402", "competitions": []}
  ]
}`

func TestParseScoreboard(t *testing.T) {
	Convey("Given a scoreboard with one malformed event", t, func() {
		events, dropped, err := ParseScoreboard([]byte(sampleScoreboard))

		Convey("Good events decode and the bad one is dropped", func() {
			So(err, ShouldBeNil)
			So(dropped, ShouldEqual, 1)
			So(events, ShouldHaveLength, 2)

			ev := events[0]
			So(ev.ID, ShouldEqual, "401")
			comp := ev.Competitions[0]
			So(comp.Competitors[0].Team.DisplayName, ShouldEqual, "Chicago Bears")
			So(provider.IntOr(comp.Competitors[0].Score, -1), ShouldEqual, 14)
			So(provider.IntOr(comp.Competitors[1].Score, -1), ShouldEqual, 10)
			So(provider.IntOr(comp.Status.Period, -1), ShouldEqual, 3)
			So(comp.Status.Type.State, ShouldEqual, "in")
		})
	})

	Convey("A body that is not a scoreboard envelope is an error", t, func() {
		_, _, err := ParseScoreboard([]byte(`<html>`))
		So(err, ShouldNotBeNil)
	})
}

func TestScoreboardClientFetch(t *testing.T) {
	Convey("Given a scoreboard server", t, func() {
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			if r.URL.Path == "/hockey/nhl/scoreboard" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(sampleScoreboard))
		}))
		defer srv.Close()

		c := NewScoreboardClient(srv.URL+"/", map[string]string{
			"nfl": "football/nfl",
			"nhl": "hockey/nhl",
		}, 0, nil)

		Convey("Fetch requests the sport's scoreboard path", func() {
			events, err := c.Fetch(context.Background(), "nfl")
			So(err, ShouldBeNil)
			So(path, ShouldEqual, "/football/nfl/scoreboard")
			So(events, ShouldHaveLength, 2)
		})

		Convey("An upstream failure carries the status code", func() {
			_, err := c.Fetch(context.Background(), "nhl")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "scoreboard nhl")

			var se *StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Unknown sports fail without a request", func() {
			path = ""
			_, err := c.Fetch(context.Background(), "cricket")
			So(err, ShouldNotBeNil)
			So(path, ShouldBeEmpty)
		})
	})
}
