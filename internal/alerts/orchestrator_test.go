package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/external"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeScores struct {
	mu     sync.Mutex
	events map[string][]external.ScoreboardEvent
	errs   map[string]error

	started chan struct{} // closed on first Fetch when block is set
	block   chan struct{}
	once    sync.Once

	panics map[string]bool
}

func (f *fakeScores) Fetch(ctx context.Context, sport string) ([]external.ScoreboardEvent, error) {
	if f.block != nil {
		f.once.Do(func() { close(f.started) })
		<-f.block
	}
	if f.panics[sport] {
		panic("scoreboard decoder exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[sport], f.errs[sport]
}

type fakeNews struct {
	items map[string][]external.NewsItem
}

func (f *fakeNews) Fetch(ctx context.Context, feedURL string) ([]external.NewsItem, error) {
	return f.items[feedURL], nil
}

// groupingDispatcher sends one delivery per dispatch key.
type groupingDispatcher struct {
	mu     sync.Mutex
	calls  [][]AlertEvent
	err    error
	panics bool
}

func (d *groupingDispatcher) Send(ctx context.Context, events []AlertEvent) []Delivery {
	if d.panics {
		panic("provider exploded")
	}
	d.mu.Lock()
	d.calls = append(d.calls, events)
	d.mu.Unlock()

	var out []Delivery
	index := map[string]int{}
	for _, e := range events {
		i, ok := index[e.DispatchKey()]
		if !ok {
			i = len(out)
			index[e.DispatchKey()] = i
			out = append(out, Delivery{Notification: e, Err: d.err})
		}
		out[i].Events = append(out[i].Events, e)
	}
	return out
}

var testFeed = config.Feed{Name: "test", URL: "feed://test"}

func newTestOrchestrator(scores *fakeScores, news *fakeNews, disp Dispatcher, spam SpamConfig, clock *fakeClock) (*Orchestrator, *SpamFilter) {
	c, games := newTestClassifier()
	c.now = clock.Now
	d := NewDiscovery(scores, news, c, []string{"nfl", "nba"}, []config.Feed{testFeed}, nil, nil)
	f := NewSpamFilter(spam, clock.Now)
	return NewOrchestrator(d, f, disp, games, nil, nil), f
}

func TestOrchestratorRunCycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given sources with two live games and two Bears news items", t, func() {
		clock := &fakeClock{t: testNow}
		scores := &fakeScores{events: map[string][]external.ScoreboardEvent{
			"nfl": {scoreboardEvent("401", "in", 1, "15:00", bears(0), packers(0))},
			"nba": {scoreboardEvent("88", "in", 1, "12:00", side{"Chicago Bulls", "CHI", 0}, side{"Boston Celtics", "BOS", 0})},
		}}
		news := &fakeNews{items: map[string][]external.NewsItem{
			testFeed.URL: {
				{Title: "Bears QB injured in practice", Link: "n1"},
				{Title: "Bears sign veteran linebacker", Link: "n2"},
				{Title: "Packers win again", Link: "n3"},
			},
		}}
		disp := &groupingDispatcher{}
		o, filter := newTestOrchestrator(scores, news, disp, DefaultSpamConfig(), clock)

		Convey("A cycle reports discovered, sent groups and filtered counts", func() {
			res := o.RunCycle(ctx)
			So(res, ShouldResemble, CycleResult{Discovered: 4, Sent: 3, Filtered: 0})
			So(disp.calls, ShouldHaveLength, 1)
			So(disp.calls[0], ShouldHaveLength, 4)

			Convey("and every event of a delivered group is charged to the filter", func() {
				So(filter.SentThisWindow(), ShouldEqual, 4)
			})

			Convey("and an unchanged second cycle discovers nothing", func() {
				clock.Advance(30 * time.Second)
				So(o.RunCycle(ctx), ShouldResemble, CycleResult{})
				So(disp.calls, ShouldHaveLength, 1)
			})

			Convey("and the status snapshot reflects the run", func() {
				st := o.Status()
				So(st["running"], ShouldEqual, false)
				So(st["last_result"], ShouldResemble, res)
				So(st["tracked_games"], ShouldEqual, 2)
			})
		})

		Convey("Events inside the minimum gap are filtered", func() {
			filter.RecordSent(AlertEvent{Team: "bears", GameID: "401"})
			clock.Advance(10 * time.Second)

			res := o.RunCycle(ctx)
			So(res, ShouldResemble, CycleResult{Discovered: 4, Sent: 2, Filtered: 1})
		})

		Convey("A failed delivery is not counted or charged", func() {
			disp.err = errors.New("provider unavailable")

			res := o.RunCycle(ctx)
			So(res, ShouldResemble, CycleResult{Discovered: 4, Sent: 0, Filtered: 0})
			So(filter.SentThisWindow(), ShouldEqual, 0)
			So(o.Status()["last_errors"], ShouldHaveLength, 3)
		})

		Convey("A failing source is skipped and the rest still run", func() {
			scores.errs = map[string]error{"nfl": errors.New("scoreboard nfl returned 503")}

			res := o.RunCycle(ctx)
			So(res.Discovered, ShouldEqual, 3)
			So(o.Status()["last_errors"], ShouldHaveLength, 1)
		})

		Convey("A panicking source is skipped like a failing one", func() {
			scores.panics = map[string]bool{"nfl": true}

			var res CycleResult
			So(func() { res = o.RunCycle(ctx) }, ShouldNotPanic)
			So(res.Discovered, ShouldEqual, 3)
			So(o.Running(), ShouldBeFalse)
			So(o.Status()["last_errors"], ShouldHaveLength, 1)
		})

		Convey("A panicking dispatcher leaves the orchestrator idle", func() {
			disp.panics = true

			So(func() { o.RunCycle(ctx) }, ShouldNotPanic)
			So(o.Running(), ShouldBeFalse)
			So(o.Status()["last_errors"], ShouldHaveLength, 1)
		})
	})
}

func TestOrchestratorMutualExclusion(t *testing.T) {
	Convey("Given a cycle blocked inside discovery", t, func() {
		clock := &fakeClock{t: testNow}
		scores := &fakeScores{
			events: map[string][]external.ScoreboardEvent{
				"nfl": {scoreboardEvent("401", "in", 1, "15:00", bears(0), packers(0))},
			},
			started: make(chan struct{}),
			block:   make(chan struct{}),
		}
		o, _ := newTestOrchestrator(scores, &fakeNews{}, &groupingDispatcher{}, DefaultSpamConfig(), clock)

		done := make(chan CycleResult, 1)
		go func() { done <- o.RunCycle(context.Background()) }()
		<-scores.started

		Convey("an overlapping call returns zero counts immediately", func() {
			So(o.Running(), ShouldBeTrue)
			So(o.RunCycle(context.Background()), ShouldResemble, CycleResult{})

			close(scores.block)
			first := <-done
			So(first, ShouldResemble, CycleResult{Discovered: 1, Sent: 1, Filtered: 0})
			So(o.Running(), ShouldBeFalse)
		})
	})
}
