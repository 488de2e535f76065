package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDB struct {
	mu   sync.Mutex
	sql  []string
	args [][]any
	err  error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("DELETE 3"), f.err
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSizer struct{ calls int }

func (f *fakeSizer) Size(context.Context) (int64, error) {
	f.calls++
	return 42, nil
}

func TestTasks(t *testing.T) {
	ctx := context.Background()

	Convey("cleanup deletes rows past the retention window", t, func() {
		db := &fakeDB{}
		cleanup(ctx, db, 48*time.Hour, quiet)
		So(db.sql, ShouldHaveLength, 1)
		So(db.sql[0], ShouldContainSubstring, "DELETE FROM alert_log")
		So(db.args[0], ShouldResemble, []any{float64(172800)})
	})

	Convey("cleanup survives a database error", t, func() {
		db := &fakeDB{err: errors.New("down")}
		So(func() { cleanup(ctx, db, time.Hour, quiet) }, ShouldNotPanic)
	})

	Convey("reportSeen reads the store size", t, func() {
		s := &fakeSizer{}
		reportSeen(ctx, s, quiet)
		So(s.calls, ShouldEqual, 1)
	})
}

func TestRunLoop(t *testing.T) {
	Convey("runLoop runs once per tick until cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		ticks := make(chan time.Time)
		ran := make(chan struct{}, 4)
		done := make(chan struct{})

		go func() {
			runLoop(ctx, ticks, func() { ran <- struct{}{} })
			close(done)
		}()

		ticks <- time.Now()
		ticks <- time.Now()
		<-ran
		<-ran
		cancel()
		<-done
		So(len(ran), ShouldEqual, 0)
	})

	Convey("Start returns when its context ends", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			Start(ctx, &fakeDB{}, &fakeSizer{}, DefaultConfig(), quiet)
			close(done)
		}()
		cancel()

		stopped := false
		select {
		case <-done:
			stopped = true
		case <-time.After(2 * time.Second):
		}
		So(stopped, ShouldBeTrue)
	})
}
