package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/albapepper/scoracle-alerts/internal/config"
	"github.com/albapepper/scoracle-alerts/internal/external"
	"github.com/albapepper/scoracle-alerts/internal/metrics"
)

// ScoreSource fetches one sport's live scoreboard.
type ScoreSource interface {
	Fetch(ctx context.Context, sport string) ([]external.ScoreboardEvent, error)
}

// NewsSource fetches and parses one RSS feed.
type NewsSource interface {
	Fetch(ctx context.Context, feedURL string) ([]external.NewsItem, error)
}

// Discovery runs every sport and feed poller once per cycle.
type Discovery struct {
	scores     ScoreSource
	news       NewsSource
	classifier *Classifier
	sports     []string
	feeds      []config.Feed
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// DiscoveryResult is the outcome of one discovery pass.
type DiscoveryResult struct {
	Events []AlertEvent
	Errors []string
}

// NewDiscovery creates a discovery pass over the given sports and feeds.
func NewDiscovery(scores ScoreSource, news NewsSource, classifier *Classifier, sports []string, feeds []config.Feed, m *metrics.Metrics, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		scores:     scores,
		news:       news,
		classifier: classifier,
		sports:     sports,
		feeds:      feeds,
		metrics:    m,
		logger:     logger,
	}
}

// Run fetches all sources concurrently, then classifies sequentially in
// configuration order so that store writes never race. A failed or
// panicking source is logged and skipped.
func (d *Discovery) Run(ctx context.Context) DiscoveryResult {
	type scoreFetch struct {
		events []external.ScoreboardEvent
		err    error
	}
	type feedFetch struct {
		items []external.NewsItem
		err   error
	}

	scoreResults := make([]scoreFetch, len(d.sports))
	feedResults := make([]feedFetch, len(d.feeds))

	var wg sync.WaitGroup
	if d.scores != nil {
		for i, sport := range d.sports {
			i, sport := i, sport
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						scoreResults[i] = scoreFetch{err: fmt.Errorf("panic: %v", r)}
					}
				}()
				events, err := d.scores.Fetch(ctx, sport)
				scoreResults[i] = scoreFetch{events, err}
			}()
		}
	}
	if d.news != nil {
		for i, feed := range d.feeds {
			i, feed := i, feed
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						feedResults[i] = feedFetch{err: fmt.Errorf("panic: %v", r)}
					}
				}()
				items, err := d.news.Fetch(ctx, feed.URL)
				feedResults[i] = feedFetch{items, err}
			}()
		}
	}
	wg.Wait()

	var result DiscoveryResult

	if d.scores != nil {
		for i, sport := range d.sports {
			r := scoreResults[i]
			if r.err != nil {
				d.logger.Warn("scoreboard fetch failed", "sport", sport, "error", r.err)
				d.metrics.SourceError("scoreboard", sport)
				result.Errors = append(result.Errors, fmt.Sprintf("scoreboard %s: %v", sport, r.err))
				continue
			}
			for _, ev := range r.events {
				if alert, ok := d.classifier.ClassifyGame(sport, ev); ok {
					result.Events = append(result.Events, alert)
				}
			}
		}
	}

	if d.news != nil {
		for i, feed := range d.feeds {
			r := feedResults[i]
			if r.err != nil {
				d.logger.Warn("feed fetch failed", "feed", feed.Name, "error", r.err)
				d.metrics.SourceError("rss", feed.Name)
				result.Errors = append(result.Errors, fmt.Sprintf("feed %s: %v", feed.Name, r.err))
				continue
			}
			for _, item := range r.items {
				if alert, ok := d.classifier.ClassifyNews(ctx, feed, item); ok {
					result.Events = append(result.Events, alert)
				}
			}
		}
	}

	for _, e := range result.Events {
		d.metrics.EventDiscovered(string(e.Type))
	}
	return result
}
