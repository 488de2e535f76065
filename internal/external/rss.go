package external

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// MaxFeedItems caps how many items one feed fetch yields.
const MaxFeedItems = 10

// NewsItem is a normalized RSS item.
type NewsItem struct {
	Title       string
	Link        string
	Description string
}

// FeedClient fetches RSS feeds.
type FeedClient struct {
	f *fetcher
}

// NewFeedClient creates an RSS client.
func NewFeedClient(timeout time.Duration, logger *slog.Logger) *FeedClient {
	return &FeedClient{f: newFetcher(timeout, logger)}
}

// Fetch downloads feedURL and returns up to MaxFeedItems items.
func (c *FeedClient) Fetch(ctx context.Context, feedURL string) ([]NewsItem, error) {
	body, err := c.f.get(ctx, feedURL, "application/rss+xml, application/xml, text/xml")
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", feedURL, err)
	}
	return ParseFeed(string(body)), nil
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Feeds in the wild are often not well-formed XML, so items are scanned
// textually rather than decoded as a document. One broken item never hides
// the others.
var (
	itemRe    = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)

	fieldRes = map[string][2]*regexp.Regexp{
		"title":       fieldPatterns("title"),
		"link":        fieldPatterns("link"),
		"description": fieldPatterns("description"),
	}
)

func fieldPatterns(tag string) [2]*regexp.Regexp {
	return [2]*regexp.Regexp{
		regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>\s*<!\[CDATA\[(.*?)\]\]>\s*</` + tag + `>`),
		regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>(.*?)</` + tag + `>`),
	}
}

// ParseFeed extracts the first MaxFeedItems items of an RSS document in feed
// order. Items without a link still count toward the cap but are skipped
// since the link is their identity.
func ParseFeed(doc string) []NewsItem {
	matches := itemRe.FindAllStringSubmatch(doc, -1)
	if len(matches) > MaxFeedItems {
		matches = matches[:MaxFeedItems]
	}
	items := make([]NewsItem, 0, len(matches))

	for _, m := range matches {
		block := m[1]
		item := NewsItem{
			Title:       cleanText(extractField(block, "title")),
			Link:        strings.TrimSpace(html.UnescapeString(extractField(block, "link"))),
			Description: cleanText(extractField(block, "description")),
		}
		if item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// extractField prefers a CDATA-wrapped value and falls back to plain text.
func extractField(block, tag string) string {
	res := fieldRes[tag]
	if m := res[0].FindStringSubmatch(block); m != nil {
		return m[1]
	}
	if m := res[1].FindStringSubmatch(block); m != nil {
		return m[1]
	}
	return ""
}

func cleanText(s string) string {
	s = html.UnescapeString(s)
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
