package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"horse.fit/newsalert/internal/globaltime"
	"horse.fit/newsalert/internal/news"
)

const (
	defaultTimeout = 20 * time.Second
	maxDescription = 1000
	userAgent      = "newsalert/1.0 (+rss)"
)

// Source is one named RSS or Atom endpoint.
type Source struct {
	Name string
	URL  string
}

type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, timeout: timeout}
}

// gofeed parsers keep per-document state, so each fetch gets its own.
func (f *Fetcher) newParser() *gofeed.Parser {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = f.client
	return parser
}

// Fetch downloads and parses one source. Entries without a title or link are
// skipped.
func (f *Fetcher) Fetch(ctx context.Context, source Source) ([]news.FeedItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.newParser().ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.Name, err)
	}

	fetchedAt := globaltime.UTC()
	items := make([]news.FeedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		item, ok := toFeedItem(entry, source.Name, fetchedAt)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func toFeedItem(entry *gofeed.Item, sourceName string, fetchedAt time.Time) (news.FeedItem, bool) {
	title := cleanText(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return news.FeedItem{}, false
	}

	description := cleanText(entry.Description)
	if description == "" {
		description = cleanText(entry.Content)
	}
	description = truncate(description, maxDescription)
	if description == "" {
		description = news.NoDetailsDescription
	}

	published := fetchedAt
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	guid := strings.TrimSpace(entry.GUID)
	if guid == "" {
		guid = link
	}

	return news.FeedItem{
		Title:       title,
		Description: description,
		Link:        link,
		PubDate:     published.UTC().Format(time.RFC3339),
		GUID:        guid,
		Source:      sourceName,
		ImageURL:    imageURL(entry),
	}, true
}

func imageURL(entry *gofeed.Item) string {
	if entry.Image != nil && strings.TrimSpace(entry.Image.URL) != "" {
		return strings.TrimSpace(entry.Image.URL)
	}
	for _, enclosure := range entry.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "image/") && strings.TrimSpace(enclosure.URL) != "" {
			return strings.TrimSpace(enclosure.URL)
		}
	}
	return ""
}

// Result holds items in source order and one error per failed source.
type Result struct {
	Items  []news.FeedItem
	Errors []SourceError
}

type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// FetchAll fetches every source concurrently. A failing source does not stop
// the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) Result {
	perSource := make([][]news.FeedItem, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, s Source) {
			defer wg.Done()
			perSource[i], errs[i] = f.Fetch(ctx, s)
		}(i, src)
	}
	wg.Wait()

	var result Result
	for i, items := range perSource {
		if errs[i] != nil {
			result.Errors = append(result.Errors, SourceError{Source: sources[i].Name, Err: errs[i]})
			continue
		}
		result.Items = append(result.Items, items...)
	}
	return result
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(stripHTML(s))), " ")
}

func stripHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
