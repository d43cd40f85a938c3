package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultUserAgent    = "newsbrief/1.0 (+https://github.com/matheuskafuri/newsbrief)"
	defaultFetchTimeout = 30 * time.Second
	maxSummaryLen       = 500
)

// Article is the uniform record produced from one feed entry. Link is the
// unique key; everything downstream treats articles as read-only.
type Article struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
	Source    string
	SourceURL string
	ImageURL  string
}

// Fetcher retrieves and parses RSS/Atom feeds into Articles.
type Fetcher struct {
	parser  *gofeed.Parser
	client  *http.Client
	creds   *Credentials
	perFeed int
	maxAge  time.Duration
}

// NewFetcher creates a Fetcher. perFeed caps articles taken per feed;
// maxAge drops entries older than the freshness window (0 disables).
func NewFetcher(creds *Credentials, perFeed int, maxAge time.Duration) *Fetcher {
	if perFeed <= 0 {
		perFeed = 10
	}
	return &Fetcher{
		parser:  gofeed.NewParser(),
		client:  &http.Client{Timeout: defaultFetchTimeout},
		creds:   creds,
		perFeed: perFeed,
		maxAge:  maxAge,
	}
}

// Fetch retrieves one feed and maps its entries to Articles.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]Article, error) {
	parsed, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	source := parsed.Title
	if source == "" {
		source = domainOf(feedURL)
	}
	sourceURL := parsed.Link
	if sourceURL == "" {
		sourceURL = feedURL
	}

	now := time.Now()
	var cutoff time.Time
	if f.maxAge > 0 {
		cutoff = now.Add(-f.maxAge)
	}

	articles := make([]Article, 0, f.perFeed)
	for _, item := range parsed.Items {
		if len(articles) >= f.perFeed {
			break
		}

		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		if !cutoff.IsZero() && pub.Before(cutoff) {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		articles = append(articles, Article{
			Title:     item.Title,
			Link:      item.Link,
			Summary:   truncate(stripHTML(summary), maxSummaryLen),
			Published: pub,
			Source:    source,
			SourceURL: sourceURL,
			ImageURL:  extractImage(item),
		})
	}
	return articles, nil
}

// Check fetches and parses one feed for the health-check command.
func (f *Fetcher) Check(ctx context.Context, feedURL string) (title string, entries int, err error) {
	parsed, err := f.get(ctx, feedURL)
	if err != nil {
		return "", 0, err
	}
	title = parsed.Title
	if title == "" {
		title = domainOf(feedURL)
	}
	return title, len(parsed.Items), nil
}

func (f *Fetcher) get(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", feedURL, err)
	}
	f.creds.Apply(req, feedURL)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: HTTP %d", feedURL, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", feedURL, err)
	}
	return parsed, nil
}

// FetchResult collects the outcome of fetching all configured feeds.
type FetchResult struct {
	Articles []Article
	Errors   []error
}

// FetchAll fetches every feed concurrently. A failing feed is recorded in
// Errors and skipped; it never aborts the other feeds. Articles are
// deduplicated across feeds by link.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) FetchResult {
	var (
		mu     sync.Mutex
		result FetchResult
		wg     sync.WaitGroup
	)

	for _, u := range urls {
		wg.Add(1)
		go func(feedURL string) {
			defer wg.Done()
			articles, err := f.Fetch(ctx, feedURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err)
				return
			}
			result.Articles = append(result.Articles, articles...)
		}(u)
	}

	wg.Wait()

	for _, err := range result.Errors {
		log.WithError(err).Warn("skipping feed")
	}

	result.Articles = lo.UniqBy(result.Articles, func(a Article) string {
		return a.Link
	})
	return result
}

var imgTagRe = regexp.MustCompile(`<img[^>]+src=["']([^"'>]+)["']`)

// extractImage pulls an image URL from the common RSS shapes: media:content,
// media:thumbnail, image enclosures, then an inline <img> in the body.
func extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}

	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	if m := imgTagRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "Unknown Source"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
	)
	return strings.Join(strings.Fields(replacer.Replace(b.String())), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
