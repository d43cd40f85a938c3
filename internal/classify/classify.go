// Package classify asks a language model whether fetched articles match the
// operator's topics and extracts a structured summary for the ones that do.
package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/matheuskafuri/newsbrief/internal/feed"
	"github.com/matheuskafuri/newsbrief/internal/group"
)

const (
	topicsPlaceholder   = "{topics}"
	articlesPlaceholder = "{articles}"
	snippetLen          = 500

	// After this many auth rejections the endpoint is considered down and
	// the run aborts rather than producing a quietly empty digest.
	maxAuthFailures = 3
)

// Result pairs a story group's lead article with the model's structured
// summary. Only relevant stories produce a Result.
type Result struct {
	Article feed.Article
	Links   []string
	Score   int
	Topic   string
	Event   string
	Impact  string
	Data    string
}

// SummaryText joins the narrative fields into one paragraph for rendering.
func (r Result) SummaryText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{r.Event, r.Impact, r.Data} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Classifier sends one prompt per story group through a bounded worker pool.
type Classifier struct {
	client       *Client
	systemPrompt string
	userTemplate string
	topics       string
	concurrency  int
}

// New loads the prompt files and builds a Classifier. The system prompt may
// carry a {topics} placeholder; the user template must carry {articles} and
// may carry {topics}. Missing or unreadable prompt files are configuration
// errors.
func New(client *Client, systemPromptPath, userPromptPath string, topics []string, concurrency int) (*Classifier, error) {
	systemRaw, err := os.ReadFile(systemPromptPath)
	if err != nil {
		return nil, fmt.Errorf("reading system prompt: %w", err)
	}
	userRaw, err := os.ReadFile(userPromptPath)
	if err != nil {
		return nil, fmt.Errorf("reading user prompt: %w", err)
	}
	userTemplate := strings.TrimSpace(string(userRaw))
	if !strings.Contains(userTemplate, articlesPlaceholder) {
		return nil, fmt.Errorf("user prompt %s is missing the %s placeholder", userPromptPath, articlesPlaceholder)
	}

	if concurrency <= 0 {
		concurrency = 2
	}

	topicsStr := strings.Join(topics, ", ")
	return &Classifier{
		client:       client,
		systemPrompt: strings.ReplaceAll(strings.TrimSpace(string(systemRaw)), topicsPlaceholder, topicsStr),
		userTemplate: userTemplate,
		topics:       topicsStr,
		concurrency:  concurrency,
	}, nil
}

// ClassifyAll classifies every story group. Per-story failures (network,
// malformed reply) are logged and treated as not relevant; repeated auth
// failures abort the run. Result order follows group order.
func (c *Classifier) ClassifyAll(ctx context.Context, groups []group.Group) ([]Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		authFails int32
	)
	results := make([]*Result, len(groups))
	sem := make(chan struct{}, c.concurrency)

	for i, g := range groups {
		wg.Add(1)
		go func(i int, g group.Group) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			res, err := c.classifyGroup(ctx, g)
			if err != nil {
				if errors.Is(err, ErrAuth) {
					if atomic.AddInt32(&authFails, 1) >= maxAuthFailures {
						cancel()
					}
					return
				}
				log.WithError(err).WithField("title", g.Lead().Title).Warn("skipping story: classification failed")
				return
			}
			if res != nil {
				mu.Lock()
				results[i] = res
				mu.Unlock()
			}
		}(i, g)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&authFails); n > 0 {
		// Any auth failure means the key is bad; one is enough to abort
		// once no story succeeded, and maxAuthFailures bounds the damage
		// when some already had.
		relevant := 0
		for _, r := range results {
			if r != nil {
				relevant++
			}
		}
		if n >= maxAuthFailures || relevant == 0 {
			return nil, fmt.Errorf("aborting run after %d auth failures: %w", n, ErrAuth)
		}
	}

	ordered := make([]Result, 0, len(groups))
	for _, r := range results {
		if r != nil {
			ordered = append(ordered, *r)
		}
	}
	return ordered, nil
}

// classifyGroup returns nil, nil when the model rejects the story or the
// reply cannot be parsed (logged as a warning).
func (c *Classifier) classifyGroup(ctx context.Context, g group.Group) (*Result, error) {
	user := strings.ReplaceAll(c.userTemplate, articlesPlaceholder, formatGroup(g))
	user = strings.ReplaceAll(user, topicsPlaceholder, c.topics)

	reply, err := c.client.Complete(ctx, c.systemPrompt, user)
	if err != nil {
		return nil, err
	}

	fields, relevant, err := ParseResponse(reply)
	if err != nil {
		log.WithError(err).WithField("title", g.Lead().Title).Warn("rejecting story: malformed classifier response")
		return nil, nil
	}
	if !relevant {
		return nil, nil
	}

	return &Result{
		Article: g.Lead(),
		Links:   g.Links(),
		Score:   fields.Score,
		Topic:   fields.Topic,
		Event:   fields.Event,
		Impact:  fields.Impact,
		Data:    fields.Data,
	}, nil
}

func formatGroup(g group.Group) string {
	blocks := make([]string, len(g))
	for i, a := range g {
		snippet := a.Summary
		if runes := []rune(snippet); len(runes) > snippetLen {
			snippet = string(runes[:snippetLen])
		}
		blocks[i] = fmt.Sprintf("Article title: %s\nArticle URL: %s\nContent/Snippet: %s", a.Title, a.Link, snippet)
	}
	return strings.Join(blocks, "\n\n")
}
