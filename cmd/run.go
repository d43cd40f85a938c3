package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsbrief/internal/classify"
	"github.com/matheuskafuri/newsbrief/internal/config"
	"github.com/matheuskafuri/newsbrief/internal/digest"
	"github.com/matheuskafuri/newsbrief/internal/email"
	"github.com/matheuskafuri/newsbrief/internal/feed"
	"github.com/matheuskafuri/newsbrief/internal/group"
	"github.com/matheuskafuri/newsbrief/internal/store"
)

// runPipeline is one scheduled run: fetch -> classify -> render -> deliver.
// The exit status reflects whether digest files were produced; email
// delivery failures are logged but do not fail the run.
func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rlog := log.WithField("run", uuid.NewString()[:8])
	started := time.Now()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Credential problems must surface before any fetch happens.
	creds, err := feed.LoadCredentials(cfg.Paths.Credentials)
	if err != nil {
		return err
	}

	urls, err := feed.LoadList(cfg.Paths.Feeds)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("feed list %s contains no feeds", cfg.Paths.Feeds)
	}

	llmKey := cfg.LLMKey()
	if llmKey == "" {
		return fmt.Errorf("no LLM API key: set llm.api_key or NEWSBRIEF_LLM_KEY")
	}

	// The template is read up front so a bad path fails before spending
	// money on completion calls.
	template, err := os.ReadFile(cfg.Paths.Template)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	client := classify.NewClient(cfg.LLM.BaseURL, llmKey, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLMTimeout())
	classifier, err := classify.New(client, cfg.Paths.SystemPrompt, cfg.Paths.UserPrompt, cfg.Topics, cfg.LLM.Concurrency)
	if err != nil {
		return err
	}

	rlog.WithField("feeds", len(urls)).Info("fetching feeds")
	fetcher := feed.NewFetcher(creds, cfg.Limits.ArticlesPerFeed, cfg.MaxAgeDuration())
	fetched := fetcher.FetchAll(ctx, urls)
	articles := fetched.Articles
	rlog.WithFields(log.Fields{
		"articles":     len(articles),
		"failed_feeds": len(fetched.Errors),
	}).Info("fetch complete")

	var seen *store.Store
	if cfg.Store.Enabled {
		seen, err = store.Open(cfg.StorePath())
		if err != nil {
			return err
		}
		defer seen.Close()

		articles, err = seen.FilterNew(articles)
		if err != nil {
			return fmt.Errorf("filtering seen articles: %w", err)
		}
		rlog.WithField("new_articles", len(articles)).Info("seen-store filter applied")
	}

	if len(articles) == 0 {
		rlog.Warn("no articles to classify; the digest will be empty")
	}

	groups := group.Build(articles)
	rlog.WithField("stories", len(groups)).Info("classifying stories")

	results, err := classifier.ClassifyAll(ctx, groups)
	if err != nil {
		return err
	}
	if len(results) == 0 && len(articles) > 0 {
		rlog.Warn("classifier marked every story irrelevant; the digest will be empty")
	}

	d := digest.Build(results, time.Now(), cfg.Limits.DigestCount)
	markdown := digest.RenderMarkdown(d)
	htmlOut := digest.RenderHTML(d, string(template))

	paths, err := digest.WriteFiles(d, markdown, htmlOut, cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	rlog.WithFields(log.Fields{
		"markdown": paths.Markdown,
		"html":     paths.HTML,
	}).Info("digest written")

	if seen != nil {
		if err := seen.MarkSeen(fetched.Articles, time.Now()); err != nil {
			rlog.WithError(err).Warn("failed to record seen articles")
		}
	}

	delivered := false
	if cfg.Email.Enabled && !flagDryRun {
		sender := email.NewSender(cfg.Email.APIURL, cfg.EmailKey())
		subject := cfg.Email.Subject
		if subject == "" {
			subject = "Your Daily Digest"
		}
		msg := email.Message{
			From:    cfg.Email.From,
			To:      cfg.Email.To,
			Subject: subject,
			HTML:    htmlOut,
			Text:    markdown,
		}
		if err := sender.Send(ctx, msg); err != nil {
			// The digest files already exist; delivery is independent.
			rlog.WithError(err).Error("email delivery failed")
		} else {
			delivered = true
			rlog.WithField("recipients", len(cfg.Email.To)).Info("digest delivered")
		}
	}

	rlog.WithFields(log.Fields{
		"scanned":   len(fetched.Articles),
		"stories":   len(groups),
		"relevant":  len(results),
		"delivered": delivered,
		"took":      time.Since(started).Round(time.Millisecond).String(),
	}).Info("run complete")
	return nil
}
