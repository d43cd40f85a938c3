package digest

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/matheuskafuri/newsbrief/internal/classify"
)

// RenderMarkdown produces the plain-text digest. Markdown output is not
// escaped; it is a flat file for humans and the email text fallback.
func RenderMarkdown(d *Digest) string {
	var b strings.Builder
	b.WriteString("# Your Daily Digest\n\n")
	b.WriteString("_" + d.GeneratedAt.UTC().Format("Monday, January 2, 2006") + "_\n\n")

	if d.Hero == nil {
		b.WriteString("No relevant stories today.\n")
		return b.String()
	}

	b.WriteString("## Top Story\n\n")
	writeMarkdownStory(&b, *d.Hero)

	if len(d.Rest) > 0 {
		b.WriteString("## More Stories\n\n")
		for _, r := range d.Rest {
			writeMarkdownStory(&b, r)
		}
	}
	return b.String()
}

func writeMarkdownStory(b *strings.Builder, r classify.Result) {
	fmt.Fprintf(b, "### %s\n\n", r.Article.Title)
	fmt.Fprintf(b, "*%s*", r.Article.Source)
	if !r.Article.Published.IsZero() {
		fmt.Fprintf(b, " • %s", r.Article.Published.UTC().Format("Jan 02, 15:04"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(b, "- **TOPIC**: %s\n", r.Topic)
	fmt.Fprintf(b, "- **EVENT**: %s\n", r.Event)
	fmt.Fprintf(b, "- **IMPACT**: %s\n", r.Impact)
	fmt.Fprintf(b, "- **DATA**: %s\n", r.Data)
	b.WriteString("\n")
	fmt.Fprintf(b, "%s\n\n", r.Article.Link)
}

// Template placeholders the HTML renderer substitutes. Article-derived text
// is HTML-escaped; optional values render as empty strings, never errors.
const (
	phDate        = "{{DATE}}"
	phHeroTitle   = "{{HERO_TITLE}}"
	phHeroSource  = "{{HERO_SOURCE}}"
	phHeroTime    = "{{HERO_TIME}}"
	phHeroImage   = "{{HERO_IMAGE}}"
	phHeroSummary = "{{HERO_SUMMARY}}"
	phHeroURL     = "{{HERO_URL}}"
	phArticles    = "{{ARTICLES}}"
)

// RenderHTML fills the email template. Every placeholder is substituted;
// a populated digest leaves no literal {{...}} in the output.
func RenderHTML(d *Digest, template string) string {
	out := template
	out = strings.ReplaceAll(out, phDate, d.GeneratedAt.UTC().Format("Monday, January 2, 2006"))

	if d.Hero == nil {
		out = strings.ReplaceAll(out, phHeroTitle, "No news today")
		out = strings.ReplaceAll(out, phHeroSource, "")
		out = strings.ReplaceAll(out, phHeroTime, "")
		out = strings.ReplaceAll(out, phHeroImage, "")
		out = strings.ReplaceAll(out, phHeroSummary, "")
		out = strings.ReplaceAll(out, phHeroURL, "#")
		out = strings.ReplaceAll(out, phArticles, "")
		return out
	}

	hero := *d.Hero
	out = strings.ReplaceAll(out, phHeroTitle, html.EscapeString(hero.Article.Title))
	out = strings.ReplaceAll(out, phHeroSource, sourceHTML(hero))
	out = strings.ReplaceAll(out, phHeroTime, formatTime(hero.Article.Published))
	out = strings.ReplaceAll(out, phHeroImage, imageHTML(hero))
	out = strings.ReplaceAll(out, phHeroSummary, html.EscapeString(hero.SummaryText()))
	out = strings.ReplaceAll(out, phHeroURL, html.EscapeString(hero.Article.Link))

	var articles strings.Builder
	for _, r := range d.Rest {
		articles.WriteString(articleHTML(r))
	}
	out = strings.ReplaceAll(out, phArticles, articles.String())
	return out
}

func articleHTML(r classify.Result) string {
	var b strings.Builder
	b.WriteString(`<div class="article">`)
	if img := imageHTML(r); img != "" {
		b.WriteString(img)
	}
	fmt.Fprintf(&b, `<h4><a href="%s">%s</a></h4>`,
		html.EscapeString(r.Article.Link), html.EscapeString(r.Article.Title))
	meta := sourceHTML(r)
	if ts := formatTime(r.Article.Published); ts != "" {
		meta += " • " + ts
	}
	fmt.Fprintf(&b, `<p class="meta">%s <span class="topic">%s</span></p>`,
		meta, html.EscapeString(r.Topic))
	fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(r.SummaryText()))
	b.WriteString(`</div>`)
	return b.String()
}

func sourceHTML(r classify.Result) string {
	sourceURL := r.Article.SourceURL
	if sourceURL == "" {
		sourceURL = r.Article.Link
	}
	return fmt.Sprintf(`<a href="%s" style="color: #666; text-decoration: none;">%s</a>`,
		html.EscapeString(sourceURL), html.EscapeString(r.Article.Source))
}

func imageHTML(r classify.Result) string {
	if r.Article.ImageURL == "" {
		return ""
	}
	return fmt.Sprintf(`<img src="%s" alt="%s">`,
		html.EscapeString(r.Article.ImageURL), html.EscapeString(r.Article.Title))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 02, 15:04")
}
