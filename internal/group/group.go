// Package group clusters near-duplicate stories so the classifier sees one
// prompt per story instead of one per syndicated copy.
package group

import (
	"strings"
	"unicode"

	"github.com/matheuskafuri/newsbrief/internal/feed"
)

const (
	similarityThreshold = 0.6
	minSharedWords      = 3
)

// Group is a set of articles judged to cover the same story. The first
// article is the representative: its title, link, image and source carry
// into the digest.
type Group []feed.Article

// Lead returns the representative article of the group.
func (g Group) Lead() feed.Article {
	return g[0]
}

// Links returns every article link in the group, lead first.
func (g Group) Links() []string {
	links := make([]string, len(g))
	for i, a := range g {
		links[i] = a.Link
	}
	return links
}

// Build greedily clusters articles by title similarity, preserving input
// order of the group leads.
func Build(articles []feed.Article) []Group {
	var groups []Group
	used := make([]bool, len(articles))

	for i, a := range articles {
		if used[i] {
			continue
		}
		g := Group{a}
		used[i] = true
		for j := i + 1; j < len(articles); j++ {
			if used[j] {
				continue
			}
			if Similar(a.Title, articles[j].Title) {
				g = append(g, articles[j])
				used[j] = true
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// Similar reports whether two titles likely describe the same story:
// word-set Jaccard similarity above 0.6 with at least 3 shared words.
func Similar(title1, title2 string) bool {
	w1 := titleWords(title1)
	w2 := titleWords(title2)
	if len(w1) == 0 || len(w2) == 0 {
		return false
	}

	intersection := 0
	for w := range w1 {
		if w2[w] {
			intersection++
		}
	}
	union := len(w1) + len(w2) - intersection
	if union == 0 {
		return false
	}

	similarity := float64(intersection) / float64(union)
	return similarity > similarityThreshold && intersection >= minSharedWords
}

func titleWords(title string) map[string]bool {
	words := map[string]bool{}
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	for _, w := range strings.Fields(b.String()) {
		words[w] = true
	}
	return words
}
