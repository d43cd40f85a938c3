// Package digest assembles classified stories into the rendered daily
// output: a Markdown file and an HTML file sharing one run timestamp.
package digest

import (
	"sort"
	"time"

	"github.com/matheuskafuri/newsbrief/internal/classify"
)

// MaxBody caps the number of stories in the digest body, hero excluded.
const MaxBody = 9

// Digest is built once per run and never mutated afterwards.
type Digest struct {
	GeneratedAt time.Time
	Hero        *classify.Result
	Rest        []classify.Result
}

// Build orders results by classifier score (descending, stable so fetch
// order breaks ties) and picks the hero and body.
//
// Hero tie-break rule: the first story in score order that has an image
// becomes the hero; if none has an image, the top-scored story does. This
// keeps the featured slot visual whenever possible while staying
// deterministic.
func Build(results []classify.Result, generatedAt time.Time, bodySize int) *Digest {
	if bodySize <= 0 || bodySize > MaxBody {
		bodySize = MaxBody
	}

	d := &Digest{GeneratedAt: generatedAt}
	if len(results) == 0 {
		return d
	}

	ordered := make([]classify.Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	heroIdx := 0
	for i, r := range ordered {
		if r.Article.ImageURL != "" {
			heroIdx = i
			break
		}
	}

	hero := ordered[heroIdx]
	d.Hero = &hero

	for i, r := range ordered {
		if i == heroIdx {
			continue
		}
		d.Rest = append(d.Rest, r)
		if len(d.Rest) == bodySize {
			break
		}
	}
	return d
}
