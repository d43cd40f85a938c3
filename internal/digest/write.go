package digest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths names the pair of files one run produced.
type Paths struct {
	Markdown string
	HTML     string
}

// WriteFiles writes the rendered digest pair under outputDir, keyed by the
// digest's generation timestamp so both files pair up. It also refreshes
// the digest_filename.txt / digest_html_filename.txt pointer files next to
// outputDir for scheduled jobs to pick up.
func WriteFiles(d *Digest, markdown, htmlContent, outputDir string) (Paths, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("creating output dir: %w", err)
	}

	ts := d.GeneratedAt.UTC().Format("2006-01-02-15-04")
	paths := Paths{
		Markdown: filepath.Join(outputDir, ts+".md"),
		HTML:     filepath.Join(outputDir, ts+".html"),
	}

	if err := os.WriteFile(paths.Markdown, []byte(markdown), 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing markdown digest: %w", err)
	}
	if err := os.WriteFile(paths.HTML, []byte(htmlContent), 0o644); err != nil {
		return Paths{}, fmt.Errorf("writing html digest: %w", err)
	}

	parent := filepath.Dir(outputDir)
	if err := os.WriteFile(filepath.Join(parent, "digest_filename.txt"), []byte(paths.Markdown), 0o644); err != nil {
		return paths, fmt.Errorf("writing digest pointer file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(parent, "digest_html_filename.txt"), []byte(paths.HTML), 0o644); err != nil {
		return paths, fmt.Errorf("writing digest pointer file: %w", err)
	}
	return paths, nil
}
