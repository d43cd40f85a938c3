package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.txt")
	content := `# tech feeds
https://a/rss

https://b/atom
   # indented comment
https://c/rss
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	urls, err := LoadList(path)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	want := []string{"https://a/rss", "https://b/atom", "https://c/rss"}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(urls), len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestLoadListMissing(t *testing.T) {
	if _, err := LoadList(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing feed list")
	}
}
