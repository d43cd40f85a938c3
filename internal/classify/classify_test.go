package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheuskafuri/newsbrief/internal/feed"
	"github.com/matheuskafuri/newsbrief/internal/group"
)

func completionReply(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func writePrompts(t *testing.T) (system, user string) {
	t.Helper()
	dir := t.TempDir()
	system = filepath.Join(dir, "system.txt")
	user = filepath.Join(dir, "user.txt")
	if err := os.WriteFile(system, []byte("You judge relevance against: {topics}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(user, []byte("Topics: {topics}\n\n{articles}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return system, user
}

func testGroups(titles ...string) []group.Group {
	groups := make([]group.Group, len(titles))
	for i, title := range titles {
		groups[i] = group.Group{feed.Article{Title: title, Link: fmt.Sprintf("https://a/%d", i), Summary: "snippet"}}
	}
	return groups
}

func TestClassifyAllRelevantAndIrrelevant(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			fmt.Fprint(w, completionReply("SCORE: 7\nTOPIC: AI\nEVENT: e\nIMPACT: i\nDATA: d"))
		} else {
			fmt.Fprint(w, completionReply("IRRELEVANT"))
		}
	}))
	defer srv.Close()

	system, user := writePrompts(t)
	client := NewClient(srv.URL, "key", "test-model", 100, 5*time.Second)
	c, err := New(client, system, user, []string{"AI"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := c.ClassifyAll(context.Background(), testGroups("First", "Second"))
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 relevant result, got %d", len(results))
	}
	if results[0].Topic != "AI" || results[0].Score != 7 {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if results[0].Article.Title != "First" {
		t.Errorf("result should reference the classified article, got %q", results[0].Article.Title)
	}
}

func TestClassifyAllMissingFieldRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// IMPACT is missing; the story must be rejected, not crash the run.
		fmt.Fprint(w, completionReply("TOPIC: AI\nEVENT: e\nDATA: d"))
	}))
	defer srv.Close()

	system, user := writePrompts(t)
	client := NewClient(srv.URL, "key", "test-model", 100, 5*time.Second)
	c, err := New(client, system, user, []string{"AI"}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := c.ClassifyAll(context.Background(), testGroups("Only"))
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for malformed reply, got %d", len(results))
	}
}

func TestClassifyAllAbortsOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	system, user := writePrompts(t)
	client := NewClient(srv.URL, "bad-key", "test-model", 100, 5*time.Second)
	c, err := New(client, system, user, []string{"AI"}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.ClassifyAll(context.Background(), testGroups("A", "B", "C", "D"))
	if err == nil {
		t.Fatal("expected run-aborting error for repeated auth failures")
	}
	if !errors.Is(err, ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionReply("IRRELEVANT"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", 100, 5*time.Second)
	text, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "IRRELEVANT" {
		t.Errorf("unexpected reply: %q", text)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls (one retry), got %d", calls)
	}
}

func TestCompleteSendsPrompts(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, completionReply("IRRELEVANT"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", 128, 5*time.Second)
	if _, err := client.Complete(context.Background(), "sys prompt", "user prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Model != "test-model" || got.MaxTokens != 128 {
		t.Errorf("unexpected request envelope: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user prompt" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}

func TestNewRequiresArticlesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	system := filepath.Join(dir, "system.txt")
	user := filepath.Join(dir, "user.txt")
	os.WriteFile(system, []byte("sys"), 0o644)
	os.WriteFile(user, []byte("no placeholder here"), 0o644)

	if _, err := New(nil, system, user, []string{"AI"}, 1); err == nil {
		t.Error("expected error for user prompt without {articles}")
	}
}
