// Package store persists which article links previous runs have already
// digested, so a scheduled pipeline does not re-summarize the same story
// every morning.
package store

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matheuskafuri/newsbrief/internal/feed"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the seen-article database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS seen (
			id         TEXT PRIMARY KEY,
			link       TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			first_seen DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_seen_first_seen ON seen(first_seen);
	`)
	if err != nil {
		return fmt.Errorf("initializing store schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func linkID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

// FilterNew returns the articles whose links no previous run has recorded.
func (s *Store) FilterNew(articles []feed.Article) ([]feed.Article, error) {
	stmt, err := s.db.Prepare("SELECT 1 FROM seen WHERE id = ?")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	fresh := make([]feed.Article, 0, len(articles))
	for _, a := range articles {
		var one int
		err := stmt.QueryRow(linkID(a.Link)).Scan(&one)
		switch err {
		case sql.ErrNoRows:
			fresh = append(fresh, a)
		case nil:
			// already seen
		default:
			return nil, fmt.Errorf("checking seen link %s: %w", a.Link, err)
		}
	}
	return fresh, nil
}

// MarkSeen records the given articles as digested by this run.
func (s *Store) MarkSeen(articles []feed.Article, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO seen (id, link, title, first_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		if _, err := stmt.Exec(linkID(a.Link), a.Link, a.Title, now); err != nil {
			return fmt.Errorf("marking %s seen: %w", a.Link, err)
		}
	}
	return tx.Commit()
}

// Prune removes seen records older than the retention period and returns
// how many were deleted.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.Exec("DELETE FROM seen WHERE first_seen < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats reports the record count and on-disk size of the store.
func (s *Store) Stats(dbPath string) (count int64, size int64, err error) {
	if err := s.db.QueryRow("SELECT COUNT(*) FROM seen").Scan(&count); err != nil {
		return 0, 0, err
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, err
	}
	return count, info.Size(), nil
}
