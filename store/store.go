// Package store owns the subscription tree: the user's folders and feeds.
// It enforces the uniqueness invariants, probes new feeds before accepting
// them and persists the tree as two JSON blobs in an embedded SQLite
// key/value table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vporoshin/feedHub/feed"
	"github.com/vporoshin/feedHub/model"
)

var (
	// ErrDuplicateFeed is returned when a feed with the same canonical URL
	// is already subscribed.
	ErrDuplicateFeed = errors.New("feed already exists")
	// ErrDuplicateFolder is returned on a case-sensitive folder-name clash.
	ErrDuplicateFolder = errors.New("folder already exists")
	// ErrUnreachableFeed is returned when the probe fetch for a new feed
	// fails; the feed is not added.
	ErrUnreachableFeed = errors.New("feed is unreachable")
)

const (
	keyFolders = "folders"
	keyFeeds   = "feeds"

	untitledFeed = "Untitled Feed"
)

// defaultFeeds seed an empty subscription set so a fresh install has
// something to show.
var defaultFeeds = []model.Feed{
	{ID: "https://www.theverge.com/rss/index.xml", URL: "https://www.theverge.com/rss/index.xml", Title: "The Verge"},
	{ID: "https://techcrunch.com/feed/", URL: "https://techcrunch.com/feed/", Title: "TechCrunch"},
}

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Prober resolves a feed's display title before the feed is accepted.
// *feed.Fetcher satisfies it.
type Prober interface {
	Fetch(ctx context.Context, url string) (feed.Content, error)
}

type Store struct {
	db           *sqlx.DB
	prober       Prober
	seedDefaults bool

	mu      sync.Mutex
	folders []model.Folder
	feeds   []model.Feed
}

// Open connects to the SQLite database at path (":memory:" works) and
// ensures the state table exists.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One pooled connection: sqlite serializes writers anyway, and a
	// :memory: database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: create schema: %w", err)
	}
	return db, nil
}

// New creates a Store over db. The prober is consulted once per AddFeed;
// seedDefaults controls whether an empty feed set is populated with the
// built-in subscriptions on Load.
func New(db *sqlx.DB, prober Prober, seedDefaults bool) *Store {
	return &Store{db: db, prober: prober, seedDefaults: seedDefaults}
}

// Load restores the subscription tree from storage. Corrupt blobs are
// logged and treated as empty rather than blocking startup; entries missing
// required fields are skipped.
func (s *Store) Load(ctx context.Context) error {
	folders, err := loadBlob[model.Folder](ctx, s.db, keyFolders)
	if err != nil {
		return err
	}
	feeds, err := loadBlob[model.Feed](ctx, s.db, keyFeeds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = filterFolders(folders)
	s.feeds = filterFeeds(feeds)
	if len(s.feeds) == 0 && s.seedDefaults {
		s.feeds = append([]model.Feed(nil), defaultFeeds...)
		s.persistLocked(ctx)
	}
	return nil
}

// loadBlob reads one JSON-array blob. A missing row is an empty set; an
// undecodable blob is logged and dropped.
func loadBlob[T any](ctx context.Context, db *sqlx.DB, key string) ([]T, error) {
	var raw string
	err := db.GetContext(ctx, &raw, `SELECT value FROM state WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var entries []T
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("[WARN] corrupt %s blob, starting from empty: %v", key, err)
		return nil, nil
	}
	return entries, nil
}

func filterFolders(folders []model.Folder) []model.Folder {
	var out []model.Folder
	for _, folder := range folders {
		if folder.ID == "" || folder.Name == "" {
			log.Printf("[WARN] skipping persisted folder with missing fields: %+v", folder)
			continue
		}
		out = append(out, folder)
	}
	return out
}

func filterFeeds(feeds []model.Feed) []model.Feed {
	var out []model.Feed
	for _, f := range feeds {
		if f.ID == "" || f.URL == "" {
			log.Printf("[WARN] skipping persisted feed with missing fields: %+v", f)
			continue
		}
		out = append(out, f)
	}
	return out
}

// Folders returns a snapshot copy of the folder list.
func (s *Store) Folders() []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Folder(nil), s.folders...)
}

// Feeds returns a snapshot copy of the feed list.
func (s *Store) Feeds() []model.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Feed(nil), s.feeds...)
}

// AddFeed subscribes to url, filing it under folderID (empty = unfiled).
// The feed's title comes from a probe fetch; if the probe fails the feed is
// not added. State is untouched on any failure.
func (s *Store) AddFeed(ctx context.Context, url, folderID string) (model.Feed, error) {
	id := canonicalID(url)
	if id == "" {
		return model.Feed{}, fmt.Errorf("%w: empty URL", ErrUnreachableFeed)
	}

	s.mu.Lock()
	if s.hasFeedLocked(id) {
		s.mu.Unlock()
		return model.Feed{}, fmt.Errorf("%w: %s", ErrDuplicateFeed, id)
	}
	s.mu.Unlock()

	// Probe outside the lock; network calls should not serialize reads.
	content, err := s.prober.Fetch(ctx, id)
	if err != nil {
		return model.Feed{}, fmt.Errorf("%w: %s: %v", ErrUnreachableFeed, id, err)
	}

	title := strings.TrimSpace(content.Title)
	if title == "" {
		title = untitledFeed
	}
	newFeed := model.Feed{ID: id, URL: id, Title: title, FolderID: folderID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasFeedLocked(id) {
		return model.Feed{}, fmt.Errorf("%w: %s", ErrDuplicateFeed, id)
	}
	s.feeds = append(s.feeds, newFeed)
	s.persistLocked(ctx)
	return newFeed, nil
}

// AddFolder creates a folder. Names clash on exact, case-sensitive match.
func (s *Store) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, folder := range s.folders {
		if folder.Name == name {
			return model.Folder{}, fmt.Errorf("%w: %q", ErrDuplicateFolder, name)
		}
	}

	newFolder := model.Folder{ID: uuid.NewString(), Name: name}
	s.folders = append(s.folders, newFolder)
	s.persistLocked(ctx)
	return newFolder, nil
}

// RemoveFolder deletes a folder, cascading its feeds to unfiled. Removing
// an unknown id is a no-op.
func (s *Store) RemoveFolder(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.folders[:0]
	removed := false
	for _, folder := range s.folders {
		if folder.ID == id {
			removed = true
			continue
		}
		kept = append(kept, folder)
	}
	if !removed {
		return
	}
	s.folders = kept

	for i := range s.feeds {
		if s.feeds[i].FolderID == id {
			s.feeds[i].FolderID = ""
		}
	}
	s.persistLocked(ctx)
}

func (s *Store) hasFeedLocked(id string) bool {
	for _, f := range s.feeds {
		if f.ID == id {
			return true
		}
	}
	return false
}

// canonicalID derives the feed id from its URL. The id is the trimmed URL
// itself, so id uniqueness is URL uniqueness.
func canonicalID(url string) string {
	return strings.TrimSpace(url)
}

// persistLocked writes both blobs. Persistence is best-effort: failures are
// logged and never surfaced to the mutating caller.
func (s *Store) persistLocked(ctx context.Context) {
	if err := saveBlob(ctx, s.db, keyFolders, s.folders); err != nil {
		log.Printf("[ERROR] failed to persist folders: %v", err)
	}
	if err := saveBlob(ctx, s.db, keyFeeds, s.feeds); err != nil {
		log.Printf("[ERROR] failed to persist feeds: %v", err)
	}
}

func saveBlob[T any](ctx context.Context, db *sqlx.DB, key string, entries []T) error {
	if entries == nil {
		entries = []T{}
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(blob))
	return err
}
