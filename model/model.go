// Package model defines the data structures shared across feedHub: Folder and
// Feed make up the user's subscription tree, Article is one normalized feed
// entry, and Selection is the active view filter driving aggregation.
package model

// Folder groups feeds under a user-chosen name. Folders are flat; there is no
// nesting. ID is assigned at creation time and never changes.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Feed is a single subscription. ID equals the canonical feed URL, so ID
// uniqueness and URL uniqueness are the same invariant. An empty FolderID
// means the feed is unfiled.
type Feed struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	FolderID string `json:"folderId"`
}

// Article is one normalized feed entry. PubDate carries the feed-supplied
// date string verbatim; parsing happens at sort time. ID is only unique
// within a single fetch of a single feed.
type Article struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Link           string `json:"link"`
	PubDate        string `json:"pubDate"`
	Creator        string `json:"creator"`
	ContentSnippet string `json:"contentSnippet"`
	Content        string `json:"content"`
	FeedTitle      string `json:"feedTitle"`
}

// SelectionType enumerates what the user is currently looking at.
type SelectionType string

const (
	SelectAll    SelectionType = "all"
	SelectFolder SelectionType = "folder"
	SelectFeed   SelectionType = "feed"
)

// Selection is the active view filter. ID is empty when Type is SelectAll
// and holds the folder or feed id otherwise. A Selection referencing an id
// that no longer exists resolves to an empty result set, not an error.
type Selection struct {
	Type SelectionType
	ID   string
}

// SelectAllFeeds is the selection covering every subscribed feed.
func SelectAllFeeds() Selection {
	return Selection{Type: SelectAll}
}
