package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vporoshin/feedHub/model"
)

// parse sniffs the document's root element to pick the dialect. RSS 2.0 and
// RDF share the item shape; Atom has its own.
func parse(feedURL string, body []byte) (Content, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Content{}, fmt.Errorf("%w: %s: %v", ErrParse, feedURL, err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch se.Name.Local {
			case "rss", "RDF":
				return parseRSS(feedURL, body)
			case "feed":
				return parseAtom(feedURL, body)
			}
			return Content{}, fmt.Errorf("%w: %s: unsupported root element %q", ErrParse, feedURL, se.Name.Local)
		}
	}
	return Content{}, fmt.Errorf("%w: %s: empty document", ErrParse, feedURL)
}

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
	// RSS 1.0/RDF places items beside the channel, directly under the
	// root element.
	Items []rssItem `xml:"item"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Creator     string `xml:"creator"` // dc:creator
	Description string `xml:"description"`
	Content     string `xml:"encoded"` // content:encoded
}

func parseRSS(feedURL string, body []byte) (Content, error) {
	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Content{}, fmt.Errorf("%w: %s: %v", ErrParse, feedURL, err)
	}

	title := strings.TrimSpace(doc.Channel.Title)
	content := Content{Title: title}
	items := append(doc.Channel.Items, doc.Items...)
	for i, item := range items {
		content.Articles = append(content.Articles, normalizeRSS(feedURL, title, item, i))
	}
	return content, nil
}

// normalizeRSS maps one RSS 2.0 item onto an Article. Missing optional
// fields resolve to empty strings, never errors.
func normalizeRSS(feedURL, feedTitle string, item rssItem, index int) model.Article {
	link := strings.TrimSpace(item.Link)
	snippet := strings.TrimSpace(item.Description)
	return model.Article{
		ID:             synthesizeID(feedURL, strings.TrimSpace(item.GUID), link, index),
		Title:          strings.TrimSpace(item.Title),
		Link:           link,
		PubDate:        strings.TrimSpace(item.PubDate),
		Creator:        strings.TrimSpace(item.Creator),
		ContentSnippet: snippet,
		Content:        firstNonEmpty(strings.TrimSpace(item.Content), snippet),
		FeedTitle:      feedTitle,
	}
}

type atomDocument struct {
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Author    atomAuthor `xml:"author"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func parseAtom(feedURL string, body []byte) (Content, error) {
	var doc atomDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Content{}, fmt.Errorf("%w: %s: %v", ErrParse, feedURL, err)
	}

	title := strings.TrimSpace(doc.Title)
	content := Content{Title: title}
	for i, entry := range doc.Entries {
		content.Articles = append(content.Articles, normalizeAtom(feedURL, title, entry, i))
	}
	return content, nil
}

// normalizeAtom maps one Atom entry onto an Article. The entry id is Atom's
// guid equivalent; the alternate link's href is the article link.
func normalizeAtom(feedURL, feedTitle string, entry atomEntry, index int) model.Article {
	link := strings.TrimSpace(alternateLink(entry.Links))
	snippet := strings.TrimSpace(entry.Summary)
	return model.Article{
		ID:             synthesizeID(feedURL, strings.TrimSpace(entry.ID), link, index),
		Title:          strings.TrimSpace(entry.Title),
		Link:           link,
		PubDate:        firstNonEmpty(strings.TrimSpace(entry.Published), strings.TrimSpace(entry.Updated)),
		Creator:        strings.TrimSpace(entry.Author.Name),
		ContentSnippet: snippet,
		Content:        firstNonEmpty(strings.TrimSpace(entry.Content), snippet),
		FeedTitle:      feedTitle,
	}
}

func alternateLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "alternate" || link.Rel == "" {
			return link.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

// synthesizeID resolves the article id by priority: feed-supplied guid,
// then link, then a positional fallback. Uniqueness is only guaranteed
// within one fetch of one feed.
func synthesizeID(feedURL, guid, link string, index int) string {
	if guid != "" {
		return guid
	}
	if link != "" {
		return link
	}
	return fmt.Sprintf("%s-%d", feedURL, index)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02",
}

// ParseTime parses a feed-supplied date string against the layouts seen in
// the wild. Unparseable values collapse to the zero time, which sorts last
// in a descending ordering.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
