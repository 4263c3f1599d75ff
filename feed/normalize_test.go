package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Example News</title>
    <item>
      <guid>guid-1</guid>
      <title>First story</title>
      <link>https://example.com/one</link>
      <pubDate>Mon, 02 Jan 2023 15:04:05 +0000</pubDate>
      <dc:creator>Alice</dc:creator>
      <description>A short description</description>
      <content:encoded><![CDATA[<p>Full body</p>]]></content:encoded>
    </item>
    <item>
      <title>Second story</title>
      <link>https://example.com/two</link>
      <description>Only a snippet</description>
    </item>
    <item>
      <title>Bare story</title>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <id>atom-1</id>
    <title>Atom story</title>
    <link rel="alternate" href="https://example.org/a"/>
    <published>2023-01-05T10:00:00Z</published>
    <author><name>Bob</name></author>
    <summary>Atom summary</summary>
    <content type="html">Atom body</content>
  </entry>
  <entry>
    <title>Updated only</title>
    <link href="https://example.org/b"/>
    <updated>2023-01-06T10:00:00Z</updated>
  </entry>
</feed>`

func TestParseRSSFieldResolution(t *testing.T) {
	content, err := parse("https://example.com/feed", []byte(rssFixture))
	require.NoError(t, err)
	require.Equal(t, "Example News", content.Title)
	require.Len(t, content.Articles, 3)

	first := content.Articles[0]
	require.Equal(t, "guid-1", first.ID)
	require.Equal(t, "First story", first.Title)
	require.Equal(t, "https://example.com/one", first.Link)
	require.Equal(t, "Mon, 02 Jan 2023 15:04:05 +0000", first.PubDate)
	require.Equal(t, "Alice", first.Creator)
	require.Equal(t, "A short description", first.ContentSnippet)
	require.Equal(t, "<p>Full body</p>", first.Content)
	require.Equal(t, "Example News", first.FeedTitle)

	// No guid: id falls back to the link; no content:encoded: body falls
	// back to the snippet.
	second := content.Articles[1]
	require.Equal(t, "https://example.com/two", second.ID)
	require.Equal(t, "Only a snippet", second.ContentSnippet)
	require.Equal(t, "Only a snippet", second.Content)
	require.Empty(t, second.Creator)
	require.Empty(t, second.PubDate)

	// Neither guid nor link: positional id.
	third := content.Articles[2]
	require.Equal(t, "https://example.com/feed-2", third.ID)
	require.Empty(t, third.Link)
	require.Empty(t, third.Content)
}

func TestParseAtomFieldResolution(t *testing.T) {
	content, err := parse("https://example.org/feed", []byte(atomFixture))
	require.NoError(t, err)
	require.Equal(t, "Example Atom", content.Title)
	require.Len(t, content.Articles, 2)

	first := content.Articles[0]
	require.Equal(t, "atom-1", first.ID)
	require.Equal(t, "https://example.org/a", first.Link)
	require.Equal(t, "2023-01-05T10:00:00Z", first.PubDate)
	require.Equal(t, "Bob", first.Creator)
	require.Equal(t, "Atom summary", first.ContentSnippet)
	require.Equal(t, "Atom body", first.Content)

	// published missing: pubDate falls back to updated; id falls back to
	// the link href.
	second := content.Articles[1]
	require.Equal(t, "https://example.org/b", second.ID)
	require.Equal(t, "2023-01-06T10:00:00Z", second.PubDate)
	require.Empty(t, second.Creator)
}

const rdfFixture = `<?xml version="1.0"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://rdf.example/">
    <title>Example RDF</title>
  </channel>
  <item rdf:about="https://rdf.example/one">
    <title>RDF story</title>
    <link>https://rdf.example/one</link>
    <dc:creator>Carol</dc:creator>
    <description>An RSS 1.0 item</description>
  </item>
  <item rdf:about="https://rdf.example/two">
    <title>Another</title>
    <link>https://rdf.example/two</link>
  </item>
</rdf:RDF>`

// RSS 1.0 puts its items beside the channel, directly under the RDF root.
func TestParseRDFItemsBesideChannel(t *testing.T) {
	content, err := parse("https://rdf.example/feed", []byte(rdfFixture))
	require.NoError(t, err)
	require.Equal(t, "Example RDF", content.Title)
	require.Len(t, content.Articles, 2)

	first := content.Articles[0]
	require.Equal(t, "https://rdf.example/one", first.ID)
	require.Equal(t, "RDF story", first.Title)
	require.Equal(t, "Carol", first.Creator)
	require.Equal(t, "An RSS 1.0 item", first.ContentSnippet)
	require.Equal(t, "Example RDF", first.FeedTitle)
}

func TestParseRejectsUnknownDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "{} definitely not xml <"},
		{"unsupported root", "<html><body>nope</body></html>"},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse("https://example.com/feed", []byte(tc.body))
			require.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc1123z", "Mon, 02 Jan 2023 15:04:05 +0000", time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"rfc3339", "2023-01-05T10:00:00Z", time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)},
		{"date only", "2023-02-01", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage", "next tuesday", time.Time{}},
		{"empty", "", time.Time{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseTime(tc.value))
		})
	}
}
