// Package feed retrieves and parses RSS 2.0 and Atom feeds into normalized
// model.Article records. Feeds are fetched through a configurable proxy
// prefix so the library can run behind a CORS relay; an empty prefix fetches
// the URL directly.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vporoshin/feedHub/model"
)

var (
	// ErrFetch covers transport failures and non-2xx responses.
	ErrFetch = errors.New("feed fetch failed")
	// ErrParse covers responses that are not a decodable RSS or Atom document.
	ErrParse = errors.New("feed parse failed")
)

// Content is the result of fetching one feed: its display title and the
// normalized articles in document order.
type Content struct {
	Title    string
	Articles []model.Article
}

// Fetcher retrieves feeds over HTTP. The zero value is not usable; use New.
type Fetcher struct {
	client      *http.Client
	proxyPrefix string
}

// New creates a Fetcher. proxyPrefix, when non-empty, is prepended to the
// query-escaped feed URL (corsproxy.io style); pass "" to fetch directly.
func New(proxyPrefix string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		proxyPrefix: proxyPrefix,
	}
}

// Fetch performs exactly one outbound request for feedURL and parses the
// response body. It never retries; failures are surfaced as ErrFetch or
// ErrParse wraps.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.requestURL(feedURL), nil)
	if err != nil {
		return Content{}, fmt.Errorf("%w: build request for %s: %v", ErrFetch, feedURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s: %v", ErrFetch, feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return Content{}, fmt.Errorf("%w: %s: http %d", ErrFetch, feedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Content{}, fmt.Errorf("%w: %s: read body: %v", ErrFetch, feedURL, err)
	}

	return parse(feedURL, body)
}

func (f *Fetcher) requestURL(feedURL string) string {
	if f.proxyPrefix == "" {
		return feedURL
	}
	return f.proxyPrefix + url.QueryEscape(feedURL)
}
