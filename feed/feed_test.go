package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchThroughProxy(t *testing.T) {
	const feedURL = "https://example.com/rss?page=1"

	var gotQuery string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(rssFixture))
	}))
	defer proxy.Close()

	fetcher := New(proxy.URL+"/?url=", 5*time.Second)
	content, err := fetcher.Fetch(context.Background(), feedURL)
	require.NoError(t, err)
	require.Equal(t, "Example News", content.Title)
	require.Len(t, content.Articles, 3)
	require.Equal(t, "url="+url.QueryEscape(feedURL), gotQuery)
}

func TestFetchDirectWhenNoProxy(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(atomFixture))
	}))
	defer server.Close()

	fetcher := New("", 5*time.Second)
	content, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "Example Atom", content.Title)
	require.Equal(t, 1, calls)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
			wantErr: ErrFetch,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<rss><channel><title>broken"))
			},
			wantErr: ErrParse,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			fetcher := New("", 5*time.Second)
			_, err := fetcher.Fetch(context.Background(), server.URL)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // fetch against a dead server

	fetcher := New("", time.Second)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrFetch)
}
