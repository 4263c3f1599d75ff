package feedhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vporoshin/feedHub/aggregator"
	"github.com/vporoshin/feedHub/model"
	"github.com/vporoshin/feedHub/rank"
	"github.com/vporoshin/feedHub/store"
)

const testRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Example News</title>
  <item><guid>g1</guid><title>One</title><link>https://e.com/1</link>
    <pubDate>Wed, 04 Jan 2023 10:00:00 +0000</pubDate>
    <description>This paragraph is comfortably long enough to be worth summarizing later on.</description></item>
  <item><guid>g2</guid><title>Two</title><link>https://e.com/2</link>
    <pubDate>Mon, 02 Jan 2023 10:00:00 +0000</pubDate></item>
</channel></rss>`

// The whole App is wired from ambient config, so the proxy is pointed at a
// local server before the config singleton first loads.
func TestAppEndToEnd(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "https://good.example/rss" {
			w.Write([]byte(testRSS))
			return
		}
		http.Error(w, "unknown feed", http.StatusNotFound)
	}))
	defer proxy.Close()

	os.Setenv("FH_PROXY_PREFIX", proxy.URL+"/?url=")
	os.Setenv("FH_STORAGE_PATH", ":memory:")
	os.Setenv("FH_SEED_DEFAULTS", "false")

	app, err := New(nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Load(ctx))

	// Nothing subscribed: empty list, no error, no spinner.
	require.Eventually(t, func() bool {
		r := app.Result()
		return !r.Loading && len(r.Articles) == 0 && r.Err == ""
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, aggregator.AllFeedsTitle, app.Result().Title)

	folder, err := app.AddFolder(ctx, "Tech")
	require.NoError(t, err)

	added, err := app.AddFeed(ctx, "https://good.example/rss", folder.ID)
	require.NoError(t, err)
	require.Equal(t, "Example News", added.Title)

	// The add triggered a recompute of the "all" view.
	require.Eventually(t, func() bool {
		return len(app.Result().Articles) == 2
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "g1", app.Result().Articles[0].ID, "newest first")

	_, err = app.AddFeed(ctx, "https://good.example/rss", "")
	require.ErrorIs(t, err, store.ErrDuplicateFeed)

	_, err = app.AddFeed(ctx, "https://down.example/rss", "")
	require.ErrorIs(t, err, store.ErrUnreachableFeed)
	require.Len(t, app.Feeds(), 1)

	app.Select(ctx, model.Selection{Type: model.SelectFolder, ID: folder.ID})
	require.Eventually(t, func() bool {
		r := app.Result()
		return r.Title == "Tech" && !r.Loading && len(r.Articles) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// No AI credential configured: ranking fails loudly, summarize never does.
	_, err = app.TopStories(ctx)
	require.ErrorIs(t, err, rank.ErrUnavailable)
	require.Contains(t, app.Summarize("<p>whatever</p>"), "not configured")

	app.RemoveFolder(ctx, folder.ID)
	require.Empty(t, app.Folders())
	require.Empty(t, app.Feeds()[0].FolderID)
}
