// Package aggregator turns the active selection plus the subscription tree
// into a published article list. Every selection or subscription change
// triggers a full recompute: resolve the URL set, fetch every feed
// concurrently, merge whatever succeeded and sort by publish date. There is
// no incremental diffing; feed lists are tens of entries, not thousands.
package aggregator

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/vporoshin/feedHub/feed"
	"github.com/vporoshin/feedHub/model"
)

// AllFeedsTitle is the display title for the "all" selection.
const AllFeedsTitle = "All Personal Feeds"

// allFailedMessage is published only when a round recovers zero articles and
// at least one fetch failed. Partial failures are logged, not shown.
const allFailedMessage = "Failed to fetch all feeds for the current selection."

// Fetcher retrieves one feed. *feed.Fetcher satisfies it; tests substitute
// stubs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (feed.Content, error)
}

// Result is the published state of the latest aggregation round. Err is
// empty unless the round lost all content. It is recomputed wholesale,
// never patched.
type Result struct {
	Articles []model.Article
	Title    string
	Loading  bool
	Err      string
}

// Resolve maps a selection onto the feed URLs to aggregate and the display
// title. A selection referencing a missing folder or feed yields an empty
// URL set and an empty title, never an error.
func Resolve(sel model.Selection, feeds []model.Feed, folders []model.Folder) ([]string, string) {
	switch sel.Type {
	case model.SelectAll:
		urls := lo.Map(feeds, func(f model.Feed, _ int) string { return f.URL })
		return urls, AllFeedsTitle
	case model.SelectFeed:
		if f, ok := lo.Find(feeds, func(f model.Feed) bool { return f.ID == sel.ID }); ok {
			return []string{f.URL}, f.Title
		}
		return nil, ""
	case model.SelectFolder:
		folder, ok := lo.Find(folders, func(f model.Folder) bool { return f.ID == sel.ID })
		if !ok {
			return nil, ""
		}
		filed := lo.Filter(feeds, func(f model.Feed, _ int) bool { return f.FolderID == sel.ID })
		return lo.Map(filed, func(f model.Feed, _ int) string { return f.URL }), folder.Name
	}
	return nil, ""
}

// Engine runs aggregation rounds and publishes their results. Rounds are
// keyed by a monotonically increasing token; a round that is no longer the
// latest when it tries to commit is discarded, so a slow stale fetch can
// never clobber fresher data.
type Engine struct {
	fetcher Fetcher
	notify  func()

	mu     sync.Mutex
	round  uint64
	result Result
}

// New creates an Engine. notify, when non-nil, is invoked after every
// published state change (loading flips included).
func New(fetcher Fetcher, notify func()) *Engine {
	return &Engine{
		fetcher: fetcher,
		notify:  notify,
		result:  Result{Title: AllFeedsTitle},
	}
}

// Result returns a snapshot of the published state.
func (e *Engine) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.result
	snapshot.Articles = append([]model.Article(nil), e.result.Articles...)
	return snapshot
}

// Begin allocates the round token for a new aggregation request. Token
// order is what "latest requested round" means, so intents must call Begin
// synchronously, in intent order, before handing the round itself to any
// goroutine; goroutine start order carries no meaning.
func (e *Engine) Begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.round++
	return e.round
}

// Refresh runs one full aggregation round for sel against the given
// subscription tree, allocating its token on entry. It blocks until the
// round settles. Callers issuing requests from multiple goroutines use
// Begin plus RefreshRound so the token is bound to the request, not to
// whichever goroutine the scheduler happens to start first.
func (e *Engine) Refresh(ctx context.Context, sel model.Selection, feeds []model.Feed, folders []model.Folder) {
	e.RefreshRound(ctx, e.Begin(), sel, feeds, folders)
}

// RefreshRound runs the aggregation round identified by a token from
// Begin. A round whose token is no longer the latest by the time it
// commits is discarded.
func (e *Engine) RefreshRound(ctx context.Context, round uint64, sel model.Selection, feeds []model.Feed, folders []model.Folder) {
	urls, title := Resolve(sel, feeds, folders)
	if len(urls) == 0 {
		// Nothing to fetch is not a failure: empty list, no error, no spinner.
		e.commit(round, Result{Title: title})
		return
	}

	e.commit(round, Result{Title: title, Loading: true})

	merged, failures := e.fanOut(ctx, urls)

	sort.SliceStable(merged, func(i, j int) bool {
		return feed.ParseTime(merged[i].PubDate).After(feed.ParseTime(merged[j].PubDate))
	})

	final := Result{Articles: merged, Title: title}
	if failures > 0 && len(merged) == 0 {
		final.Err = allFailedMessage
	}
	e.commit(round, final)
}

// fanOut fetches every URL concurrently and waits for all of them to settle.
// The merge walks results in URL order, so article order never depends on
// completion order.
func (e *Engine) fanOut(ctx context.Context, urls []string) ([]model.Article, int) {
	type outcome struct {
		content feed.Content
		err     error
	}

	results := make([]outcome, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			content, err := e.fetcher.Fetch(ctx, url)
			results[i] = outcome{content: content, err: err}
		}(i, url)
	}
	wg.Wait()

	var merged []model.Article
	failures := 0
	for i, res := range results {
		if res.err != nil {
			log.Printf("[WARN] failed to fetch feed %s: %v", urls[i], res.err)
			failures++
			continue
		}
		merged = append(merged, res.content.Articles...)
	}
	return merged, failures
}

// commit publishes r if round is still the latest. The previous title is
// kept when the round resolved no title (dangling folder or feed id).
func (e *Engine) commit(round uint64, r Result) {
	e.mu.Lock()
	if round != e.round {
		e.mu.Unlock()
		return
	}
	if r.Title == "" {
		r.Title = e.result.Title
	}
	e.result = r
	notify := e.notify
	e.mu.Unlock()

	if notify != nil {
		notify()
	}
}
