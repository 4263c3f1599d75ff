// Package feedhub is the aggregation core of a personal RSS reader. It
// wires the subscription store, the feed fetcher, the aggregation engine
// and the AI adapters into one App that a presentation layer drives with
// intents (select, add feed, add folder, top stories, summarize) and reads
// published state from.
//
// There is no process boundary here: feedhub is meant to be embedded.
package feedhub

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/vporoshin/feedHub/aggregator"
	"github.com/vporoshin/feedHub/config"
	"github.com/vporoshin/feedHub/feed"
	"github.com/vporoshin/feedHub/model"
	"github.com/vporoshin/feedHub/rank"
	"github.com/vporoshin/feedHub/store"
	"github.com/vporoshin/feedHub/summary"
)

type App struct {
	store      *store.Store
	engine     *aggregator.Engine
	summarizer *summary.Service
	ranker     *rank.Service

	mu        sync.Mutex
	selection model.Selection
}

// New assembles an App from the ambient config. notify, when non-nil, fires
// after every published-state change so a UI can re-render.
func New(notify func()) (*App, error) {
	cfg := config.Get()

	db, err := store.Open(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("feedhub: %w", err)
	}

	fetcher := feed.New(cfg.ProxyPrefix, cfg.FetchTimeout)

	var backend summary.Backend
	switch cfg.AIType {
	case "openai":
		if cfg.AIKey != "" {
			backend = summary.NewOpenAISummarizer(cfg.AIBaseURL, cfg.AIKey, summary.DefaultPrompt, cfg.AIModel)
			log.Printf("[INFO] using OpenAI-compatible summarizer (model: %s)", cfg.AIModel)
		}
	case "ollama":
		if cfg.AIBaseURL != "" {
			backend = summary.NewOllamaSummarizer(cfg.AIBaseURL, summary.DefaultPrompt, cfg.AIModel)
			log.Printf("[INFO] using Ollama summarizer (model: %s)", cfg.AIModel)
		}
	}

	return &App{
		store:      store.New(db, fetcher, cfg.SeedDefaults),
		engine:     aggregator.New(fetcher, notify),
		summarizer: summary.NewService(backend, cfg.AITimeout),
		ranker:     rank.New(cfg.AIBaseURL, cfg.AIKey, cfg.AIModel),
		selection:  model.SelectAllFeeds(),
	}, nil
}

// Load restores the subscription tree and kicks off the first aggregation
// round for the "all" selection.
func (a *App) Load(ctx context.Context) error {
	if err := a.store.Load(ctx); err != nil {
		return fmt.Errorf("feedhub: %w", err)
	}
	a.refresh(ctx)
	return nil
}

// Select changes the active view filter and recomputes the article list.
// A newer Select supersedes any round still in flight.
func (a *App) Select(ctx context.Context, sel model.Selection) {
	a.mu.Lock()
	a.selection = sel
	a.mu.Unlock()
	a.refresh(ctx)
}

// Selection returns the active view filter.
func (a *App) Selection() model.Selection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selection
}

// AddFeed subscribes to a feed and, on success, recomputes the current
// view. The store's probe fetch keeps unreachable feeds out.
func (a *App) AddFeed(ctx context.Context, url, folderID string) (model.Feed, error) {
	added, err := a.store.AddFeed(ctx, url, folderID)
	if err != nil {
		return model.Feed{}, err
	}
	a.refresh(ctx)
	return added, nil
}

// AddFolder creates a folder. The article list is unaffected until a feed
// is filed under it, so no refresh happens here.
func (a *App) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	return a.store.AddFolder(ctx, name)
}

// RemoveFolder deletes a folder, refiling its feeds as unfiled, and
// recomputes the current view.
func (a *App) RemoveFolder(ctx context.Context, id string) {
	a.store.RemoveFolder(ctx, id)
	a.refresh(ctx)
}

// Folders returns a snapshot of the folder list.
func (a *App) Folders() []model.Folder { return a.store.Folders() }

// Feeds returns a snapshot of the feed list.
func (a *App) Feeds() []model.Feed { return a.store.Feeds() }

// Result returns the published state of the latest aggregation round.
func (a *App) Result() aggregator.Result { return a.engine.Result() }

// TopStories ranks the currently published articles. All ranking failures
// surface to the caller.
func (a *App) TopStories(ctx context.Context) ([]model.Article, error) {
	return a.ranker.Rank(ctx, a.engine.Result().Articles)
}

// Summarize returns a one-paragraph summary of an article body, or a
// displayable message when summarization cannot happen. It never fails.
func (a *App) Summarize(articleBody string) string {
	return a.summarizer.Summarize(articleBody)
}

// refresh runs an aggregation round on its own goroutine. The round token
// is allocated here, synchronously in the intent path, so "latest round"
// follows intent order even when the scheduler starts the goroutines out
// of spawn order.
func (a *App) refresh(ctx context.Context) {
	a.mu.Lock()
	sel := a.selection
	a.mu.Unlock()

	round := a.engine.Begin()
	go a.engine.RefreshRound(ctx, round, sel, a.store.Feeds(), a.store.Folders())
}
