// Package rank asks a language model to pick the most significant stories
// out of the current article list. Unlike summary, every failure here is
// loud: callers always handle the error branch.
//
// The model only ever sees a bounded digest (50 most-recent articles,
// snippets cut to 300 characters) and is held to a strict JSON schema on
// the way back; anything it returns that does not match a known article id
// is discarded.
package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/samber/lo"

	"github.com/vporoshin/feedHub/feed"
	"github.com/vporoshin/feedHub/markup"
	"github.com/vporoshin/feedHub/model"
)

var (
	// ErrEmptyInput is returned before any outbound call when there is
	// nothing to rank.
	ErrEmptyInput = errors.New("no articles to rank")
	// ErrUnavailable means no API credential is configured. This is a
	// configuration condition, not a runtime fault.
	ErrUnavailable = errors.New("ranking is not configured")
	// ErrService wraps transport and decode failures from the ranking
	// capability. Calls are never retried.
	ErrService = errors.New("ranking service failed")
)

const (
	digestLimit  = 50
	snippetLimit = 300
	topCount     = 5
)

type digestEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// completer is the slice of the OpenAI client the ranker needs.
// *openai.Client satisfies it.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Service struct {
	client completer
	model  string
}

// New creates a ranking service against an OpenAI-compatible API. An empty
// apiKey yields a service whose Rank always returns ErrUnavailable.
func New(baseURL, apiKey, model string) *Service {
	if apiKey == "" {
		return &Service{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Service{client: openai.NewClientWithConfig(cfg), model: model}
}

// responseSchema constrains the model to an object wrapping an array of
// {id} entries. Top-level arrays are not allowed under strict schemas.
var responseSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"stories": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"id": {Type: jsonschema.String},
				},
				Required:             []string{"id"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"stories"},
	AdditionalProperties: false,
}

// Rank returns a reordered subset of articles: the ones the model picked,
// in the model's order, as full untruncated records.
func (s *Service) Rank(ctx context.Context, articles []model.Article) ([]model.Article, error) {
	if len(articles) == 0 {
		return nil, ErrEmptyInput
	}
	if s == nil || s.client == nil {
		return nil, ErrUnavailable
	}

	payload, err := json.Marshal(buildDigest(articles))
	if err != nil {
		return nil, fmt.Errorf("%w: encode digest: %v", ErrService, err)
	}

	prompt := fmt.Sprintf(
		"From the following JSON list of news articles, identify the %d most significant stories. "+
			"Respond with the ids of your picks, most significant first.\n\n%s",
		topCount, payload)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "top_stories",
				Schema: &responseSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrService)
	}

	var parsed struct {
		Stories []storyPick `json:"stories"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrService, err)
	}

	return reorder(articles, parsed.Stories), nil
}

// buildDigest reduces the input to its 50 most-recent entries with snippets
// stripped of markup and cut to 300 characters.
func buildDigest(articles []model.Article) []digestEntry {
	recent := append([]model.Article(nil), articles...)
	sort.SliceStable(recent, func(i, j int) bool {
		return feed.ParseTime(recent[i].PubDate).After(feed.ParseTime(recent[j].PubDate))
	})
	if len(recent) > digestLimit {
		recent = recent[:digestLimit]
	}

	return lo.Map(recent, func(a model.Article, _ int) digestEntry {
		return digestEntry{
			ID:      a.ID,
			Title:   a.Title,
			Snippet: markup.Truncate(markup.StripHTML(a.ContentSnippet), snippetLimit),
		}
	})
}

type storyPick struct {
	ID string `json:"id"`
}

// reorder maps returned ids back onto the caller's original records,
// keeping the model's order. Ids the model invented, and repeats, are
// dropped.
func reorder(articles []model.Article, picks []storyPick) []model.Article {
	byID := make(map[string]model.Article, len(articles))
	for _, a := range articles {
		if _, ok := byID[a.ID]; !ok {
			byID[a.ID] = a
		}
	}

	var out []model.Article
	seen := make(map[string]bool, len(picks))
	for _, pick := range picks {
		if seen[pick.ID] {
			continue
		}
		seen[pick.ID] = true
		if a, ok := byID[pick.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}
