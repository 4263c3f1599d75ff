package summary

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
)

// OllamaSummarizer generates summaries through a local Ollama server.
// baseURL is host:port without a scheme.
type OllamaSummarizer struct {
	client *api.Client
	prompt string
	model  string
	mu     sync.Mutex
}

func NewOllamaSummarizer(baseURL, prompt, model string) *OllamaSummarizer {
	c := api.NewClient(&url.URL{
		Scheme: "http",
		Host:   baseURL,
		Path:   "/",
	}, &http.Client{})

	return &OllamaSummarizer{
		client: c,
		prompt: prompt,
		model:  model,
	}
}

func (o *OllamaSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	// One generation at a time; local models do not take kindly to
	// concurrent requests.
	o.mu.Lock()
	defer o.mu.Unlock()

	req := &api.GenerateRequest{
		Model:  o.model,
		System: o.prompt,
		Prompt: text,
	}

	var chunks []string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		chunks = append(chunks, resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.Join(chunks, ""), nil
}
