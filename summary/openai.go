package summary

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISummarizer calls any OpenAI-compatible chat-completion API. Set
// baseURL to a non-empty string to point at a local server (LM Studio,
// llama.cpp, Ollama's /v1 endpoint, etc.); leave empty for api.openai.com.
type OpenAISummarizer struct {
	client *openai.Client
	prompt string
	model  string
}

func NewOpenAISummarizer(baseURL, apiKey, prompt, model string) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(cfg),
		prompt: prompt,
		model:  model,
	}
}

func (o *OpenAISummarizer) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %q", o.model)
	}
	return resp.Choices[0].Message.Content, nil
}
