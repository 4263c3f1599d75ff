// Package summary turns an article body into a one-paragraph summary via a
// language model. The Service wrapper never returns an error: every failure
// path resolves to a displayable string, so callers render the result
// unconditionally. Backends (OpenAI-compatible or Ollama) carry the actual
// model call; the Service owns the timeout.
package summary

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vporoshin/feedHub/markup"
)

// DefaultPrompt is the system prompt handed to a backend when the caller
// has not configured one.
const DefaultPrompt = "You summarize news articles. Reply with exactly one concise prose paragraph " +
	"covering the key information and main takeaways. No headings, no bullet points."

const (
	minContentLength = 50
	maxContentLength = 15000
	defaultTimeout   = 2 * time.Minute

	tooShortMessage      = "Article content is too short to summarize."
	notConfiguredMessage = "Summarization is not configured. Set an AI key or base URL in the config."
)

// Backend performs the model call. Both OpenAISummarizer and
// OllamaSummarizer satisfy it.
type Backend interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Service struct {
	backend Backend
	timeout time.Duration
}

// NewService wraps a backend; backend may be nil when no AI capability is
// configured, in which case Summarize resolves to a fixed message.
func NewService(backend Backend, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{backend: backend, timeout: timeout}
}

// Summarize reduces an HTML article body to one prose paragraph. It never
// fails: too-short content, a missing backend and backend errors all come
// back as displayable text.
func (s *Service) Summarize(articleBody string) string {
	if s == nil || s.backend == nil {
		return notConfiguredMessage
	}

	clean := strings.TrimSpace(markup.StripHTML(articleBody))
	if utf8.RuneCountInString(clean) < minContentLength {
		return tooShortMessage
	}

	prompt := "Please provide a concise, one-paragraph summary of the following news article. " +
		"Focus on the key information and main takeaways. Here is the article content:\n\n---\n\n" +
		markup.Truncate(clean, maxContentLength)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.backend.Summarize(ctx, prompt)
	if err != nil {
		return "Could not summarize this article: " + err.Error()
	}
	return strings.TrimSpace(out)
}
