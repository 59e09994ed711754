// Package summary produces short LLM summaries of library items and keeps
// them as tagged child notes.
package summary

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/db"
	"github.com/chris/researchhub/internal/llm"
	"github.com/chris/researchhub/internal/observe"
)

const (
	// Tag marks the child note that holds an item's summary.
	Tag = "ResearchHub Summary"

	NoInput     = "No title or abstract available for summarization."
	Unavailable = "Unable to generate summary."
	NoItems     = "No items to synthesize."

	// DefaultSynthesisBudget caps the estimated tokens of paper text sent
	// in one synthesis request.
	DefaultSynthesisBudget = 6000

	probeTimeout = 3 * time.Second
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// NoteStore keeps tagged child notes. *db.DB satisfies it.
type NoteStore interface {
	GetNote(ctx context.Context, parentID int64, tag string) (string, error)
	SetNote(ctx context.Context, parentID int64, tag, body string) error
}

type Summarizer struct {
	client   llm.Client
	notes    NoteStore
	settings llm.SettingsFunc
	http     *http.Client
	logger   *zap.Logger
	budget   int
}

type Option func(*Summarizer)

func WithLogger(l *zap.Logger) Option { return func(s *Summarizer) { s.logger = l } }
func WithHTTPClient(c *http.Client) Option { return func(s *Summarizer) { s.http = c } }
func WithSynthesisBudget(tokens int) Option { return func(s *Summarizer) { s.budget = tokens } }

func New(client llm.Client, notes NoteStore, settings llm.SettingsFunc, opts ...Option) *Summarizer {
	s := &Summarizer{
		client:   client,
		notes:    notes,
		settings: settings,
		http:     observe.HTTPClient(),
		logger:   zap.NewNop(),
		budget:   DefaultSynthesisBudget,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summarize asks the model for a one or two sentence summary of item.
func (s *Summarizer) Summarize(ctx context.Context, item db.Item) (string, error) {
	title := strings.TrimSpace(item.Title)
	abstract := strings.TrimSpace(item.Abstract)
	if title == "" && abstract == "" {
		return NoInput, nil
	}
	if abstract == "" {
		abstract = "(no abstract available)"
	}
	return s.complete(ctx, llm.SummarizePrompt, "Title: "+title+"\n\nAbstract: "+abstract)
}

// SummarizeAndStore summarizes item and writes the result to its summary
// note, replacing any earlier one.
func (s *Summarizer) SummarizeAndStore(ctx context.Context, item db.Item) (string, error) {
	text, err := s.Summarize(ctx, item)
	if err != nil {
		return "", err
	}
	body := "<p><strong>ResearchHub Summary:</strong></p><p>" + html.EscapeString(text) + "</p>"
	if err := s.notes.SetNote(ctx, item.ID, Tag, body); err != nil {
		return "", fmt.Errorf("storing summary for item %d: %w", item.ID, err)
	}
	s.logger.Info("summary stored", zap.Int64("item", item.ID))
	return text, nil
}

// StoredSummary returns the plain text of item's summary note, or "".
func (s *Summarizer) StoredSummary(ctx context.Context, itemID int64) (string, error) {
	body, err := s.notes.GetNote(ctx, itemID, Tag)
	if err != nil || body == "" {
		return "", err
	}
	return PlainText(body), nil
}

// PlainText strips a summary note body down to the summary text.
func PlainText(body string) string {
	text := tagPattern.ReplaceAllString(body, " ")
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(strings.TrimPrefix(text, "ResearchHub Summary:"))
}

// Synthesize relates several papers in one paragraph. Papers that push the
// request past the token budget are dropped from the end; the first paper
// is always kept.
func (s *Summarizer) Synthesize(ctx context.Context, items []db.Item) (string, error) {
	if len(items) == 0 {
		return NoItems, nil
	}
	var blocks []string
	used := 0
	for i, it := range items {
		abstract := strings.TrimSpace(it.Abstract)
		if abstract == "" {
			abstract = "(no abstract)"
		}
		block := fmt.Sprintf("[%d] %s\nAbstract: %s", i+1, it.Title, abstract)
		cost := llm.EstimateTokens(block)
		if i > 0 && used+cost > s.budget {
			s.logger.Info("synthesis truncated",
				zap.Int("kept", len(blocks)), zap.Int("dropped", len(items)-len(blocks)))
			break
		}
		blocks = append(blocks, block)
		used += cost
	}
	return s.complete(ctx, llm.SynthesizePrompt, strings.Join(blocks, "\n\n"))
}

// Available reports whether the configured provider looks usable: a local
// Ollama must answer on its endpoint, cloud providers need an API key.
func (s *Summarizer) Available(ctx context.Context) bool {
	cfg := s.settings()
	if cfg.Provider != llm.ProviderOllama {
		return cfg.APIKey != ""
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *Summarizer) complete(ctx context.Context, system, user string) (string, error) {
	turn, err := s.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, nil)
	if err != nil {
		return "", err
	}
	final, ok := turn.(llm.Final)
	if !ok || final.Text == llm.NoResponse || strings.TrimSpace(final.Text) == "" {
		return Unavailable, nil
	}
	return strings.TrimSpace(final.Text), nil
}
