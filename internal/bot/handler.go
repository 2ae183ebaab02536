// Package bot orchestrates a single conversational turn: trigger check,
// resource resolution, prompt assembly, completion call, and memory
// recording.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/telexorg/summarizebot/internal/extract"
	"github.com/telexorg/summarizebot/internal/llm"
	"github.com/telexorg/summarizebot/internal/memory"
	"github.com/telexorg/summarizebot/internal/observability"
	"github.com/telexorg/summarizebot/internal/prompt"
	"github.com/telexorg/summarizebot/internal/reliability"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Options bounds the handler's prompt assembly.
type Options struct {
	TriggerPhrase  string
	ScrapeMaxChars int
	PromptMaxChars int
	ContextWindow  int
}

// Reply is the outcome of one handled message.
type Reply struct {
	Text      string
	Triggered bool
}

// Handler processes inbound chat messages.
type Handler struct {
	store   memory.Store
	llm     llm.Client
	fetcher *extract.Fetcher
	metrics *observability.Metrics
	logger  *slog.Logger
	opts    Options
}

func New(store memory.Store, client llm.Client, fetcher *extract.Fetcher, metrics *observability.Metrics, logger *slog.Logger, opts Options) *Handler {
	if opts.TriggerPhrase == "" {
		opts.TriggerPhrase = "@bot"
	}
	if opts.ScrapeMaxChars <= 0 {
		opts.ScrapeMaxChars = 3000
	}
	if opts.PromptMaxChars <= 0 {
		opts.PromptMaxChars = 15000
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   store,
		llm:     client,
		fetcher: fetcher,
		metrics: metrics,
		logger:  logger,
		opts:    opts,
	}
}

// HandleMessage runs one conversational turn for userID. Non-triggered
// messages get a canned acknowledgment without touching the completion
// API or the memory store. Recoverable upstream failures (unreachable
// resource, rate limiting) become natural-language replies; storage
// failures propagate as errors.
func (h *Handler) HandleMessage(ctx context.Context, userID, text string) (Reply, error) {
	if !strings.Contains(strings.ToLower(text), strings.ToLower(h.opts.TriggerPhrase)) {
		return Reply{
			Text: fmt.Sprintf("Hi! Mention me with '%s summarize' to use me!", h.opts.TriggerPhrase),
		}, nil
	}

	if strings.TrimSpace(userID) == "" {
		userID = "anonymous"
	}
	log := h.logger.With("user_id", userID)

	sourceType, sourceRef, resourceText, err := h.resolveResource(ctx, text)
	if err != nil {
		outcome := reliability.Classify(err)
		if !outcome.Recoverable() {
			return Reply{}, err
		}
		log.Warn("resource resolution failed", "source", sourceRef, "error", err)
		reply := apologyFor(outcome)
		if err := h.recordTurn(ctx, userID, text, reply); err != nil {
			return Reply{}, err
		}
		return Reply{Text: reply, Triggered: true}, nil
	}

	mode := prompt.DetectMode(text)
	userPrompt, err := prompt.PrepareText(
		prompt.BuildUserPrompt(text, sourceRef, resourceText),
		h.opts.PromptMaxChars,
	)
	if err != nil {
		// Trigger phrase is present, so this only happens for degenerate
		// payloads. Ask for content instead of failing the turn.
		return Reply{Text: "What would you like me to summarize?", Triggered: true}, nil
	}

	completion, err := h.complete(ctx, userID, userPrompt)
	if err != nil {
		outcome := reliability.Classify(err)
		if !outcome.Recoverable() {
			return Reply{}, err
		}
		log.Warn("completion unavailable", "error", err)
		reply := apologyFor(outcome)
		if err := h.recordTurn(ctx, userID, text, reply); err != nil {
			return Reply{}, err
		}
		return Reply{Text: reply, Triggered: true}, nil
	}

	if strings.TrimSpace(completion) == "" {
		completion = "Sorry, I could not generate a summary."
	}

	replyText := completion
	if sourceType != memory.SummaryText {
		replyText = prompt.FormatSummary(completion, mode)
	}

	if err := h.recordTurn(ctx, userID, text, replyText); err != nil {
		return Reply{}, err
	}

	metadata := map[string]string{}
	if sourceRef != "" {
		metadata["source"] = sourceRef
	}
	if _, err := h.store.AddSummary(ctx, userID, sourceType, completion, metadata); err != nil {
		if h.metrics != nil {
			h.metrics.StoreErrors.Inc()
		}
		return Reply{}, fmt.Errorf("record summary: %w", err)
	}
	if h.metrics != nil {
		h.metrics.Summaries.WithLabelValues(string(sourceType)).Inc()
	}

	return Reply{Text: replyText, Triggered: true}, nil
}

// resolveResource finds a referenced URL in the message and converts it
// to text. It reports the summary provenance type, the source label for
// metadata, and the extracted text (empty when the message carries no
// resource).
func (h *Handler) resolveResource(ctx context.Context, text string) (memory.SummaryType, string, string, error) {
	rawURL := urlPattern.FindString(text)
	if rawURL == "" {
		return memory.SummaryText, "", "", nil
	}

	if kind, ok := extract.ResolveFileType(rawURL); ok {
		data, err := h.fetcher.Download(ctx, rawURL)
		if err != nil {
			h.countFetchError("download")
			return memory.SummaryFile, rawURL, "", err
		}
		fileText, err := extract.FileText(kind, data)
		if err != nil {
			h.countFetchError("extract")
			return memory.SummaryFile, rawURL, "", fmt.Errorf("%w: %v", extract.ErrFetch, err)
		}
		return memory.SummaryFile, rawURL, capChars(fileText, h.opts.ScrapeMaxChars), nil
	}

	page, err := h.fetcher.FetchPage(ctx, rawURL)
	if err != nil {
		h.countFetchError("fetch")
		return memory.SummaryURL, rawURL, "", err
	}
	pageText, err := extract.WebpageText(page)
	if err != nil {
		h.countFetchError("parse")
		return memory.SummaryURL, rawURL, "", fmt.Errorf("%w: %v", extract.ErrFetch, err)
	}
	return memory.SummaryURL, rawURL, capChars(pageText, h.opts.ScrapeMaxChars), nil
}

// complete builds the completion request from the system prompt, the
// user's recent conversation, and the prepared prompt.
func (h *Handler) complete(ctx context.Context, userID, userPrompt string) (string, error) {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: prompt.SystemPrompt}}

	recent, err := h.store.GetRecentConversation(ctx, userID, h.opts.ContextWindow)
	if err != nil {
		// Context is best-effort; a load failure should not kill the turn.
		h.logger.Warn("loading conversation context failed", "user_id", userID, "error", err)
	}
	for _, m := range recent {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userPrompt})

	start := time.Now()
	completion, err := h.llm.Complete(ctx, messages)
	if h.metrics != nil {
		h.metrics.ObserveCompletionLatency(time.Since(start))
	}
	return completion, err
}

func (h *Handler) recordTurn(ctx context.Context, userID, userText, replyText string) error {
	if err := h.store.AddMessage(ctx, userID, memory.RoleUser, userText); err != nil {
		if h.metrics != nil {
			h.metrics.StoreErrors.Inc()
		}
		return fmt.Errorf("record user message: %w", err)
	}
	if err := h.store.AddMessage(ctx, userID, memory.RoleAssistant, replyText); err != nil {
		if h.metrics != nil {
			h.metrics.StoreErrors.Inc()
		}
		return fmt.Errorf("record assistant message: %w", err)
	}
	return nil
}

func (h *Handler) countFetchError(stage string) {
	if h.metrics != nil {
		h.metrics.FetchErrors.WithLabelValues(stage).Inc()
	}
}

func apologyFor(outcome reliability.Outcome) string {
	switch outcome {
	case reliability.OutcomeRateLimited:
		return "Sorry, I'm currently experiencing high demand. Please try again in a moment."
	case reliability.OutcomeFetchFailed:
		return "Sorry, I couldn't access that link. Please check it and try again."
	case reliability.OutcomeUnsupportedFile:
		return "Sorry, I can't read that file type yet. I can handle PDF, DOCX, and TXT files."
	case reliability.OutcomeEmptyContent:
		return "What would you like me to summarize?"
	default:
		return "Sorry, something went wrong while processing that."
	}
}

func capChars(text string, max int) string {
	return prompt.Truncate(text, max)
}
