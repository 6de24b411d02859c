package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickvoice/tickvoice/internal/pipeline"
	"github.com/tickvoice/tickvoice/internal/provider"
	"github.com/tickvoice/tickvoice/internal/session"
	"github.com/tickvoice/tickvoice/internal/tools"
)

// Direct runs conversations as plain request/response exchanges against a
// single agent, with no intermediate event stream. Round completion is
// detected by scanning the response for the farewell marker; a finished
// round is summarized in one shot into the carried digest.
type Direct struct {
	provider    provider.LLMProvider
	registry    *tools.Registry
	summarizer  session.Summarizer
	model       string
	maxTokens   int
	temperature float64
	maxToolIter int

	log    []provider.Message
	digest string
}

// NewDirect builds the Direct strategy.
func NewDirect(opts Options) *Direct {
	model := opts.Model
	if model == "" {
		model = opts.Provider.DefaultModel()
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	maxToolIter := opts.MaxTurns
	if maxToolIter == 0 {
		maxToolIter = 20
	}
	return &Direct{
		provider:    opts.Provider,
		registry:    opts.Registry,
		summarizer:  pipeline.NewChatSummarizer(opts.Provider, model),
		model:       model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		maxToolIter: maxToolIter,
	}
}

// Initialize is a no-op: the exchange log starts empty. Idempotent.
func (d *Direct) Initialize(ctx context.Context) error {
	return nil
}

// ProcessMessage performs one exchange. The first message of a round is
// seeded with the carried digest; a farewell response closes and
// summarizes the round.
func (d *Direct) ProcessMessage(ctx context.Context, text string) (Result, error) {
	mark := len(d.log)
	if len(d.log) == 0 {
		d.log = append(d.log, provider.Message{Role: "system", Content: pipeline.SystemPrompt})
		text = seedMessage(d.digest, text)
	}
	d.log = append(d.log, provider.Message{Role: "user", Content: text})

	content, err := d.exchange(ctx)
	if err != nil {
		// Drop the failed exchange so a retry does not resend it.
		d.log = d.log[:mark]
		return Result{}, fmt.Errorf("direct exchange: %w", err)
	}
	d.log = append(d.log, provider.Message{Role: "assistant", Content: content})

	if !pipeline.IsFarewell(content) {
		return Result{Status: session.StatusAwaitingInput, Message: content}, nil
	}

	digest, err := d.summarizer.Summarize(ctx, renderLog(d.log))
	if err != nil {
		slog.Error("Failed to summarize exchange log", "error", err)
		digest = session.EmptyTranscriptDigest
	}
	d.digest = digest
	d.log = nil
	return Result{Status: session.StatusFinished, Message: content}, nil
}

// HistoryDigest returns the digest captured from the last finished round.
func (d *Direct) HistoryDigest() string {
	return d.digest
}

// exchange calls the model until it answers without tool calls, executing
// any requested tools along the way.
func (d *Direct) exchange(ctx context.Context) (string, error) {
	toolDefs := d.registry.Definitions()

	for i := 0; i < d.maxToolIter; i++ {
		resp, err := d.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    d.log,
			Tools:       toolDefs,
			Model:       d.model,
			MaxTokens:   d.maxTokens,
			Temperature: d.temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		d.log = append(d.log, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, err := d.registry.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf("Error: %v", err)
			}
			d.log = append(d.log, provider.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
	return "", fmt.Errorf("tool loop exceeded %d iterations", d.maxToolIter)
}

// renderLog formats the user-visible exchanges for summarization.
func renderLog(log []provider.Message) string {
	var b strings.Builder
	i := 0
	for _, m := range log {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if m.Content == "" {
			continue
		}
		i++
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, m.Role, m.Content)
	}
	return b.String()
}
