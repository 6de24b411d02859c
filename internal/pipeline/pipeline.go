// Package pipeline runs the reasoning loop behind a session: an LLM
// conversation with tool calling, surfaced as an event stream.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickvoice/tickvoice/internal/provider"
	"github.com/tickvoice/tickvoice/internal/session"
	"github.com/tickvoice/tickvoice/internal/tools"
)

const (
	defaultMaxTurns = 20
	assistantSource = "assistant"
)

// Options configures an AgentPipeline.
type Options struct {
	Provider    provider.LLMProvider
	Registry    *tools.Registry
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxTurns caps user-visible conversation turns per run.
	MaxTurns int
}

// AgentPipeline implements session.Pipeline on top of an LLM provider and a
// tool registry. Each Run is an independent conversation.
type AgentPipeline struct {
	provider    provider.LLMProvider
	registry    *tools.Registry
	model       string
	maxTokens   int
	temperature float64
	maxTurns    int
}

// New creates a pipeline. Zero-value options fall back to provider and
// loop defaults.
func New(opts Options) *AgentPipeline {
	model := opts.Model
	if model == "" {
		model = opts.Provider.DefaultModel()
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = defaultMaxTurns
	}
	return &AgentPipeline{
		provider:    opts.Provider,
		registry:    opts.Registry,
		model:       model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
		maxTurns:    maxTurns,
	}
}

// Run starts a conversation for the task and streams events until the
// assistant says farewell, the turn cap is hit, or the context is
// cancelled. The returned channel is closed when the run ends.
func (p *AgentPipeline) Run(ctx context.Context, task string, input <-chan string) (<-chan session.Event, error) {
	if task == "" {
		return nil, fmt.Errorf("empty task")
	}
	events := make(chan session.Event)
	go p.run(ctx, task, input, events)
	return events, nil
}

func (p *AgentPipeline) run(ctx context.Context, task string, input <-chan string, events chan<- session.Event) {
	defer close(events)

	messages := []provider.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: task},
	}

	for turn := 0; turn < p.maxTurns; turn++ {
		content, err := p.step(ctx, &messages)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("Pipeline step failed", "turn", turn, "error", err)
			p.emit(ctx, events, session.TextEvent{
				Content: fmt.Sprintf("Sorry, something went wrong: %v", err),
				Source:  assistantSource,
			})
			p.emit(ctx, events, session.RunFinishedEvent{Reason: "error"})
			return
		}

		if content != "" {
			if !p.emit(ctx, events, session.TextEvent{Content: content, Source: assistantSource}) {
				return
			}
		}
		if IsFarewell(content) {
			p.emit(ctx, events, session.RunFinishedEvent{Reason: "farewell"})
			return
		}

		if !p.emit(ctx, events, session.InputRequestedEvent{Prompt: content}) {
			return
		}
		select {
		case text, ok := <-input:
			if !ok {
				return
			}
			messages = append(messages, provider.Message{Role: "user", Content: text})
		case <-ctx.Done():
			return
		}
	}

	slog.Warn("Pipeline hit turn cap", "max_turns", p.maxTurns)
	p.emit(ctx, events, session.RunFinishedEvent{Reason: "max_turns"})
}

// step drives the model until it produces a plain message: tool calls are
// executed and their results fed back in without surfacing to the caller.
func (p *AgentPipeline) step(ctx context.Context, messages *[]provider.Message) (string, error) {
	toolDefs := p.registry.Definitions()

	for i := 0; i < p.maxTurns; i++ {
		resp, err := p.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    *messages,
			Tools:       toolDefs,
			Model:       p.model,
			MaxTokens:   p.maxTokens,
			Temperature: p.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("chat request: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			*messages = append(*messages, provider.Message{Role: "assistant", Content: resp.Content})
			return resp.Content, nil
		}

		*messages = append(*messages, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, err := p.registry.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf("Error: %v", err)
			}
			slog.Debug("Tool executed", "tool", tc.Name, "result_len", len(result))
			*messages = append(*messages, provider.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}
	return "", fmt.Errorf("tool loop exceeded %d iterations", p.maxTurns)
}

func (p *AgentPipeline) emit(ctx context.Context, events chan<- session.Event, ev session.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsFarewell reports whether the assistant message closes the conversation.
func IsFarewell(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range farewellMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
