package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tickvoice/tickvoice/internal/provider"
)

// ChatSummarizer condenses a conversation transcript with a single
// completion call.
type ChatSummarizer struct {
	provider  provider.LLMProvider
	model     string
	maxTokens int
}

// NewChatSummarizer creates a summarizer using the given model, or the
// provider default when empty.
func NewChatSummarizer(p provider.LLMProvider, model string) *ChatSummarizer {
	if model == "" {
		model = p.DefaultModel()
	}
	return &ChatSummarizer{provider: p, model: model, maxTokens: 512}
}

// Summarize returns a bullet-point digest of the transcript: user intent
// plus the key facts a follow-up conversation needs.
func (s *ChatSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := s.provider.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, transcript)},
		},
		Model:     s.model,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
