package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tickvoice/tickvoice/internal/pipeline"
	"github.com/tickvoice/tickvoice/internal/session"
)

// Team drives multi-turn conversations through a session engine. Each
// round is one engine lifetime: when a round finishes, the digest is
// captured and a fresh engine is created for the next round. A finished
// engine is never resumed.
type Team struct {
	pipeline   session.Pipeline
	summarizer session.Summarizer

	engine *session.Engine
	digest string
}

// NewTeam builds the Team strategy on the agent pipeline and a chat
// summarizer sharing the same provider.
func NewTeam(opts Options) *Team {
	return newTeam(newPipeline(opts), pipeline.NewChatSummarizer(opts.Provider, opts.Model))
}

func newTeam(p session.Pipeline, s session.Summarizer) *Team {
	return &Team{pipeline: p, summarizer: s}
}

// Initialize creates the first session engine. Idempotent.
func (t *Team) Initialize(ctx context.Context) error {
	if t.engine == nil {
		t.engine = session.NewEngine(t.pipeline, t.summarizer)
	}
	return nil
}

// ProcessMessage feeds one user message into the current round. A message
// arriving with no active session starts a new round seeded with the
// carried digest; otherwise it answers the pending input request.
func (t *Team) ProcessMessage(ctx context.Context, text string) (Result, error) {
	if err := t.Initialize(ctx); err != nil {
		return Result{}, err
	}

	if !t.engine.Active() {
		if err := t.engine.Start(ctx, seedMessage(t.digest, text)); err != nil {
			return Result{}, fmt.Errorf("start session: %w", err)
		}
	} else {
		if err := t.engine.SubmitInput(text); err != nil {
			return Result{}, fmt.Errorf("submit input: %w", err)
		}
	}

	result, err := t.engine.Advance(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("advance session: %w", err)
	}

	if result.Status == session.StatusFinished {
		digest, err := t.engine.Digest(ctx)
		if err != nil {
			slog.Error("Failed to digest finished session", "error", err)
			digest = session.EmptyTranscriptDigest
		}
		t.digest = digest
		// The terminal engine is discarded; the next message starts fresh.
		t.engine = session.NewEngine(t.pipeline, t.summarizer)
		return Result{Status: session.StatusFinished, Message: digest}, nil
	}

	return Result{Status: session.StatusAwaitingInput, Message: result.LastMessage}, nil
}

// HistoryDigest returns the digest captured from the last finished round.
func (t *Team) HistoryDigest() string {
	return t.digest
}
