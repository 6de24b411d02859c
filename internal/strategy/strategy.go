// Package strategy selects between the two conversation flavors: the
// multi-turn pipeline-driven Team strategy and the single-exchange Direct
// strategy. Both expose the same process-message contract and carry a
// digest across conversation rounds.
package strategy

import (
	"context"

	"github.com/tickvoice/tickvoice/internal/pipeline"
	"github.com/tickvoice/tickvoice/internal/provider"
	"github.com/tickvoice/tickvoice/internal/session"
	"github.com/tickvoice/tickvoice/internal/tools"
)

// Result is the classified outcome of processing one user message.
type Result struct {
	Status  session.Status
	Message string
}

// Strategy is a conversation driver owned by a single connection handler.
// Implementations are not safe for concurrent use.
type Strategy interface {
	// Initialize prepares the underlying pipeline. Idempotent.
	Initialize(ctx context.Context) error
	// ProcessMessage feeds one user message in and returns the classified
	// outcome.
	ProcessMessage(ctx context.Context, text string) (Result, error)
	// HistoryDigest returns the digest carried from the last finished round.
	HistoryDigest() string
}

// Options carries the collaborators a strategy needs.
type Options struct {
	Provider    provider.LLMProvider
	Registry    *tools.Registry
	Model       string
	MaxTokens   int
	Temperature float64
	MaxTurns    int
}

// New selects the strategy implementation. The choice is made once per
// connection; there is no runtime switching.
func New(direct bool, opts Options) Strategy {
	if direct {
		return NewDirect(opts)
	}
	return NewTeam(opts)
}

// seedMessage prepends the carried-over digest to the first message of a
// new round. This is the sole cross-session continuity mechanism.
func seedMessage(digest, msg string) string {
	if digest == "" || digest == session.EmptyTranscriptDigest {
		return msg
	}
	return digest + "\n\n" + msg
}

func newPipeline(opts Options) *pipeline.AgentPipeline {
	return pipeline.New(pipeline.Options{
		Provider:    opts.Provider,
		Registry:    opts.Registry,
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		MaxTurns:    opts.MaxTurns,
	})
}
