// Package session implements the conversation session engine: the state
// machine that drives a pipeline's event stream, accumulates a transcript,
// and produces the digest that seeds the next session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAwaitingInput
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status classifies the outcome of an Advance call.
type Status string

const (
	StatusAwaitingInput Status = "user_input_requested"
	StatusFinished      Status = "finished"
)

// Result is the outcome of one Advance call. LastMessage is the content of
// the last transcript turn, or empty when the transcript is empty.
type Result struct {
	Status      Status
	LastMessage string
}

// Turn is one attributed message in the transcript.
type Turn struct {
	Content string
	Source  string
}

// ErrInvalidState is returned when an operation is not legal in the
// session's current state.
var ErrInvalidState = errors.New("invalid session state")

// EmptyTranscriptDigest is returned by Digest for sessions that produced
// no transcript.
const EmptyTranscriptDigest = "no conversation history available"

// inputBuffer bounds the number of queued user inputs per run.
const inputBuffer = 16

// Engine drives one bounded pipeline run. It is owned by a single caller:
// Advance must never be invoked concurrently against the same Engine
// because the underlying event stream is not safe for concurrent
// consumption. A Finished engine is terminal; continuing the conversation
// requires a new Engine.
type Engine struct {
	pipeline   Pipeline
	summarizer Summarizer

	state      State
	transcript []Turn
	events     <-chan Event
	input      chan string
}

// NewEngine creates an idle engine bound to a pipeline and a summarizer.
func NewEngine(pipeline Pipeline, summarizer Summarizer) *Engine {
	return &Engine{
		pipeline:   pipeline,
		summarizer: summarizer,
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// Active reports whether a pipeline run is in flight.
func (e *Engine) Active() bool {
	return e.state == StateRunning || e.state == StateAwaitingInput
}

// Transcript returns a copy of the accumulated transcript.
func (e *Engine) Transcript() []Turn {
	out := make([]Turn, len(e.transcript))
	copy(out, e.transcript)
	return out
}

// Start opens the pipeline's event stream with text as the task. Calling
// Start while a run is active is a no-op: only one run may exist per
// session, so the call is logged and ignored rather than surfaced as an
// error. A finished engine cannot be restarted; its transcript belongs to
// the completed run.
func (e *Engine) Start(ctx context.Context, text string) error {
	if e.Active() {
		slog.Warn("Active session exists, cannot create new session", "state", e.state.String())
		return nil
	}
	if e.state == StateFinished {
		return fmt.Errorf("start after finish: %w", ErrInvalidState)
	}

	input := make(chan string, inputBuffer)
	events, err := e.pipeline.Run(ctx, text, input)
	if err != nil {
		return fmt.Errorf("start pipeline run: %w", err)
	}

	e.input = input
	e.events = events
	e.state = StateRunning
	return nil
}

// SubmitInput enqueues text for the in-flight run. Legal only while the
// session is awaiting input; blocks if the bounded input buffer is full.
func (e *Engine) SubmitInput(text string) error {
	if e.state != StateAwaitingInput {
		return fmt.Errorf("submit input in state %s: %w", e.state, ErrInvalidState)
	}
	e.input <- text
	e.state = StateRunning
	return nil
}

// Advance consumes pipeline events until the run requests input or
// finishes. Text events are appended to the transcript in emission order.
// The call suspends while waiting for the next event; it must not be
// invoked again before a prior call returns.
func (e *Engine) Advance(ctx context.Context) (Result, error) {
	if e.state != StateRunning {
		return Result{}, fmt.Errorf("advance in state %s: %w", e.state, ErrInvalidState)
	}

	for {
		select {
		case ev, ok := <-e.events:
			if !ok {
				// Stream closed without an explicit finish event.
				e.state = StateFinished
				return Result{Status: StatusFinished, LastMessage: e.lastMessage()}, nil
			}
			switch ev := ev.(type) {
			case TextEvent:
				e.transcript = append(e.transcript, Turn{Content: ev.Content, Source: ev.Source})
			case InputRequestedEvent:
				e.state = StateAwaitingInput
				return Result{Status: StatusAwaitingInput, LastMessage: e.lastMessage()}, nil
			case RunFinishedEvent:
				e.state = StateFinished
				return Result{Status: StatusFinished, LastMessage: e.lastMessage()}, nil
			}
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// Digest summarizes the transcript into a compact bullet-point extraction
// of user intent and key facts. Independent of the state machine: it can
// be called on a finished session any number of times and depends only on
// the immutable transcript.
func (e *Engine) Digest(ctx context.Context) (string, error) {
	if len(e.transcript) == 0 {
		return EmptyTranscriptDigest, nil
	}

	var b strings.Builder
	for i, turn := range e.transcript {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, turn.Source, turn.Content)
	}

	digest, err := e.summarizer.Summarize(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}
	return digest, nil
}

func (e *Engine) lastMessage() string {
	if len(e.transcript) == 0 {
		return ""
	}
	return e.transcript[len(e.transcript)-1].Content
}
