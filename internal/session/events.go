package session

import "context"

// Event is one item emitted by a pipeline run. The variant set is sealed:
// text turns, input requests, and run completion are the only event kinds
// the engine classifies.
type Event interface {
	isEvent()
}

// TextEvent carries an attributed message produced by the pipeline.
type TextEvent struct {
	Content string
	Source  string
}

// InputRequestedEvent signals the pipeline is waiting for user input.
type InputRequestedEvent struct {
	Prompt string
}

// RunFinishedEvent signals the pipeline run completed.
type RunFinishedEvent struct {
	Reason string
}

func (TextEvent) isEvent()           {}
func (InputRequestedEvent) isEvent() {}
func (RunFinishedEvent) isEvent()    {}

// Pipeline starts one reasoning run and produces an asynchronous event
// stream. The returned channel is closed when the run ends; the stream is
// not safe for concurrent consumption. Input submitted while the run is
// waiting is read from the input channel.
type Pipeline interface {
	Run(ctx context.Context, task string, input <-chan string) (<-chan Event, error)
}

// Summarizer condenses a rendered transcript into a digest.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
