// Package llm wraps the chat completion provider behind a small interface
// so the service layer can be exercised with fakes.
package llm

import "context"

// Provider performs chat completions. Every call sends exactly two
// messages: the rendered system prompt and a fixed user instruction.
type Provider interface {
	// Stream opens a streaming completion and invokes onDelta for each
	// incremental text chunk in delivery order. It returns the full
	// accumulated text once the stream ends. A non-nil error from onDelta
	// stops the stream.
	Stream(ctx context.Context, system, user string, onDelta func(chunk string) error) (string, error)
	// Complete performs a single non-streaming completion.
	Complete(ctx context.Context, system, user string) (string, error)
}
