package llm

import "context"

// Prompt is one request to the model: a system message setting the rules and
// a user message carrying the page text or repair payload.
type Prompt struct {
	System string
	User   string
}

// Completer is the interface the pipeline depends on. Implementations block
// until the model answers and return the raw response text.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}
