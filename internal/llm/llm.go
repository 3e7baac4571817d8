// Package llm is the boundary to the external text-generation capability.
package llm

import "context"

// Request is one completion call. The model sees System first, then Prompt.
type Request struct {
	System string
	Prompt string
	// JSON asks the backend to constrain output to a JSON object.
	JSON bool
}

// Completer returns the model's text for a request. It is a black box to
// callers: one request in, one text blob out.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
