package llm

import "context"

// CompletionRequest is one single-turn chat completion. ImageDataURL, when set,
// is attached to the user message as an image part.
type CompletionRequest struct {
	Model        string
	Prompt       string
	ImageDataURL string
	MaxTokens    int
	Temperature  float32
	JSONMode     bool
}

// Completer is the model endpoint the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
