package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the text-completion boundary. Implementations are expected to
// be safe for concurrent use; tests stub this with fixed input-output fakes.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
