package port

import "context"

// Generator produces an answer from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (Generation, error)

	// ModelName returns the name of the model.
	ModelName() string
}

type Generation struct {
	Text      string
	TokensIn  int
	TokensOut int
}
