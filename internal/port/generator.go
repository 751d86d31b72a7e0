package port

import "context"

// Generator is the text-generation collaborator, used for query
// reformulation and answer generation. Implementations must tolerate
// empty or malformed model output; callers degrade on error instead of
// failing the request.
type Generator interface {
	// Generate produces text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
