package generation

import "context"

// LocalGenerator is the explicit no-model strategy, selected at
// construction time when generation is disabled or no API key is
// configured. Its empty output makes every caller take its documented
// fallback path deterministically: the planner emits its built-in
// reformulations and the answer pipeline returns retrieved passages
// directly.
type LocalGenerator struct{}

// NewLocalGenerator creates the local fallback generator.
func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{}
}

// Generate returns empty output without error.
func (g *LocalGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// ModelName returns the name of the model.
func (g *LocalGenerator) ModelName() string {
	return "local-fallback"
}
