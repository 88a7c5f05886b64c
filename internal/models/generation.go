package models

// GenerationOptions are the sampling knobs passed to a hosted generation endpoint.
// Zero values leave the provider default in place.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int

	// NumBeams has no equivalent on the hosted chat endpoints; it is accepted and logged.
	NumBeams int
}
