// Package llm defines the opaque text/vision generation collaborator and
// its Gemini-backed implementation.
package llm

import "context"

// Client is the generation contract. The core does not know which provider
// backs it; tests substitute fakes.
type Client interface {
	// Generate returns the full completion for prompt.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)

	// GenerateStreaming invokes onChunk for each token chunk and returns
	// the accumulated text.
	GenerateStreaming(ctx context.Context, prompt string, onChunk func(chunk string)) (string, error)

	// DescribeImage answers prompt about the given image bytes.
	DescribeImage(ctx context.Context, prompt string, image []byte) (string, error)
}
