package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"ai-meeting-copilot/internal/credentials"
)

const (
	generateTimeout = 30 * time.Second
	describeTimeout = 15 * time.Second
)

// Gemini implements Client on the Google GenAI API.
type Gemini struct {
	client      *genai.Client
	model       string
	visionModel string
}

// NewGemini creates a Gemini-backed client. The API key comes from the
// credential resolver under the "gemini" provider name.
func NewGemini(ctx context.Context, creds credentials.Resolver, model, visionModel string) (*Gemini, error) {
	key, err := creds.APIKey("gemini")
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       model,
		visionModel: visionModel,
	}, nil
}

// Generate implements Client.
func (g *Gemini) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	var cfg *genai.GenerateContentConfig
	if systemPrompt != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return resp.Text(), nil
}

// GenerateStreaming implements Client.
func (g *Gemini) GenerateStreaming(ctx context.Context, prompt string, onChunk func(chunk string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	var sb strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil) {
		if err != nil {
			return sb.String(), fmt.Errorf("generate streaming: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return sb.String(), nil
}

// DescribeImage implements Client.
func (g *Gemini) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, describeTimeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, "image/png"),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return resp.Text(), nil
}
