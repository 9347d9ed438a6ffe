package clients

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI returns a Gemini API client for features langchaingo does not expose,
// such as Google Search grounding.
func GenAI(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}
	return client, nil
}
