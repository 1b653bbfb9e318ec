package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const modelName = "gemini-1.5-pro"

// GeminiClient asks the model for a 0..100 compatibility score with short reasons.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Score implements the compatibility collaborator consumed by the likes use case.
func (c *GeminiClient) Score(ctx context.Context, a, b *domain.UserSummary) (*domain.Compatibility, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(buildPrompt(a, b)))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return ParseCompatibility(sb.String())
}

func buildPrompt(a, b *domain.UserSummary) string {
	return fmt.Sprintf(`
		Rate how well two people would get along as roommates.
		Person 1: %s
		Person 2: %s

		Output: JSON object {"score": number from 0 to 100, "explanations": [up to 3 short reasons]}.
	`, describe(a), describe(b))
}

func describe(u *domain.UserSummary) string {
	traits := map[string]interface{}{"name": u.DisplayName()}
	if u.Age != nil {
		traits["age"] = *u.Age
	}
	if u.Location != nil {
		traits["location"] = *u.Location
	}
	if u.Bio != nil {
		traits["bio"] = *u.Bio
	}
	data, _ := json.Marshal(traits)
	return string(data)
}

// ParseCompatibility accepts the model output with or without a markdown code fence.
func ParseCompatibility(text string) (*domain.Compatibility, error) {
	text = strings.TrimSpace(text)
	// Clean up markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var out domain.Compatibility
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse compatibility: %w", err)
	}
	if out.Score < 0 || out.Score > 100 {
		return nil, fmt.Errorf("compatibility score %v out of range", out.Score)
	}
	if len(out.Explanations) > 3 {
		out.Explanations = out.Explanations[:3]
	}
	return &out, nil
}
