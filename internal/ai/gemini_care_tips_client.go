package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/leaflog/leaflog-backend/internal/logctx"
	"google.golang.org/genai"
)

type CareTipsClient struct {
	client *genai.Client
	model  string
}

// NewCareTipsClient returns a client for the Gemini API. An empty apiKey is
// an error; callers treat care tips as optional and skip the client.
func NewCareTipsClient(ctx context.Context, apiKey, model string) (*CareTipsClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &CareTipsClient{client: client, model: model}, nil
}

// Suggest asks Gemini for short care tips for a plant.
func (c *CareTipsClient) Suggest(ctx context.Context, name, scientificName, description string) (string, error) {
	rid := logctx.RID(ctx)
	locID := logctx.LocationID(ctx)
	start := time.Now()

	instruction, input := BuildCareTipsPrompt(name, scientificName, description)
	parts := []*genai.Part{
		genai.NewPartFromText(instruction),
		genai.NewPartFromText(input),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	log.Printf("[care] rid=%s location=%s stage=gemini_start model=%s", rid, locID, c.model)
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Printf("[care] rid=%s location=%s stage=gemini_fail model=%s err=%v", rid, locID, c.model, err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	genMs := time.Since(start).Milliseconds()
	rawText := res.Text()
	tips, err := ParseCareTips(rawText)
	if err != nil {
		text := strings.ReplaceAll(rawText, "\n", " ")
		if len(text) > 80 {
			text = text[:80]
		}
		log.Printf("[care] rid=%s location=%s stage=parse_fail len=%d text=%q err=%v", rid, locID, len(rawText), text, err)
		return "", err
	}
	log.Printf("[care] rid=%s location=%s stage=parse_ok len=%d genMs=%d", rid, locID, len(tips), genMs)
	return tips, nil
}
