package generation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/listingcraft/listingcraft/internal/pkg/env"
)

const visualSystemPrompt = `You are a real estate expert analyzing property photos. Identify and describe:
- Interior features: countertops (granite, quartz, marble), flooring (hardwood, tile, carpet), cabinetry, appliances
- Exterior features: pool, deck, patio, landscaping, architectural style
- Room types: kitchen, bathroom, bedroom, living room, dining room
- Special features: fireplace, vaulted ceilings, skylights, built-ins
- Overall condition and quality
Be specific and professional.`

const visualUserPrompt = `Analyze these property photos and list all visible features, upgrades, and amenities. Focus on high-value features that would appeal to buyers.`

const synthesisSystemPrompt = `You are a professional real estate copywriter. Generate compelling, accurate listing content based on property information and photos.

Generate:
1. MLS Listing Description (200-300 words): Professional, detailed, highlights key features and amenities. Use proper real estate terminology. No emojis.
2. 5 Targeted Hashtags: Relevant to the property type, location features, and target buyers. No spaces, use camelCase or underscores.
3. Facebook/Instagram Caption: Engaging, social media friendly, includes call-to-action. 2-3 sentences max. Can include emojis.
4. Carousel Text: Brief text for each photo in a carousel post. One sentence per photo, highlighting what's shown.

Return ONLY valid JSON in this exact format:
{
  "mlsDescription": "Full MLS description text here...",
  "hashtags": ["#hashtag1", "#hashtag2", "#hashtag3", "#hashtag4", "#hashtag5"],
  "socialCaption": "Engaging caption text here...",
  "carouselText": "Brief text for carousel post here..."
}`

// Client is the multimodal/text generation adapter consumed by the
// pipeline. AnalyzeImages covers the visual-analysis stage, GenerateListing
// the synthesis stage; both return the raw model output.
type Client interface {
	AnalyzeImages(ctx context.Context, imageDataURLs []string) (string, error)
	GenerateListing(ctx context.Context, combinedContext string) (string, error)
}

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client

	visionModel    string
	synthesisModel string
}

func NewOpenAIClientFromEnv() *OpenAIClient {
	apiKey := strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", ""))
	if apiKey == "" {
		return nil
	}
	return &OpenAIClient{
		client:         openai.NewClient(apiKey),
		visionModel:    env.GetEnv("OPENAI_VISION_MODEL", openai.GPT4o),
		synthesisModel: env.GetEnv("OPENAI_SYNTHESIS_MODEL", openai.GPT4oMini),
	}
}

func (c *OpenAIClient) AnalyzeImages(ctx context.Context, imageDataURLs []string) (string, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: visualUserPrompt,
	}}
	for _, url := range imageDataURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: url,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: visualSystemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		MaxTokens: 1000,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation: empty vision response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) GenerateListing(ctx context.Context, combinedContext string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.synthesisModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: synthesisSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Based on the following property information, generate the MLS listing description, hashtags, and social media content:\n\n" + combinedContext,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("generation: no content generated")
	}
	return resp.Choices[0].Message.Content, nil
}
