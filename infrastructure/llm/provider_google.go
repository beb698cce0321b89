package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// googleCaller implements ModelCaller against the Gemini API. It serves the
// text models plus the Imagen and Veo descriptors routed to the google
// provider.
type googleCaller struct {
	client  *genai.Client
	counter *TokenCounter
}

// NewGoogleCaller creates a caller for Google-hosted models.
func NewGoogleCaller(ctx context.Context, apiKey string) (ModelCaller, error) {
	if apiKey == "" {
		return nil, errors.New("google API key cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleCaller{client: client, counter: NewTokenCounter()}, nil
}

// DoRequest sends one content generation request to the named model.
func (c *googleCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	options := ParseRequestOptions(payload.Options)

	contents := c.buildContents(payload)
	config := c.buildGenerationConfig(options)

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, c.classify(model, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, &RequestError{Kind: KindUnknown, Model: model, Message: "empty response from API"}
	}

	return &Response{
		Text:      text,
		Model:     model,
		TokensIn:  c.tokenCount(resp.UsageMetadata, true, payload.Prompt),
		TokensOut: c.tokenCount(resp.UsageMetadata, false, text),
	}, nil
}

// buildContents formats the payload for Gemini. The API has no separate
// system role, so a system prompt is prepended to the user prompt.
func (c *googleCaller) buildContents(payload Payload) []*genai.Content {
	prompt := payload.Prompt
	if payload.System != "" {
		prompt = fmt.Sprintf("System: %s\n\nUser: %s", payload.System, payload.Prompt)
	}
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func (c *googleCaller) buildGenerationConfig(options RequestOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if options.Temperature != nil {
		temp := clampFloat(*options.Temperature, MinTemperature, MaxTemperature)
		config.Temperature = genai.Ptr(float32(temp))
	}
	if options.MaxTokens > 0 {
		if options.MaxTokens > math.MaxInt32 {
			config.MaxOutputTokens = math.MaxInt32
		} else {
			config.MaxOutputTokens = int32(options.MaxTokens)
		}
	}
	if options.TopP != nil {
		config.TopP = genai.Ptr(float32(clampFloat(*options.TopP, MinTopP, MaxTopP)))
	}
	if format, ok := options.Extra["response_format"].(string); ok && format == "json_object" {
		config.ResponseMIMEType = "application/json"
	}

	return config
}

func (c *googleCaller) tokenCount(usage *genai.GenerateContentResponseUsageMetadata, isInput bool, text string) int {
	if usage != nil {
		if isInput && usage.PromptTokenCount > 0 {
			return int(usage.PromptTokenCount)
		}
		if !isInput && usage.CandidatesTokenCount > 0 {
			return int(usage.CandidatesTokenCount)
		}
	}
	return c.counter.EstimateTokens(text)
}

// classify normalizes Google API failures into RequestErrors.
func (c *googleCaller) classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return classifyContext(model, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return ClassifyHTTP(model, apiErr.Code, message, err)
	}

	return &RequestError{Kind: KindNetwork, Model: model, Message: "request failed", Err: err}
}
