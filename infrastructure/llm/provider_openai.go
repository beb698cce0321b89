package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// openAICaller implements ModelCaller against OpenAI's chat completion API.
type openAICaller struct {
	client  *openai.Client
	counter *TokenCounter
}

// NewOpenAICaller creates a caller for OpenAI-hosted models.
func NewOpenAICaller(apiKey, baseURL string) (ModelCaller, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key cannot be empty")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		validated, err := ValidateBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		cfg.BaseURL = validated
	}

	return &openAICaller{
		client:  openai.NewClientWithConfig(cfg),
		counter: NewTokenCounter(),
	}, nil
}

// DoRequest sends one chat completion request to the named model.
func (c *openAICaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	options := ParseRequestOptions(payload.Options)

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: c.buildMessages(payload),
	}
	if options.Temperature != nil {
		req.Temperature = float32(clampFloat(*options.Temperature, 0.0, 2.0))
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(clampFloat(*options.TopP, MinTopP, MaxTopP))
	}
	if format, ok := options.Extra["response_format"].(string); ok && format == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, c.classify(model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &RequestError{Kind: KindUnknown, Model: model, Message: "no response choices returned"}
	}

	content := resp.Choices[0].Message.Content
	return &Response{
		Text:      content,
		Model:     model,
		TokensIn:  c.counter.GetTokenCount(resp.Usage.PromptTokens, payload.Prompt),
		TokensOut: c.counter.GetTokenCount(resp.Usage.CompletionTokens, content),
	}, nil
}

func (c *openAICaller) buildMessages(payload Payload) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if payload.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: payload.System,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: payload.Prompt,
	})
}

// classify normalizes OpenAI SDK failures into RequestErrors.
func (c *openAICaller) classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return classifyContext(model, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return ClassifyHTTP(model, apiErr.HTTPStatusCode, message, err)
	}

	return &RequestError{Kind: KindNetwork, Model: model, Message: "request failed", Err: err}
}
