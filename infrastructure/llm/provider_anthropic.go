package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicCaller implements ModelCaller against Anthropic's Messages API.
type anthropicCaller struct {
	client  anthropic.Client
	counter *TokenCounter
}

// NewAnthropicCaller creates a caller for Anthropic-hosted models.
func NewAnthropicCaller(apiKey, baseURL string) (ModelCaller, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		validated, err := ValidateBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithBaseURL(validated))
	}

	return &anthropicCaller{
		client:  anthropic.NewClient(opts...),
		counter: NewTokenCounter(),
	}, nil
}

// DoRequest sends one message request to the named model.
func (c *anthropicCaller) DoRequest(ctx context.Context, model string, payload Payload) (*Response, error) {
	options := ParseRequestOptions(payload.Options)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(payload.Prompt)),
		},
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(clampFloat(*options.Temperature, 0.0, 1.0))
	}
	if payload.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: payload.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.classify(model, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &RequestError{Kind: KindUnknown, Model: model, Message: "empty response from API"}
	}

	return &Response{
		Text:      text.String(),
		Model:     model,
		TokensIn:  c.counter.GetTokenCount(int(message.Usage.InputTokens), payload.Prompt),
		TokensOut: c.counter.GetTokenCount(int(message.Usage.OutputTokens), text.String()),
	}, nil
}

// classify normalizes Anthropic SDK failures into RequestErrors.
func (c *anthropicCaller) classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return classifyContext(model, err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return ClassifyHTTP(model, apiErr.StatusCode, apiErr.Error(), err)
	}

	return &RequestError{Kind: KindNetwork, Model: model, Message: "request failed", Err: err}
}
