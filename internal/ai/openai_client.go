package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient is a Runtime backed by the official OpenAI SDK. BaseURL makes
// it usable against any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client  openai.Client
	apiKey  string
	baseURL string
}

// NewOpenAIClient builds a client. retryMax counts attempts, so 1 disables
// SDK retries.
func NewOpenAIClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int) *OpenAIClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 1
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: httpTimeout}),
		option.WithMaxRetries(retryMax - 1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), apiKey: apiKey, baseURL: baseURL}
}

func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.mapError(err)
	}
	out := &GenerateResponse{
		ID: completion.ID,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		RequestID: completion.ID,
	}
	for _, ch := range completion.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: "assistant", Content: ch.Message.Content}})
	}
	return out, nil
}

// mapError converts SDK errors into this package's typed errors.
func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		e := &APIError{StatusCode: apiErr.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
		if apiErr.Response != nil {
			e.RequestID = extractRequestID(apiErr.Response)
		}
		return classifyAPIError(e, apiErr.Response)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	host := c.baseURL
	if host == "" {
		host = "https://api.openai.com/v1"
	}
	return &UnreachableError{Host: host, Err: fmt.Errorf("openai: %w", err)}
}
