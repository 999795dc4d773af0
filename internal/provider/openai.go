package provider

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// chatAPI is the subset of the go-openai client used by the adapter.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// OpenAI implements Caller via the Chat Completions API. With a custom base
// URL it also serves OpenAI-compatible providers (Groq, xAI).
type OpenAI struct {
	chat       chatAPI
	name       string
	configured bool
}

// NewOpenAI builds the adapter for api.openai.com.
func NewOpenAI(apiKey string) *OpenAI {
	return NewOpenAICompatible("openai", apiKey, "")
}

// NewOpenAICompatible builds an adapter for any Chat Completions-compatible
// endpoint. An empty API key yields an unavailable adapter.
func NewOpenAICompatible(name, apiKey, baseURL string) *OpenAI {
	if apiKey == "" {
		return &OpenAI{name: name}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		chat:       openai.NewClientWithConfig(cfg),
		name:       name,
		configured: true,
	}
}

// newOpenAIWithAPI wires a custom chat API, used by tests.
func newOpenAIWithAPI(name string, chat chatAPI) *OpenAI {
	return &OpenAI{chat: chat, name: name, configured: true}
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Available() bool { return o.configured }

func (o *OpenAI) Call(ctx context.Context, req Request) (string, error) {
	if !o.configured {
		return "", &CallError{
			Type:     ErrorConfig,
			Provider: o.name,
			Model:    req.Model,
			Err:      errors.New("api key not configured"),
		}
	}
	if req.Model == "" {
		return "", &CallError{
			Type:     ErrorConfig,
			Provider: o.name,
			Err:      errors.New("model identifier is required"),
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Payload,
	})

	request := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", &CallError{
			Type:     o.classify(err),
			Provider: o.name,
			Model:    req.Model,
			Err:      err,
		}
	}
	if len(resp.Choices) == 0 {
		return "", &CallError{
			Type:     ErrorUnknown,
			Provider: o.name,
			Model:    req.Model,
			Err:      errors.New("response contains no choices"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) classify(err error) ErrorType {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	return classifyTransport(err)
}
