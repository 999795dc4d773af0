package provider

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messagesAPI is the subset of the Anthropic SDK used by the adapter. It is
// satisfied by *sdk.MessageService so tests can substitute a mock.
type messagesAPI interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Anthropic implements Caller on top of the Claude Messages API.
type Anthropic struct {
	msg        messagesAPI
	configured bool
}

// NewAnthropic builds the Anthropic adapter. An empty API key yields an
// unavailable adapter whose calls fail with a config error.
func NewAnthropic(apiKey string) *Anthropic {
	if apiKey == "" {
		return &Anthropic{}
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	client := sdk.NewClient(opts...)
	return &Anthropic{msg: &client.Messages, configured: true}
}

// newAnthropicWithAPI wires a custom messages API, used by tests.
func newAnthropicWithAPI(msg messagesAPI) *Anthropic {
	return &Anthropic{msg: msg, configured: true}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Available() bool { return a.configured }

func (a *Anthropic) Call(ctx context.Context, req Request) (string, error) {
	if !a.configured {
		return "", &CallError{
			Type:     ErrorConfig,
			Provider: a.Name(),
			Model:    req.Model,
			Err:      errors.New("ANTHROPIC_API_KEY not configured"),
		}
	}
	if req.Model == "" {
		return "", &CallError{
			Type:     ErrorConfig,
			Provider: a.Name(),
			Err:      errors.New("model identifier is required"),
		}
	}

	system := req.SystemPrompt
	if req.JSONMode {
		// The Messages API has no native JSON mode; enforce via instruction.
		system += "\n\nRespond with a single JSON object and nothing else."
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Payload)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	msg, err := a.msg.New(ctx, params)
	if err != nil {
		return "", &CallError{
			Type:     a.classify(err),
			Provider: a.Name(),
			Model:    req.Model,
			Err:      err,
		}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (a *Anthropic) classify(err error) ErrorType {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}
	return classifyTransport(err)
}
