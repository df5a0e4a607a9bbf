package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rapidxai/outbound-caller/libs/interfaces"
)

// chatLLM talks to any OpenAI-compatible chat completions API. Groq is served
// by the same client with a different base URL, key and model.
type chatLLM struct {
	name        string
	model       string
	temperature *float64
	client      openai.Client
}

type LLMOption func(*llmOptions)

type llmOptions struct {
	name        string
	baseURL     string
	temperature *float64
	maxRetries  int
}

// WithName sets the vendor name reported by the handle, e.g. "groq".
func WithName(name string) LLMOption {
	return func(o *llmOptions) { o.name = name }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) LLMOption {
	return func(o *llmOptions) { o.baseURL = url }
}

func WithTemperature(t float64) LLMOption {
	return func(o *llmOptions) { o.temperature = &t }
}

func WithMaxRetries(n int) LLMOption {
	return func(o *llmOptions) { o.maxRetries = n }
}

// NewLLM returns a chat-completions LLM handle for model.
func NewLLM(apiKey, model string, opts ...LLMOption) interfaces.LLM {
	o := &llmOptions{name: "openai", maxRetries: 2}
	for _, opt := range opts {
		opt(o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	return &chatLLM{
		name:        o.name,
		model:       model,
		temperature: o.temperature,
		client:      openai.NewClient(reqOpts...),
	}
}

func (c *chatLLM) Name() string { return c.name }

func (c *chatLLM) Chat(ctx context.Context, messages []interfaces.Message, tools []interfaces.ToolSpec) (interfaces.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toParams(messages),
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return interfaces.Message{}, fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(completion.Choices) == 0 {
		return interfaces.Message{}, fmt.Errorf("%s chat completion: no choices", c.name)
	}

	msg := completion.Choices[0].Message
	out := interfaces.Message{Role: interfaces.RoleAssistant, Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, interfaces.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toParams(messages []interfaces.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case interfaces.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case interfaces.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case interfaces.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case interfaces.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}
