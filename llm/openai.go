package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/errors"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient talks to the OpenAI Chat Completions API. This is the
// primary backend.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient builds a client from OPENAI_API_KEY, honoring
// OPENAI_BASE_URL for gateway/Azure-style deployments.
func NewOpenAIClient(ctx context.Context) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c}, nil
}

// Complete sends the transcript and tool catalogue and maps the reply back
// into the internal response shape.
func (o *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    convertTranscriptToOpenAI(req.Transcript),
		Tools:       convertSchemasToOpenAI(req.Tools),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(*req.MaxTokens)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}
	return processOpenAIResponse(resp)
}

func processOpenAIResponse(resp *openai.ChatCompletion) (*Response, error) {
	out := &Response{}
	out.PromptTokens = int(resp.Usage.PromptTokens)
	out.CompletionTokens = int(resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return out, nil
	}
	choice := resp.Choices[0]
	out.FinishReason = string(choice.FinishReason)
	out.Text = choice.Message.Content

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal tool call arguments from OpenAI")
		}
		out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}

func convertTranscriptToOpenAI(entries []chat.TranscriptEntry) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	for _, e := range entries {
		switch e.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(e.Content))
		case "assistant":
			if len(e.ToolCalls) == 0 {
				msgs = append(msgs, openai.AssistantMessage(e.Content))
				continue
			}
			assistant := openai.ChatCompletionMessage{Role: "assistant", Content: e.Content}
			for _, tc := range e.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					// A call that cannot round-trip is dropped from history
					// rather than poisoning the whole request.
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			msgs = append(msgs, assistant.ToParam())
		case "tool":
			msgs = append(msgs, openai.ToolMessage(e.Content, e.ToolCallID))
		default:
			msgs = append(msgs, openai.UserMessage(e.Content))
		}
	}
	return msgs
}

func convertSchemasToOpenAI(schemas []ToolSchema) []openai.ChatCompletionToolUnionParam {
	if len(schemas) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, s := range schemas {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters:  openai.FunctionParameters(s.Parameters),
		}))
	}
	return out
}
