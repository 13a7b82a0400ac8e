package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/errors"
)

// BedrockClient runs Anthropic models through AWS Bedrock InvokeModel.
// Credentials come from the standard AWS environment/profile chain.
type BedrockClient struct {
	client *bedrockruntime.Client
}

func NewBedrockClient(ctx context.Context) (*BedrockClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	return &BedrockClient{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (b *BedrockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	body, err := buildBedrockRequest(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build Bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(req.Model),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}
	return processBedrockResponse(resp.Body)
}

// buildBedrockRequest assembles the Anthropic-on-Bedrock JSON body from the
// transcript. The wire shape mirrors the Messages API.
func buildBedrockRequest(req Request) ([]byte, error) {
	var messages []map[string]any
	var system string

	for _, e := range req.Transcript {
		switch e.Role {
		case "system":
			system = e.Content
		case "user":
			messages = append(messages, map[string]any{
				"role":    "user",
				"content": []map[string]any{{"type": "text", "text": e.Content}},
			})
		case "assistant":
			var blocks []map[string]any
			if e.Content != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": e.Content})
			}
			for _, tc := range e.ToolCalls {
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Args,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, map[string]any{"role": "assistant", "content": blocks})
		case "tool":
			messages = append(messages, map[string]any{
				"role": "user",
				"content": []map[string]any{{
					"type":        "tool_result",
					"tool_use_id": e.ToolCallID,
					"content":     e.Content,
				}},
			})
		}
	}

	maxTokens := int64(anthropicDefaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	request := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"temperature":       req.Temperature,
		"messages":          messages,
	}
	if system != "" {
		request["system"] = system
	}
	if len(req.Tools) > 0 {
		var tools []map[string]any
		for _, s := range req.Tools {
			tools = append(tools, map[string]any{
				"name":         s.Name,
				"description":  s.Description,
				"input_schema": s.Parameters,
			})
		}
		request["tools"] = tools
	}

	return json.Marshal(request)
}

func processBedrockResponse(body []byte) (*Response, error) {
	var response struct {
		Content []struct {
			Type  string          `json:"type"`
			Text  string          `json:"text"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}
	if response.Error != nil {
		return nil, errors.New("Bedrock API error: %v", response.Error)
	}

	out := &Response{
		FinishReason:     response.StopReason,
		PromptTokens:     response.Usage.InputTokens,
		CompletionTokens: response.Usage.OutputTokens,
	}
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			var args map[string]any
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					return nil, errors.Wrapf(err, "failed to unmarshal tool input from Bedrock")
				}
			}
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{ID: block.ID, Name: block.Name, Args: args})
		}
	}
	return out, nil
}
