package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/mkale/sleuth/chat"
	"github.com/mkale/sleuth/errors"
	"google.golang.org/api/option"
)

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds a client from GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := g.client.GenerativeModel(req.Model)
	temp := float32(req.Temperature)
	model.Temperature = &temp
	if req.MaxTokens != nil {
		max := int32(*req.MaxTokens)
		model.MaxOutputTokens = &max
	}
	model.Tools = convertSchemasToGemini(req.Tools)

	history, system := convertTranscriptToGemini(req.Transcript)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(history) == 0 {
		return nil, errors.New("cannot complete an empty transcript")
	}

	// The last content is the new turn; everything before it is history.
	cs := model.StartChat()
	cs.History = history[:len(history)-1]
	resp, err := cs.SendMessage(ctx, history[len(history)-1].Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}
	return processGeminiResponse(resp)
}

func convertSchemasToGemini(schemas []ToolSchema) []*genai.Tool {
	if len(schemas) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, s := range schemas {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		if props, ok := s.Parameters["properties"].(map[string]any); ok {
			for name, raw := range props {
				prop := &genai.Schema{Type: genai.TypeString}
				if m, ok := raw.(map[string]any); ok {
					if desc, ok := m["description"].(string); ok {
						prop.Description = desc
					}
				}
				schema.Properties[name] = prop
			}
		}
		if required, ok := s.Parameters["required"].([]string); ok {
			schema.Required = required
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertTranscriptToGemini(entries []chat.TranscriptEntry) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system string

	for _, e := range entries {
		switch e.Role {
		case "system":
			system = e.Content
		case "assistant":
			var parts []genai.Part
			if e.Content != "" {
				parts = append(parts, genai.Text(e.Content))
			}
			for _, tc := range e.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case "tool":
			// Gemini correlates results by function name, not call id.
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     e.ToolName,
					Response: map[string]any{"content": e.Content},
				}},
			})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(e.Content)}})
		}
	}
	return contents, system
}

func processGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	out := &Response{}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	cand := resp.Candidates[0]
	out.FinishReason = cand.FinishReason.String()

	n := 0
	for _, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			out.Text += string(v)
		case genai.FunctionCall:
			// Gemini issues no call ids; synthesize stable ones so the
			// transcript correlation works the same across providers.
			n++
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{
				ID:   fmt.Sprintf("%s-%d", v.Name, n),
				Name: v.Name,
				Args: v.Args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}
	return out, nil
}
