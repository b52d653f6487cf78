package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemInstruction = `You are a research assistant that compiles web search results for another agent.
Use ONLY the provided context. Be thorough and concrete; include step-by-step
instructions where the question calls for them. If the context does not cover
the question, say so instead of inventing an answer.
After the answer, list every source you actually drew on, one per line, as:
* <url>`

// Generator produces grounded summaries with the Gemini chat model. The
// model's claimed citations are not trusted; the search feature verifies them
// against the retrieved context before anything reaches a caller.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Generator, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: "gemini-2.5-flash"}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	slog.DebugContext(ctx, "generating summary", "model", g.model, "prompt_length", len(prompt))

	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err)
		return "", err
	}

	text := collectText(resp)
	if text == "" {
		return "", errors.New("model returned no text candidates")
	}
	return text, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}

func (g *Generator) Close() error {
	return g.client.Close()
}
