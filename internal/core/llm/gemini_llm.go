package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Client exposes the underlying SDK client so the file store can share one
// connection and API key.
func (g *GeminiLLM) Client() *genai.Client { return g.client }

// GenerateContent sends the ordered prompt parts (inline text and remote
// file references) to the model and returns the concatenated text of the
// first candidate.
func (g *GeminiLLM) GenerateContent(ctx context.Context, parts []models.PromptPart) (string, error) {
	if len(parts) == 0 {
		return "", core.E(core.KindInvalidInput, "no prompt parts")
	}

	m := g.client.GenerativeModel(g.modelName)

	in := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsFile() {
			in = append(in, genai.FileData{MIMEType: p.MIMEType, URI: p.FileURI})
			continue
		}
		in = append(in, genai.Text(p.Text))
	}

	resp, err := m.GenerateContent(ctx, in...)
	if err != nil {
		if core.IsRateLimited(err) {
			return "", core.WrapErr(core.KindRateLimited, err, "gemini generate")
		}
		return "", core.WrapErr(core.KindUpstreamFailure, err, "gemini generate")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// Ping performs a minimal generation round-trip for connectivity probes.
func (g *GeminiLLM) Ping(ctx context.Context) error {
	out, err := g.GenerateContent(ctx, []models.PromptPart{models.TextPart("Reply with the single word OK.")})
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Errorf("gemini returned empty response")
	}
	return nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
