package insights

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-consolidation/internal/logger"
	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator generates text with Gemini through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator. Credentials come from the
// environment (GEMINI_API_KEY or Vertex AI settings).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       genai.Ptr[float32](1.0),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

// Report is a generated narrative and its parsed sections.
type Report struct {
	Summary  *Summary
	Prompt   string
	Raw      string
	Sections []Section
}

// Summarizer turns a yearly summary into a sectioned narrative.
type Summarizer struct {
	gen Generator
}

func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Summarize prompts the generator with s. A response without any
// recognizable section is an error.
func (z *Summarizer) Summarize(ctx context.Context, s *Summary) (*Report, error) {
	log := logger.FromContext(ctx)

	prompt := BuildPrompt(s)
	raw, err := z.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}
	if raw == "" {
		return nil, fmt.Errorf("Summarize: empty response from model")
	}

	sections := ParseSections(raw)
	if len(sections) == 0 {
		return nil, fmt.Errorf("Summarize: no sections in model response")
	}

	log.Info().
		Int("year", s.Year).
		Int("sections", len(sections)).
		Msg("Insights generated")

	return &Report{Summary: s, Prompt: prompt, Raw: raw, Sections: sections}, nil
}
