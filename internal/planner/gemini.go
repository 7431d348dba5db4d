package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
)

const defaultGeminiModel = "gemini-1.5-flash"

type GeminiOptions struct {
	APIKey  string
	Model   string
	Catalog *catalog.Catalog
	Logger  *infra.Logger
}

// GeminiPlanner asks Gemini for plans constrained by a JSON response schema.
type GeminiPlanner struct {
	client   *genai.Client
	model    string
	catalog  *catalog.Catalog
	logger   zerolog.Logger
	generate func(ctx context.Context, prompt string) (string, error)
}

func NewGeminiPlanner(ctx context.Context, opts GeminiOptions) (*GeminiPlanner, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p := newGeminiPlanner(opts)
	p.client = client
	p.generate = p.generateContent
	return p, nil
}

func newGeminiPlanner(opts GeminiOptions) *GeminiPlanner {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &GeminiPlanner{
		model:   coalesce(opts.Model, defaultGeminiModel),
		catalog: cat,
		logger:  logger.With().Str("planner", ProviderGemini).Logger(),
	}
}

func (p *GeminiPlanner) Name() string { return ProviderGemini }

// Close releases the underlying client.
func (p *GeminiPlanner) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiPlanner) GeneratePlans(ctx context.Context, input domain.JobInput, desiredCount int) ([]domain.ConceptPlan, error) {
	prompt := strings.ToValidUTF8(buildPlanPrompt(input, desiredCount, p.catalog), "")
	text, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, providerError(ProviderGemini, "generate", err)
	}
	raw, err := parsePlans(text)
	if err != nil {
		p.logger.Warn().Err(err).Int("response_len", len(text)).Msg("planner: unparsable gemini response")
		return nil, err
	}
	plans, err := finalizePlans(raw, p.catalog, desiredCount)
	if err != nil {
		return nil, err
	}
	p.logger.Debug().Int("plans", len(plans)).Int("desired", desiredCount).Msg("planner: gemini plans ready")
	return plans, nil
}

func (p *GeminiPlanner) generateContent(ctx context.Context, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = planSchema(p.catalog)
	model.SetTemperature(0.9)
	model.SetTopP(0.95)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("empty response from gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content (finish_reason=%v)", candidate.FinishReason)
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini returned no text parts")
	}
	return sb.String(), nil
}

func planSchema(cat *catalog.Catalog) *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"plans": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"concept_id":   {Type: genai.TypeString, Enum: cat.IDs()},
						"scene":        {Type: genai.TypeString, Description: "photographic scene with no text in it"},
						"camera":       {Type: genai.TypeString},
						"emotion":      {Type: genai.TypeString},
						"overlay_text": {Type: genai.TypeString, Description: "headline of at most five words"},
						"badge":        {Type: genai.TypeString},
						"arrow":        {Type: genai.TypeString, Enum: []string{"", "left", "right", "up", "down"}},
					},
					Required: []string{"concept_id", "scene", "overlay_text"},
				},
			},
		},
		Required: []string{"plans"},
	}
}
