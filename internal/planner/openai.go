package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
)

const (
	openAIDefaultTimeout = 45 * time.Second
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIOptions configure any OpenAI-compatible chat completions endpoint.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Catalog      *catalog.Catalog
	Logger       *infra.Logger
}

type OpenAIPlanner struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	catalog      *catalog.Catalog
	logger       zerolog.Logger
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAIPlanner(opts OpenAIOptions) (*OpenAIPlanner, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &OpenAIPlanner{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        coalesce(opts.Model, defaultOpenAIModel),
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		catalog:      cat,
		logger:       logger.With().Str("planner", ProviderOpenAI).Logger(),
	}, nil
}

func (o *OpenAIPlanner) Name() string { return ProviderOpenAI }

func (o *OpenAIPlanner) GeneratePlans(ctx context.Context, input domain.JobInput, desiredCount int) ([]domain.ConceptPlan, error) {
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: 0.9,
		ResponseFormat: &openAIFormat{
			Type: "json_object",
		},
		Messages: []openAIMessage{
			{Role: "system", Content: "You plan video thumbnails and only respond with valid JSON."},
			{Role: "user", Content: buildPlanPrompt(input, desiredCount, o.catalog)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, providerError(ProviderOpenAI, "encode_request", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, providerError(ProviderOpenAI, "build_request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, providerError(ProviderOpenAI, "http_request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, providerError(ProviderOpenAI, fmt.Sprintf("http_%d", resp.StatusCode), nil)
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, providerError(ProviderOpenAI, "decode_response", err)
	}
	if len(out.Choices) == 0 {
		return nil, providerError(ProviderOpenAI, "empty_choices", nil)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return nil, providerError(ProviderOpenAI, "empty_response", nil)
	}
	raw, err := parsePlans(text)
	if err != nil {
		o.logger.Warn().Err(err).Msg("planner: unparsable openai response")
		return nil, err
	}
	return finalizePlans(raw, o.catalog, desiredCount)
}
