// Package qwen talks to the DashScope multimodal generation endpoint that
// serves Qwen text-to-image models.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"thumbgen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("qwen: api key is required")

const (
	// LandscapeSize is the closest 16:9 size the model supports.
	LandscapeSize = "1664*928"

	defaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultModel   = "qwen-image-plus"
	generatePath   = "/services/aigc/multimodal-generation/generation"

	// maxImageBytes bounds the download of a generated image.
	maxImageBytes = 16 << 20
)

// StatusError carries the HTTP status of a failed generation or download.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("qwen: status %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("qwen: status %d: %s", e.Status, e.Message)
}

// Transient reports whether retrying the same request may succeed.
func (e *StatusError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

type Client struct {
	apiKey       string
	endpoint     string
	model        string
	promptExtend bool
	watermark    bool
	http         *http.Client
	logger       *infra.Logger
}

// ImageRequest describes one landscape base image.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
	RequestID      string
}

// ImageAsset is a downloaded image with its sniffed MIME type.
type ImageAsset struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size"`
	PromptExtend   bool   `json:"prompt_extend"`
	Watermark      bool   `json:"watermark"`
	Seed           *int   `json:"seed,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("qwen: invalid base url: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		endpoint:     baseURL + generatePath,
		model:        model,
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		http:         httpClient,
		logger:       logger,
	}, nil
}

func (c *Client) Model() string { return c.model }

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool { return c.apiKey != "" }

// GenerateImage runs one generation call and downloads the first image it
// returns. Retries are left to the caller; see StatusError.Transient.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	payload, err := c.buildPayload(req)
	if err != nil {
		return nil, err
	}
	decoded, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	imageURL := firstImageURL(decoded)
	if imageURL == "" {
		return nil, errors.New("qwen: response carried no image")
	}
	data, format, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	width, height := decoded.Usage.Width, decoded.Usage.Height
	if width == 0 || height == 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", decoded.RequestID).
		Str("client_request_id", req.RequestID).
		Int("bytes", len(data)).
		Msg("qwen: base image downloaded")
	return &ImageAsset{URL: imageURL, Data: data, Format: format, Width: width, Height: height}, nil
}

func (c *Client) buildPayload(req ImageRequest) (generationRequest, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return generationRequest{}, errors.New("qwen: prompt is required")
	}
	size := strings.TrimSpace(req.Size)
	if size == "" {
		size = LandscapeSize
	}
	params := generationParams{
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Size:           size,
		PromptExtend:   c.promptExtend,
		Watermark:      c.watermark,
	}
	if req.Seed > 0 {
		seed := req.Seed
		params.Seed = &seed
	}
	return generationRequest{
		Model: c.model,
		Input: generationInput{Messages: []generationMessage{{
			Role:    "user",
			Content: []generationContent{{Text: prompt}},
		}}},
		Parameters: params,
	}, nil
}

func (c *Client) post(ctx context.Context, payload generationRequest) (*generationResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}

	var decoded generationResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		statusErr := &StatusError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if decodeErr == nil && decoded.Message != "" {
			statusErr.Code, statusErr.Message = decoded.Code, decoded.Message
		}
		return nil, statusErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, &StatusError{Status: resp.StatusCode, Code: decoded.Code, Message: decoded.Message}
	}
	return &decoded, nil
}

// download fetches the generated image and sniffs its type; the CDN header is
// only trusted when the body itself is not recognisable.
func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return nil, "", fmt.Errorf("qwen: invalid image url %q", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: build download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &StatusError{Status: resp.StatusCode, Message: "image download failed"}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("qwen: read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("qwen: image exceeds %d bytes", maxImageBytes)
	}

	format := http.DetectContentType(data)
	if !strings.HasPrefix(format, "image/") {
		header := resp.Header.Get("Content-Type")
		if !strings.HasPrefix(header, "image/") {
			return nil, "", fmt.Errorf("qwen: downloaded body is %s, not an image", format)
		}
		format = header
	}
	return data, format, nil
}

func firstImageURL(resp *generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if u := strings.TrimSpace(content.Image); u != "" {
				return u
			}
		}
	}
	return ""
}
