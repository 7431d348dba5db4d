package image

import (
	"context"
	"fmt"

	"thumbgen/internal/providers/genai"
)

type geminiImageClient interface {
	GenerateImage(ctx context.Context, req genai.ImageRequest) (*genai.ImageAsset, error)
}

// GeminiGenerator adapts the Gemini REST client to Generator. Like the Qwen
// adapter it retries once on a transient API error.
type GeminiGenerator struct {
	client geminiImageClient
}

func NewGeminiGenerator(client geminiImageClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Name() string { return ProviderGemini }

func (g *GeminiGenerator) GenerateBaseImage(ctx context.Context, req BaseRequest) (*BaseImage, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("gemini generator not configured")
	}
	imageReq := genai.ImageRequest{
		Prompt:      ScenePrompt(req.Plan, req.Palette),
		AspectRatio: "16:9",
		RequestID:   req.VariantID,
	}
	asset, err := g.client.GenerateImage(ctx, imageReq)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		asset, err = g.client.GenerateImage(ctx, imageReq)
	}
	if err != nil {
		return nil, err
	}
	return &BaseImage{Data: asset.Data, MIMEType: asset.Format, Width: asset.Width, Height: asset.Height}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
