package image

import (
	"context"
	"fmt"
	"strings"

	"thumbgen/internal/domain"
)

const (
	ProviderGemini    = "gemini"
	ProviderQwen      = "qwen"
	ProviderSynthetic = "synthetic"
)

// NegativePrompt steers models away from artefacts the compositor covers.
const NegativePrompt = "text, letters, words, captions, logos, watermark, signature, low quality, blurry, distorted"

// BaseRequest asks for the text-free scene of one planned variant.
type BaseRequest struct {
	JobID     string
	VariantID string
	Plan      domain.ConceptPlan
	Palette   string
}

// BaseImage is an encoded scene image.
type BaseImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Generator produces one base image per call. An error means no image; the
// caller decides how to degrade.
type Generator interface {
	GenerateBaseImage(ctx context.Context, req BaseRequest) (*BaseImage, error)
	Name() string
}

// ScenePrompt renders the plan's visual story as an image prompt. Overlay
// copy is deliberately left out so the model does not draw text.
func ScenePrompt(plan domain.ConceptPlan, palette string) string {
	story := plan.Story
	var lines []string
	lines = append(lines, fmt.Sprintf("Photorealistic YouTube thumbnail background: %s.", strings.TrimSpace(story.Scene)))
	if story.Camera != "" {
		lines = append(lines, fmt.Sprintf("Camera: %s.", story.Camera))
	}
	if story.Emotion != "" {
		lines = append(lines, fmt.Sprintf("Mood: %s.", story.Emotion))
	}
	if palette != "" {
		lines = append(lines, fmt.Sprintf("Colour palette: %s, high contrast.", palette))
	}
	lines = append(lines, "Leave clean negative space for a headline. Absolutely no text, letters, numbers or logos anywhere in the image.")
	return strings.Join(lines, " ")
}
