package compositor

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thumbgen/internal/domain"
)

const (
	// Width and Height are the fixed output dimensions (16:9).
	Width  = 1280
	Height = 720
)

// Layout names where the headline block sits.
type Layout string

const (
	LayoutLeft   Layout = "left"
	LayoutRight  Layout = "right"
	LayoutTop    Layout = "top"
	LayoutBottom Layout = "bottom"
)

// RenderSpec is everything the compositor needs for one variant. It is
// derived once at planning time and stored with the variant.
type RenderSpec struct {
	ConceptID string                `json:"concept_id"`
	Headline  string                `json:"headline"`
	Badge     string                `json:"badge,omitempty"`
	Arrow     domain.ArrowDirection `json:"arrow,omitempty"`
	Layout    Layout                `json:"layout"`
	Palette   string                `json:"palette"`
}

// SpecFromPlan builds the overlay spec for plan. The headline is upper-cased
// using the job locale.
func SpecFromPlan(plan domain.ConceptPlan, layout, palette, locale string) RenderSpec {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	upper := cases.Upper(tag)
	spec := RenderSpec{
		ConceptID: plan.ConceptID,
		Headline:  upper.String(collapseSpaces(plan.Story.OverlayText)),
		Badge:     upper.String(collapseSpaces(plan.Story.Badge)),
		Arrow:     plan.Story.Arrow,
		Layout:    normalizeLayout(layout),
		Palette:   strings.ToLower(strings.TrimSpace(palette)),
	}
	if _, ok := palettes[spec.Palette]; !ok {
		spec.Palette = defaultPalette
	}
	return spec
}

// DecodeSpec parses a persisted spec.
func DecodeSpec(raw []byte) (RenderSpec, error) {
	var spec RenderSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return RenderSpec{}, fmt.Errorf("decode render spec: %w", err)
	}
	spec.Layout = normalizeLayout(string(spec.Layout))
	if _, ok := palettes[spec.Palette]; !ok {
		spec.Palette = defaultPalette
	}
	return spec, nil
}

func normalizeLayout(layout string) Layout {
	switch l := Layout(strings.ToLower(strings.TrimSpace(layout))); l {
	case LayoutLeft, LayoutRight, LayoutTop, LayoutBottom:
		return l
	default:
		return LayoutLeft
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
