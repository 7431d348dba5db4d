package planner

import (
	"context"
	"fmt"
	"strings"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// Planner turns a job request into candidate concept plans.
//
// A call either returns a fully validated set or an error; partial sets are
// never returned.
type Planner interface {
	GeneratePlans(ctx context.Context, input domain.JobInput, desiredCount int) ([]domain.ConceptPlan, error)
	Name() string
}

type modelPlan struct {
	ConceptID   string `json:"concept_id"`
	Scene       string `json:"scene"`
	Camera      string `json:"camera"`
	Emotion     string `json:"emotion"`
	OverlayText string `json:"overlay_text"`
	Badge       string `json:"badge"`
	Arrow       string `json:"arrow"`
}

type modelPlanPayload struct {
	Plans []modelPlan `json:"plans"`
}

// finalizePlans validates every raw plan against the catalog and trims the
// set to desired. Any invalid plan rejects the whole batch.
func finalizePlans(raw []modelPlan, cat *catalog.Catalog, desired int) ([]domain.ConceptPlan, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: provider returned no plans", domain.ErrMalformedPlan)
	}
	plans := make([]domain.ConceptPlan, 0, len(raw))
	for i, p := range raw {
		plan := domain.ConceptPlan{
			ConceptID: strings.TrimSpace(p.ConceptID),
			Story: domain.VisualStory{
				Scene:       strings.TrimSpace(p.Scene),
				Camera:      strings.TrimSpace(p.Camera),
				Emotion:     strings.TrimSpace(p.Emotion),
				OverlayText: strings.TrimSpace(p.OverlayText),
				Badge:       strings.TrimSpace(p.Badge),
				Arrow:       normalizeArrow(p.Arrow),
			},
		}
		if err := plan.Validate(); err != nil {
			return nil, fmt.Errorf("plan %d: %w", i, err)
		}
		if !cat.Has(plan.ConceptID) {
			return nil, fmt.Errorf("%w: plan %d names unknown concept %q", domain.ErrMalformedPlan, i, plan.ConceptID)
		}
		plans = append(plans, plan)
	}
	if desired > 0 && len(plans) > desired {
		plans = plans[:desired]
	}
	return plans, nil
}

func normalizeArrow(raw string) domain.ArrowDirection {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "none", "null":
		return domain.ArrowNone
	default:
		return domain.ArrowDirection(v)
	}
}

func providerError(provider, reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s %s", domain.ErrProviderFailure, provider, reason)
	}
	return fmt.Errorf("%w: %s %s: %v", domain.ErrProviderFailure, provider, reason, err)
}

// Config selects and configures a planner provider.
type Config struct {
	Provider string
	Gemini   GeminiOptions
	OpenAI   OpenAIOptions
	Catalog  *catalog.Catalog
}

// New builds the configured planner. Missing credentials are an error; the
// static planner is only used when it is the configured provider.
func New(ctx context.Context, cfg Config) (Planner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini, "":
		opts := cfg.Gemini
		opts.Catalog = cfg.Catalog
		return NewGeminiPlanner(ctx, opts)
	case ProviderOpenAI, "groq":
		opts := cfg.OpenAI
		opts.Catalog = cfg.Catalog
		return NewOpenAIPlanner(opts)
	case ProviderStatic:
		return NewStaticPlanner(cfg.Catalog), nil
	default:
		return nil, fmt.Errorf("unsupported planner provider %q", cfg.Provider)
	}
}
