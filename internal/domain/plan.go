package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ArrowDirection points an overlay arrow at the subject.
type ArrowDirection string

const (
	ArrowNone  ArrowDirection = ""
	ArrowLeft  ArrowDirection = "left"
	ArrowRight ArrowDirection = "right"
	ArrowUp    ArrowDirection = "up"
	ArrowDown  ArrowDirection = "down"
)

// VisualStory is the structured description of one candidate thumbnail.
type VisualStory struct {
	Scene       string         `json:"scene"`
	Camera      string         `json:"camera"`
	Emotion     string         `json:"emotion"`
	OverlayText string         `json:"overlay_text"`
	Badge       string         `json:"badge,omitempty"`
	Arrow       ArrowDirection `json:"arrow,omitempty"`
}

// ConceptPlan is the planner's output for one candidate variant.
type ConceptPlan struct {
	ConceptID string      `json:"concept_id"`
	Story     VisualStory `json:"story"`
}

// Validate rejects plans downstream stages cannot render.
func (p ConceptPlan) Validate() error {
	if strings.TrimSpace(p.ConceptID) == "" {
		return fmt.Errorf("%w: concept_id is required", ErrMalformedPlan)
	}
	if strings.TrimSpace(p.Story.Scene) == "" {
		return fmt.Errorf("%w: scene is required for %s", ErrMalformedPlan, p.ConceptID)
	}
	if strings.TrimSpace(p.Story.OverlayText) == "" {
		return fmt.Errorf("%w: overlay_text is required for %s", ErrMalformedPlan, p.ConceptID)
	}
	switch p.Story.Arrow {
	case ArrowNone, ArrowLeft, ArrowRight, ArrowUp, ArrowDown:
	default:
		return fmt.Errorf("%w: unknown arrow %q", ErrMalformedPlan, p.Story.Arrow)
	}
	return nil
}

// ScoreComponents are the individual heuristic factors, each in [0,1].
type ScoreComponents struct {
	Clarity    float64 `json:"clarity"`
	Legibility float64 `json:"legibility"`
	Novelty    float64 `json:"novelty"`
}

// Score is computed during planning and never persisted on its own.
type Score struct {
	Total      float64         `json:"total"`
	Components ScoreComponents `json:"components"`
}

// PlanMetadata is embedded next to the plan for observability.
type PlanMetadata struct {
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	ConceptName string  `json:"concept_name"`
}

// PlanRecord is the shape persisted in Variant.PlanJSON.
type PlanRecord struct {
	Plan     ConceptPlan  `json:"plan"`
	Metadata PlanMetadata `json:"metadata"`
}

// DecodePlanRecord parses a persisted plan record.
func DecodePlanRecord(raw []byte) (PlanRecord, error) {
	var rec PlanRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return PlanRecord{}, fmt.Errorf("decode plan record: %w", err)
	}
	return rec, nil
}
