package ranking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

const (
	weightClarity    = 0.40
	weightLegibility = 0.35
	weightNovelty    = 0.25

	defaultRarity = 0.5
)

// Ranked is a plan with its score and 1-based rank.
type Ranked struct {
	Plan  domain.ConceptPlan
	Score domain.Score
	Rank  int
}

// Metadata returns the observability fields persisted with the plan.
func (r Ranked) Metadata(cat *catalog.Catalog) domain.PlanMetadata {
	name := r.Plan.ConceptID
	if cat != nil {
		name = cat.DisplayName(r.Plan.ConceptID)
	}
	return domain.PlanMetadata{Score: r.Score.Total, Rank: r.Rank, ConceptName: name}
}

// Engine scores and selects candidate plans. It performs no I/O.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(cat *catalog.Catalog) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{catalog: cat}
}

// Score computes a weighted heuristic over clarity, legibility and novelty.
func (e *Engine) Score(plan domain.ConceptPlan) domain.Score {
	components := domain.ScoreComponents{
		Clarity:    clarity(plan.Story),
		Legibility: legibility(plan.Story),
		Novelty:    e.novelty(plan),
	}
	total := weightClarity*components.Clarity +
		weightLegibility*components.Legibility +
		weightNovelty*components.Novelty
	return domain.Score{Total: total, Components: components}
}

// EnforceDiversity walks plans by descending score and drops any plan
// whose concept already has maxPerConcept admitted plans. Ties keep the
// input order. A non-positive maxPerConcept disables the bound.
func (e *Engine) EnforceDiversity(plans []domain.ConceptPlan, maxPerConcept int) []domain.ConceptPlan {
	scored := e.scoreAll(plans)
	sortByScore(scored)

	admitted := make([]domain.ConceptPlan, 0, len(plans))
	perConcept := make(map[string]int)
	for _, item := range scored {
		id := item.Plan.ConceptID
		if maxPerConcept > 0 && perConcept[id] >= maxPerConcept {
			continue
		}
		perConcept[id]++
		admitted = append(admitted, item.Plan)
	}
	return admitted
}

// Rank scores plans, sorts them by descending total and assigns ranks.
func (e *Engine) Rank(plans []domain.ConceptPlan) []Ranked {
	ranked := e.scoreAll(plans)
	sortByScore(ranked)
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Select applies diversity, ranks the survivors and keeps the first limit.
func (e *Engine) Select(plans []domain.ConceptPlan, maxPerConcept, limit int) []Ranked {
	ranked := e.Rank(e.EnforceDiversity(plans, maxPerConcept))
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (e *Engine) scoreAll(plans []domain.ConceptPlan) []Ranked {
	out := make([]Ranked, len(plans))
	for i, plan := range plans {
		out[i] = Ranked{Plan: plan, Score: e.Score(plan)}
	}
	return out
}

func sortByScore(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score.Total > items[j].Score.Total
	})
}

func (e *Engine) novelty(plan domain.ConceptPlan) float64 {
	rarity := defaultRarity
	if concept, ok := e.catalog.Get(plan.ConceptID); ok {
		rarity = concept.Rarity
	}
	devices := 0.0
	if strings.TrimSpace(plan.Story.Badge) != "" {
		devices += 0.5
	}
	if plan.Story.Arrow != domain.ArrowNone {
		devices += 0.5
	}
	return clamp01(0.8*rarity + 0.2*devices)
}

// clarity rewards a concrete scene description with framing cues.
func clarity(story domain.VisualStory) float64 {
	fit := rangeFit(wordCount(story.Scene), 6, 18)
	score := 0.8 * fit
	if strings.TrimSpace(story.Camera) != "" {
		score += 0.1
	}
	if strings.TrimSpace(story.Emotion) != "" {
		score += 0.1
	}
	return clamp01(score)
}

// legibility favours short overlays that read at thumbnail size.
func legibility(story domain.VisualStory) float64 {
	words := wordCount(story.OverlayText)
	var score float64
	switch {
	case words == 0:
		return 0
	case words <= 4:
		score = 1
	case words == 5:
		score = 0.8
	case words == 6:
		score = 0.6
	default:
		score = 0.3
	}
	if utf8.RuneCountInString(strings.TrimSpace(story.OverlayText)) > 28 {
		score -= 0.2
	}
	if utf8.RuneCountInString(strings.TrimSpace(story.Badge)) > 12 {
		score -= 0.1
	}
	return clamp01(score)
}

func rangeFit(n, lo, hi int) float64 {
	switch {
	case n <= 0:
		return 0
	case n < lo:
		return float64(n) / float64(lo)
	case n <= hi:
		return 1
	default:
		over := float64(n-hi) / float64(hi)
		return clamp01(1 - over)
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
