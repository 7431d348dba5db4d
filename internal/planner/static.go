package planner

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

var (
	staticCameras  = []string{"tight close-up", "low angle wide shot", "eye-level medium shot", "overhead flat lay"}
	staticEmotions = []string{"surprise", "curiosity", "confidence", "urgency", "delight"}
	staticArrows   = []domain.ArrowDirection{domain.ArrowNone, domain.ArrowRight, domain.ArrowUp, domain.ArrowLeft, domain.ArrowDown}
	staticBadges   = []string{"", "NEW", "", "TOP", ""}
)

// StaticPlanner builds plans locally from the catalog. It is selected by
// configuration when no model provider is available.
type StaticPlanner struct {
	catalog *catalog.Catalog
}

func NewStaticPlanner(cat *catalog.Catalog) *StaticPlanner {
	if cat == nil {
		cat = catalog.Default()
	}
	return &StaticPlanner{catalog: cat}
}

func (s *StaticPlanner) Name() string { return ProviderStatic }

func (s *StaticPlanner) GeneratePlans(ctx context.Context, input domain.JobInput, desiredCount int) ([]domain.ConceptPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if desiredCount < 1 {
		desiredCount = 1
	}
	concepts := s.catalog.All()
	seed := titleSeed(input.Title)
	subject := coalesce(input.Topic, input.Title)
	overlay := headline(input.Title)

	raw := make([]modelPlan, 0, desiredCount)
	for i := 0; i < desiredCount; i++ {
		concept := concepts[(seed+i)%len(concepts)]
		raw = append(raw, modelPlan{
			ConceptID:   concept.ID,
			Scene:       fmt.Sprintf("%s, featuring %s", concept.Description, subject),
			Camera:      staticCameras[(seed+i)%len(staticCameras)],
			Emotion:     staticEmotions[(seed+i)%len(staticEmotions)],
			OverlayText: overlay,
			Badge:       staticBadges[i%len(staticBadges)],
			Arrow:       string(staticArrows[i%len(staticArrows)]),
		})
	}
	return finalizePlans(raw, s.catalog, desiredCount)
}

func titleSeed(title string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	return int(h.Sum32() % 1024)
}

// headline keeps the first four words of the title.
func headline(title string) string {
	words := strings.Fields(title)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return "Watch This"
	}
	return strings.Join(words, " ")
}
