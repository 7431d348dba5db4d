package ranking

import (
	"strings"
	"testing"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := catalog.New([]catalog.Concept{
		{ID: "a", Rarity: 0.5},
		{ID: "b", Rarity: 0.5},
		{ID: "c", Rarity: 0.5},
	})
	if err != nil {
		t.Fatalf("catalog.New returned error: %v", err)
	}
	return NewEngine(cat)
}

func plan(concept string, sceneWords int) domain.ConceptPlan {
	return domain.ConceptPlan{
		ConceptID: concept,
		Story: domain.VisualStory{
			Scene:       strings.TrimSpace(strings.Repeat("word ", sceneWords)),
			OverlayText: "Big Win",
		},
	}
}

func TestScoreIsDeterministicAndBounded(t *testing.T) {
	e := NewEngine(nil)
	p := domain.ConceptPlan{
		ConceptID: "big_number",
		Story: domain.VisualStory{
			Scene:       "a towering stack of gold coins on a kitchen table at night",
			Camera:      "low angle",
			Emotion:     "awe",
			OverlayText: "$10K in 30 days",
			Badge:       "NEW",
			Arrow:       domain.ArrowUp,
		},
	}
	first := e.Score(p)
	second := e.Score(p)
	if first != second {
		t.Fatalf("score not deterministic: %+v vs %+v", first, second)
	}
	if first.Total <= 0 || first.Total > 1 {
		t.Fatalf("total out of range: %v", first.Total)
	}
	if first.Components.Clarity != 1 {
		t.Fatalf("clarity = %v, want 1", first.Components.Clarity)
	}
}

func TestScorePenalisesLongOverlay(t *testing.T) {
	e := NewEngine(nil)
	short := plan("versus", 8)
	long := plan("versus", 8)
	long.Story.OverlayText = "this overlay has far too many words to read at a glance"
	if e.Score(short).Components.Legibility <= e.Score(long).Components.Legibility {
		t.Fatal("expected short overlay to be more legible")
	}
}

func TestEnforceDiversityBound(t *testing.T) {
	e := testEngine(t)
	concepts := []string{"a", "b", "c"}
	var plans []domain.ConceptPlan
	for i := 0; i < 20; i++ {
		plans = append(plans, plan(concepts[(i*7)%3], 1+(i*5)%9))
	}
	for k := 1; k <= 4; k++ {
		admitted := e.EnforceDiversity(plans, k)
		counts := map[string]int{}
		for _, p := range admitted {
			counts[p.ConceptID]++
			if counts[p.ConceptID] > k {
				t.Fatalf("k=%d: concept %s admitted %d times", k, p.ConceptID, counts[p.ConceptID])
			}
		}
		// no rejected plan outscores an admitted plan of the same concept
		lowest := map[string]float64{}
		for _, p := range admitted {
			s := e.Score(p).Total
			if cur, ok := lowest[p.ConceptID]; !ok || s < cur {
				lowest[p.ConceptID] = s
			}
		}
		for concept, n := range counts {
			if n < k {
				continue
			}
			for _, p := range plans {
				if p.ConceptID != concept {
					continue
				}
				if e.Score(p).Total > lowest[concept] && !containsPlan(admitted, p) {
					t.Fatalf("k=%d: higher scoring %s plan rejected", k, concept)
				}
			}
		}
	}
}

func containsPlan(plans []domain.ConceptPlan, target domain.ConceptPlan) bool {
	for _, p := range plans {
		if p == target {
			return true
		}
	}
	return false
}

func TestSelectFiveOfEightAcrossThreeConcepts(t *testing.T) {
	e := testEngine(t)
	plans := []domain.ConceptPlan{
		plan("a", 6), // 0
		plan("a", 5), // 1
		plan("a", 4), // 2
		plan("b", 3), // 3
		plan("b", 2), // 4
		plan("b", 6), // 5
		plan("c", 1), // 6
		plan("c", 5), // 7
	}
	got := e.Select(plans, 2, 5)
	if len(got) != 5 {
		t.Fatalf("selected %d plans, want 5", len(got))
	}
	want := []domain.ConceptPlan{plans[0], plans[5], plans[1], plans[7], plans[3]}
	counts := map[string]int{}
	for i, r := range got {
		if r.Rank != i+1 {
			t.Fatalf("rank[%d] = %d", i, r.Rank)
		}
		if r.Plan != want[i] {
			t.Fatalf("position %d = %+v, want %+v", i, r.Plan, want[i])
		}
		if i > 0 && r.Score.Total > got[i-1].Score.Total {
			t.Fatalf("scores not descending at %d", i)
		}
		counts[r.Plan.ConceptID]++
	}
	for concept, n := range counts {
		if n > 2 {
			t.Fatalf("concept %s selected %d times", concept, n)
		}
	}
}

func TestRankTieBreakKeepsPlannerOrder(t *testing.T) {
	e := testEngine(t)
	first := plan("a", 8)
	second := plan("b", 8)
	third := plan("c", 8)
	ranked := e.Rank([]domain.ConceptPlan{first, second, third})
	if ranked[0].Plan != first || ranked[1].Plan != second || ranked[2].Plan != third {
		t.Fatalf("tie order not stable: %+v", ranked)
	}
}

func TestRankedMetadata(t *testing.T) {
	cat := catalog.Default()
	r := Ranked{Plan: plan("big_number", 6), Score: domain.Score{Total: 0.7}, Rank: 2}
	meta := r.Metadata(cat)
	if meta.ConceptName != "Big Number" || meta.Rank != 2 || meta.Score != 0.7 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}
