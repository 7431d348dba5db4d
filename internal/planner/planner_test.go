package planner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

var testInput = domain.JobInput{Title: "I built a cabin in 30 days", VariantCount: 4}

const twoPlans = `{"plans":[
 {"concept_id":"big_number","scene":"a finished log cabin at dusk","overlay_text":"30 DAYS","arrow":"Up"},
 {"concept_id":"before_after","scene":"empty clearing next to a finished cabin","overlay_text":"From Nothing","arrow":"none"}
]}`

func TestFinalizePlansRejectsWholeBatch(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		name string
		raw  []modelPlan
	}{
		{name: "empty", raw: nil},
		{name: "unknown concept", raw: []modelPlan{{ConceptID: "big_number", Scene: "s", OverlayText: "o"}, {ConceptID: "hologram", Scene: "s", OverlayText: "o"}}},
		{name: "missing overlay", raw: []modelPlan{{ConceptID: "big_number", Scene: "s"}}},
		{name: "bad arrow", raw: []modelPlan{{ConceptID: "big_number", Scene: "s", OverlayText: "o", Arrow: "sideways"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plans, err := finalizePlans(tc.raw, cat, 12)
			if !errors.Is(err, domain.ErrMalformedPlan) {
				t.Fatalf("expected ErrMalformedPlan, got %v", err)
			}
			if plans != nil {
				t.Fatalf("expected no partial plans, got %d", len(plans))
			}
		})
	}
}

func TestFinalizePlansTruncatesToDesired(t *testing.T) {
	raw := []modelPlan{
		{ConceptID: "versus", Scene: "a", OverlayText: "x"},
		{ConceptID: "versus", Scene: "b", OverlayText: "y"},
		{ConceptID: "versus", Scene: "c", OverlayText: "z"},
	}
	plans, err := finalizePlans(raw, catalog.Default(), 2)
	if err != nil {
		t.Fatalf("finalizePlans returned error: %v", err)
	}
	if len(plans) != 2 || plans[1].Story.Scene != "b" {
		t.Fatalf("unexpected plans: %+v", plans)
	}
}

func TestParsePlansAcceptsFencesAndArrays(t *testing.T) {
	fenced := "```json\n" + twoPlans + "\n```"
	plans, err := parsePlans(fenced)
	if err != nil || len(plans) != 2 {
		t.Fatalf("fenced: plans=%d err=%v", len(plans), err)
	}
	bare := `[{"concept_id":"versus","scene":"s","overlay_text":"o"}]`
	plans, err = parsePlans(bare)
	if err != nil || len(plans) != 1 {
		t.Fatalf("bare: plans=%d err=%v", len(plans), err)
	}
	if _, err := parsePlans("sorry, I cannot help"); !errors.Is(err, domain.ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestOpenAIPlannerGeneratePlans(t *testing.T) {
	var gotAuth, gotPath string
	planner, err := NewOpenAIPlanner(OpenAIOptions{
		APIKey:  "sk-test",
		BaseURL: "https://llm.example.com/v1/",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			body := `{"choices":[{"message":{"content":` + quote(twoPlans) + `}}]}`
			return jsonResponse(http.StatusOK, body), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIPlanner returned error: %v", err)
	}
	plans, err := planner.GeneratePlans(context.Background(), testInput, 12)
	if err != nil {
		t.Fatalf("GeneratePlans returned error: %v", err)
	}
	if gotAuth != "Bearer sk-test" || gotPath != "/v1/chat/completions" {
		t.Fatalf("unexpected request auth=%q path=%q", gotAuth, gotPath)
	}
	if len(plans) != 2 || plans[0].Story.Arrow != domain.ArrowUp || plans[1].Story.Arrow != domain.ArrowNone {
		t.Fatalf("unexpected plans: %+v", plans)
	}
}

func TestOpenAIPlannerProviderFailure(t *testing.T) {
	planner, err := NewOpenAIPlanner(OpenAIOptions{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIPlanner returned error: %v", err)
	}
	if _, err := planner.GeneratePlans(context.Background(), testInput, 4); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestGeminiPlannerUsesGenerator(t *testing.T) {
	p := newGeminiPlanner(GeminiOptions{})
	var prompt string
	p.generate = func(ctx context.Context, in string) (string, error) {
		prompt = in
		return twoPlans, nil
	}
	plans, err := p.GeneratePlans(context.Background(), testInput, 12)
	if err != nil {
		t.Fatalf("GeneratePlans returned error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("plans = %d", len(plans))
	}
	if !strings.Contains(prompt, "exactly 12") || !strings.Contains(prompt, "mystery_reveal") {
		t.Fatalf("prompt missing count or catalog: %s", prompt)
	}

	p.generate = func(ctx context.Context, in string) (string, error) {
		return "", errors.New("quota exceeded")
	}
	if _, err := p.GeneratePlans(context.Background(), testInput, 12); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestPlanSchemaEnumeratesCatalog(t *testing.T) {
	schema := planSchema(catalog.Default())
	concept := schema.Properties["plans"].Items.Properties["concept_id"]
	if len(concept.Enum) != len(catalog.Default().IDs()) {
		t.Fatalf("enum size = %d", len(concept.Enum))
	}
}

func TestStaticPlannerDeterministic(t *testing.T) {
	p := NewStaticPlanner(nil)
	first, err := p.GeneratePlans(context.Background(), testInput, 12)
	if err != nil {
		t.Fatalf("GeneratePlans returned error: %v", err)
	}
	second, _ := p.GeneratePlans(context.Background(), testInput, 12)
	if len(first) != 12 {
		t.Fatalf("plans = %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("plan %d differs between calls", i)
		}
	}
	if first[0].Story.OverlayText != "I built a cabin" {
		t.Fatalf("overlay = %q", first[0].Story.OverlayText)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "static"})
	if err != nil || p.Name() != ProviderStatic {
		t.Fatalf("static: %v %v", p, err)
	}
	if _, err := New(context.Background(), Config{Provider: "openai"}); err == nil {
		t.Fatal("expected error without api key")
	}
	if _, err := New(context.Background(), Config{Provider: "llama"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
