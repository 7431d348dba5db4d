package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
)

func buildPlanPrompt(input domain.JobInput, desired int, cat *catalog.Catalog) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You are an art director planning YouTube thumbnails. Produce exactly %d candidate plans as JSON: ", desired)
	sb.WriteString(`{"plans":[{"concept_id":string,"scene":string,"camera":string,"emotion":string,"overlay_text":string,"badge":string,"arrow":"left"|"right"|"up"|"down"|""}]}`)
	sb.WriteString(". concept_id must be one of:\n")
	for _, c := range cat.All() {
		fmt.Fprintf(sb, "- %s: %s\n", c.ID, c.Description)
	}
	sb.WriteString("The scene describes a photographic image with no text, letters, logos or numbers in it. ")
	sb.WriteString("overlay_text is at most five words and is drawn on top later. Vary concepts across plans. ")
	fmt.Fprintf(sb, "Write overlay_text in locale %q. Video title=%q", coalesce(input.Style.Locale, domain.DefaultLocale), input.Title)
	if input.Topic != "" {
		fmt.Fprintf(sb, ", topic=%q", input.Topic)
	}
	if input.Style.Emphasis != "" {
		fmt.Fprintf(sb, ", emphasis=%q", input.Style.Emphasis)
	}
	if input.Style.Palette != "" {
		fmt.Fprintf(sb, ", palette=%q", input.Style.Palette)
	}
	sb.WriteString(".")
	return sb.String()
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

// parsePlans accepts either {"plans":[...]} or a bare array.
func parsePlans(raw string) ([]modelPlan, error) {
	cleaned := extractJSONFragment(raw)
	if strings.HasPrefix(cleaned, "[") {
		plans, err := parseModelPayload[[]modelPlan](cleaned)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPlan, err)
		}
		return plans, nil
	}
	payload, err := parseModelPayload[modelPlanPayload](cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPlan, err)
	}
	return payload.Plans, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
