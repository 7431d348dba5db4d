package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Concept is an archetypal thumbnail treatment.
type Concept struct {
	ID          string `yaml:"id" json:"id"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`
	// Rarity in [0,1] feeds the novelty score; common treatments sit low.
	Rarity float64 `yaml:"rarity" json:"rarity"`
	// Layout hints where the compositor places the headline.
	Layout string `yaml:"layout" json:"layout"`
}

// Catalog is a read-only registry of concepts keyed by id.
type Catalog struct {
	byID  map[string]Concept
	order []string
}

var defaultConcepts = []Concept{
	{ID: "reaction_face", Description: "expressive close-up face reacting to the subject", Rarity: 0.2, Layout: "right"},
	{ID: "before_after", Description: "split frame contrasting two states", Rarity: 0.45, Layout: "top"},
	{ID: "big_number", Description: "one oversized figure dominating the frame", Rarity: 0.4, Layout: "left"},
	{ID: "mystery_reveal", Description: "partially hidden object teasing a reveal", Rarity: 0.65, Layout: "bottom"},
	{ID: "versus", Description: "two subjects facing off", Rarity: 0.5, Layout: "top"},
	{ID: "tutorial_steps", Description: "hands-on process shot with clear steps", Rarity: 0.35, Layout: "left"},
	{ID: "warning_alert", Description: "danger framing with alarm cues", Rarity: 0.55, Layout: "bottom"},
	{ID: "transformation", Description: "dramatic change of one subject", Rarity: 0.6, Layout: "right"},
	{ID: "object_closeup", Description: "macro shot of the key object", Rarity: 0.7, Layout: "left"},
	{ID: "minimal_bold", Description: "clean negative space with a single bold subject", Rarity: 0.75, Layout: "left"},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultConcepts)
	if err != nil {
		panic(fmt.Errorf("catalog: default concepts: %w", err))
	}
	return c
}

// New builds a catalog, deriving display names where missing.
func New(concepts []Concept) (*Catalog, error) {
	if len(concepts) == 0 {
		return nil, errors.New("catalog: at least one concept is required")
	}
	title := cases.Title(language.English)
	c := &Catalog{byID: make(map[string]Concept, len(concepts))}
	for _, concept := range concepts {
		concept.ID = strings.TrimSpace(concept.ID)
		if concept.ID == "" {
			return nil, errors.New("catalog: concept id is required")
		}
		if _, dup := c.byID[concept.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate concept %q", concept.ID)
		}
		if strings.TrimSpace(concept.DisplayName) == "" {
			concept.DisplayName = title.String(strings.ReplaceAll(concept.ID, "_", " "))
		}
		if concept.Rarity < 0 {
			concept.Rarity = 0
		}
		if concept.Rarity > 1 {
			concept.Rarity = 1
		}
		c.byID[concept.ID] = concept
		c.order = append(c.order, concept.ID)
	}
	return c, nil
}

type fileFormat struct {
	Concepts []Concept `yaml:"concepts"`
}

// LoadFile reads a YAML catalog override. An empty path yields the default.
func LoadFile(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(doc.Concepts)
}

// Get looks up a concept by id.
func (c *Catalog) Get(id string) (Concept, bool) {
	concept, ok := c.byID[id]
	return concept, ok
}

// Has reports whether id is registered.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// DisplayName returns the concept's name, or the id when unknown.
func (c *Catalog) DisplayName(id string) string {
	if concept, ok := c.byID[id]; ok {
		return concept.DisplayName
	}
	return id
}

// All returns concepts in registration order.
func (c *Catalog) All() []Concept {
	out := make([]Concept, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted concept ids.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
