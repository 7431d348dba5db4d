package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultVariantCount is applied when the stored input omits a count.
	DefaultVariantCount = 4
	// MaxVariantCount caps how many variants one job may produce.
	MaxVariantCount = 12
	// DefaultLocale is used for overlay copy when no locale is stored.
	DefaultLocale = "en"
)

// StyleFlags tune how variants are produced.
type StyleFlags struct {
	AllowAIBase bool   `json:"allow_ai_base"`
	Palette     string `json:"palette" validate:"omitempty,oneof=bold dark bright pastel mono"`
	Locale      string `json:"locale" validate:"omitempty,bcp47_language_tag"`
	Emphasis    string `json:"emphasis" validate:"max=60"`
}

// JobInput is the immutable request captured when the job was created.
type JobInput struct {
	Title        string     `json:"title" validate:"required,min=3,max=200"`
	Topic        string     `json:"topic" validate:"max=500"`
	VariantCount int        `json:"variant_count" validate:"min=1,max=12"`
	Style        StyleFlags `json:"style"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize fills defaults for fields older job rows may omit.
func (in *JobInput) Normalize() {
	if in == nil {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Topic = strings.TrimSpace(in.Topic)
	if in.VariantCount <= 0 {
		in.VariantCount = DefaultVariantCount
	}
	if in.Style.Locale == "" {
		in.Style.Locale = DefaultLocale
	}
	if in.Style.Palette == "" {
		in.Style.Palette = "bold"
	}
}

// Validate checks the input contract before planning.
func (in JobInput) Validate() error {
	if err := inputValidator().Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
