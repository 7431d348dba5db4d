package domain

import "time"

// RenderPath records which compositor operation produced the final image.
type RenderPath string

const (
	RenderPathBase     RenderPath = "base"
	RenderPathFallback RenderPath = "fallback"
)

// Variant is one planned thumbnail. It is created once during planning and
// afterwards only gains keys and markers.
type Variant struct {
	ID            string
	JobID         string
	Rank          int
	PlanJSON      []byte
	SpecJSON      []byte
	BaseImageKey  string
	FinalImageKey string
	// BaseError marks a failed base-image attempt; such variants are not
	// retried and render through the fallback path.
	BaseError   string
	RenderPath  RenderPath
	RenderError string
	CreatedAt   time.Time
}

// NeedsBase reports whether base generation is still outstanding.
func (v Variant) NeedsBase() bool {
	return v.BaseImageKey == "" && v.BaseError == ""
}

// NeedsRender reports whether the final image is still outstanding.
func (v Variant) NeedsRender() bool {
	return v.FinalImageKey == ""
}
