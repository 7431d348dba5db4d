package storage

import (
	"context"
	"fmt"
	"strings"
)

// Store is the object storage port used by the pipeline.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object bytes, or nil with no error when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Kind separates generated base scenes from final thumbnails.
type Kind string

const (
	KindBase  Kind = "base"
	KindFinal Kind = "final"
)

// Key builds the storage key for one variant image. Keys are unique per
// (kind, job, variant).
func Key(kind Kind, jobID, variantID string) string {
	return fmt.Sprintf("%s/%s/%s", kind, strings.TrimSpace(jobID), strings.TrimSpace(variantID))
}
