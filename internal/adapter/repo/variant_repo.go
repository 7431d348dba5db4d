package repo

import (
	"context"

	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/sqlinline"
)

// VariantRepositoryPG implements domain.VariantRepository.
type VariantRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewVariantRepository(sql infra.SQLExecutor) *VariantRepositoryPG {
	return &VariantRepositoryPG{sql: sql}
}

func (r *VariantRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.Variant, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListThumbnailVariants, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var (
			v    domain.Variant
			path string
		)
		if err := rows.Scan(
			&v.ID,
			&v.JobID,
			&v.Rank,
			&v.PlanJSON,
			&v.SpecJSON,
			&v.BaseImageKey,
			&v.FinalImageKey,
			&v.BaseError,
			&path,
			&v.RenderError,
			&v.CreatedAt,
		); err != nil {
			return nil, err
		}
		v.RenderPath = domain.RenderPath(path)
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// CreateAll writes every planned variant in a single statement that is a
// no-op once the job has variants.
func (r *VariantRepositoryPG) CreateAll(ctx context.Context, jobID string, variants []domain.Variant) error {
	if len(variants) == 0 {
		return nil
	}
	ids := make([]string, len(variants))
	ranks := make([]int32, len(variants))
	plans := make([]string, len(variants))
	specs := make([]string, len(variants))
	for i, v := range variants {
		ids[i] = v.ID
		ranks[i] = int32(v.Rank)
		plans[i] = string(v.PlanJSON)
		specs[i] = string(v.SpecJSON)
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertThumbnailVariants, jobID, ids, ranks, plans, specs)
	return err
}

func (r *VariantRepositoryPG) SetBaseImage(ctx context.Context, variantID, key string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetVariantBaseImage, variantID, key)
	return err
}

func (r *VariantRepositoryPG) MarkBaseFailed(ctx context.Context, variantID, reason string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkVariantBaseFailed, variantID, reason)
	return err
}

func (r *VariantRepositoryPG) SetFinalImage(ctx context.Context, variantID, key string, path domain.RenderPath, renderErr string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetVariantFinalImage, variantID, key, string(path), renderErr)
	return err
}

var _ domain.VariantRepository = (*VariantRepositoryPG)(nil)
