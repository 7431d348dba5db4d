package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"thumbgen/internal/compositor"
	"thumbgen/internal/domain"
	"thumbgen/internal/providers/image"
	"thumbgen/internal/storage"
)

// plan asks the planner for candidates, keeps a diverse top-N and persists
// them as variants. Every failure here is fatal to the job.
func (o *Orchestrator) plan(ctx context.Context, job *domain.Job, input domain.JobInput) ([]domain.Variant, error) {
	if err := input.Validate(); err != nil {
		return nil, &fatalError{err: err}
	}
	plans, err := o.planner.GeneratePlans(ctx, input, o.cfg.CandidateCount)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fatal("planning: %w", err)
	}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, fatal("planning: %w", err)
		}
	}

	ranked := o.ranking.Select(plans, o.cfg.MaxPerConcept, input.VariantCount)
	if len(ranked) == 0 {
		return nil, fatal("planning: %w: no admissible plans", domain.ErrMalformedPlan)
	}

	variants := make([]domain.Variant, 0, len(ranked))
	for _, r := range ranked {
		concept, _ := o.catalog.Get(r.Plan.ConceptID)
		planJSON, err := json.Marshal(domain.PlanRecord{Plan: r.Plan, Metadata: r.Metadata(o.catalog)})
		if err != nil {
			return nil, fatal("encode plan: %w", err)
		}
		spec := compositor.SpecFromPlan(r.Plan, concept.Layout, input.Style.Palette, input.Style.Locale)
		specJSON, err := json.Marshal(spec)
		if err != nil {
			return nil, fatal("encode render spec: %w", err)
		}
		variants = append(variants, domain.Variant{
			ID:       o.newID(),
			JobID:    job.ID,
			Rank:     r.Rank,
			PlanJSON: planJSON,
			SpecJSON: specJSON,
		})
	}

	if err := o.variants.CreateAll(ctx, job.ID, variants); err != nil {
		return nil, fatal("persist variants: %w", err)
	}
	// Re-read so a concurrent planner that won the insert is honoured.
	stored, err := o.variants.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	if len(stored) == 0 {
		return nil, fatal("persist variants: no rows stored")
	}
	o.logger.Info().
		Str("job_id", job.ID).
		Int("candidates", len(plans)).
		Int("variants", len(stored)).
		Msg("pipeline: planned")
	return stored, nil
}

// generate attempts base images for variants that have neither a key nor a
// recorded failure. It reports done=false when the budget ran out first.
func (o *Orchestrator) generate(ctx context.Context, job *domain.Job, variants []domain.Variant, b *budget) (bool, error) {
	pending := pendingIndexes(variants, domain.Variant.NeedsBase)
	palette := paletteOf(job.Input)
	for start := 0; start < len(pending); start += o.cfg.BatchSize {
		if !b.take() {
			return false, nil
		}
		batch := pending[start:min(start+o.cfg.BatchSize, len(pending))]
		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range batch {
			v := &variants[idx]
			g.Go(func() error {
				o.generateOne(gctx, job.ID, v, palette)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return false, err
		}

		done := len(variants) - len(pendingIndexes(variants, domain.Variant.NeedsBase))
		phase := fmt.Sprintf("Generating base images (%d/%d)", done, len(variants))
		if err := o.transition(ctx, job, domain.JobStatusGenerating, stageProgress(progressPlanned, progressGenerated, done, len(variants)), phase); err != nil {
			return false, err
		}
	}
	return true, nil
}

// generateOne never fails the batch. A provider or storage failure is
// recorded on the variant so it is not retried.
func (o *Orchestrator) generateOne(ctx context.Context, jobID string, v *domain.Variant, palette string) {
	log := o.logger.With().Str("job_id", jobID).Str("variant_id", v.ID).Logger()

	markFailed := func(cause error) {
		if ctx.Err() != nil {
			// Interrupted calls leave the variant pending for the next call.
			return
		}
		reason := cause.Error()
		log.Warn().Err(cause).Msg("pipeline: base image failed, variant will use fallback")
		if err := o.variants.MarkBaseFailed(ctx, v.ID, reason); err != nil {
			log.Error().Err(err).Msg("pipeline: record base failure")
			return
		}
		v.BaseError = reason
	}

	rec, err := domain.DecodePlanRecord(v.PlanJSON)
	if err != nil {
		markFailed(err)
		return
	}
	img, err := o.generator.GenerateBaseImage(ctx, image.BaseRequest{
		JobID:     jobID,
		VariantID: v.ID,
		Plan:      rec.Plan,
		Palette:   palette,
	})
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = errEmptyImage
	}
	if err != nil {
		markFailed(fmt.Errorf("%s: %w", o.generator.Name(), err))
		return
	}

	key := storage.Key(storage.KindBase, jobID, v.ID)
	if err := o.store.Put(ctx, key, img.Data, img.MIMEType); err != nil {
		markFailed(fmt.Errorf("store base image: %w", err))
		return
	}
	if err := o.variants.SetBaseImage(ctx, v.ID, key); err != nil {
		log.Error().Err(err).Msg("pipeline: record base image key")
		return
	}
	v.BaseImageKey = key
	log.Debug().Str("key", key).Msg("pipeline: base image stored")
}

// render produces the final image for every variant without one.
func (o *Orchestrator) render(ctx context.Context, job *domain.Job, variants []domain.Variant, b *budget) (bool, error) {
	specs := make(map[string]compositor.RenderSpec, len(variants))
	for _, v := range variants {
		if !v.NeedsRender() {
			continue
		}
		spec, err := compositor.DecodeSpec(v.SpecJSON)
		if err != nil {
			return false, fatal("variant %s: %w", v.ID, err)
		}
		specs[v.ID] = spec
	}

	attempted := make(map[string]bool)
	for {
		var batch []int
		for _, idx := range pendingIndexes(variants, domain.Variant.NeedsRender) {
			if !attempted[variants[idx].ID] && len(batch) < o.cfg.BatchSize {
				batch = append(batch, idx)
			}
		}
		if len(batch) == 0 {
			// Variants that failed this call stay pending for the next one.
			return len(pendingIndexes(variants, domain.Variant.NeedsRender)) == 0, nil
		}
		if !b.take() {
			return false, nil
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, idx := range batch {
			v := &variants[idx]
			attempted[v.ID] = true
			g.Go(func() error {
				o.renderOne(gctx, job.ID, v, specs[v.ID])
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return false, err
		}

		done := len(variants) - len(pendingIndexes(variants, domain.Variant.NeedsRender))
		phase := fmt.Sprintf("Rendering thumbnails (%d/%d)", done, len(variants))
		if err := o.transition(ctx, job, domain.JobStatusRendering, stageProgress(progressGenerated, progressCompleted-1, done, len(variants)), phase); err != nil {
			return false, err
		}
	}
}

// renderOne always tries to leave a final image behind: any problem with the
// base falls through to the fallback renderer. It returns false only when
// even the fallback could not be stored.
func (o *Orchestrator) renderOne(ctx context.Context, jobID string, v *domain.Variant, spec compositor.RenderSpec) bool {
	log := o.logger.With().Str("job_id", jobID).Str("variant_id", v.ID).Logger()

	var (
		out       []byte
		path      = domain.RenderPathFallback
		renderErr string
	)
	if v.BaseImageKey != "" {
		base, err := o.store.Get(ctx, v.BaseImageKey)
		switch {
		case err != nil:
			renderErr = fmt.Sprintf("load base image: %v", err)
		case base == nil:
			renderErr = "base image missing from storage"
		default:
			out, err = o.renderer.RenderWithBase(ctx, base, spec)
			if err != nil {
				renderErr = err.Error()
				out = nil
			} else {
				path = domain.RenderPathBase
			}
		}
		if renderErr != "" {
			log.Warn().Str("reason", renderErr).Msg("pipeline: rendering with base failed, using fallback")
		}
	}
	if out == nil {
		var err error
		out, err = o.renderer.RenderFallback(ctx, spec)
		if err != nil {
			log.Error().Err(err).Msg("pipeline: fallback render failed")
			return false
		}
	}

	key := storage.Key(storage.KindFinal, jobID, v.ID)
	if err := o.store.Put(ctx, key, out, "image/png"); err != nil {
		log.Error().Err(err).Msg("pipeline: store final image")
		return false
	}
	if err := o.variants.SetFinalImage(ctx, v.ID, key, path, renderErr); err != nil {
		log.Error().Err(err).Msg("pipeline: record final image key")
		return false
	}
	v.FinalImageKey = key
	v.RenderPath = path
	v.RenderError = renderErr
	log.Debug().Str("key", key).Str("path", string(path)).Msg("pipeline: final image stored")
	return true
}

func pendingIndexes(variants []domain.Variant, pending func(domain.Variant) bool) []int {
	var out []int
	for i, v := range variants {
		if pending(v) {
			out = append(out, i)
		}
	}
	return out
}

func paletteOf(input domain.JobInput) string {
	input.Normalize()
	return input.Style.Palette
}
