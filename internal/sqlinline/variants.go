package sqlinline

const QListThumbnailVariants = `--sql f1d15d05-f541-4c93-b886-f1ee6b9f7115
select
  id::text,
  job_id::text,
  rank,
  plan_json,
  spec_json,
  coalesce(base_image_key, ''),
  coalesce(final_image_key, ''),
  coalesce(base_error, ''),
  coalesce(render_path, ''),
  coalesce(render_error, ''),
  created_at
from thumbnail_variants
where job_id = $1::uuid
order by rank asc;
`

// QInsertThumbnailVariants inserts the whole planned set in one statement and
// only when the job has no variants yet.
const QInsertThumbnailVariants = `--sql ebcb5966-c77b-4719-927f-3d4af8739371
insert into thumbnail_variants (id, job_id, rank, plan_json, spec_json, created_at)
select v.id::uuid, $1::uuid, v.rank, v.plan::jsonb, v.spec::jsonb, now()
from unnest($2::text[], $3::int[], $4::text[], $5::text[]) as v(id, rank, plan, spec)
where not exists (
  select 1 from thumbnail_variants existing where existing.job_id = $1::uuid
)
on conflict (job_id, rank) do nothing;
`

const QSetVariantBaseImage = `--sql 56902988-9809-43f7-b2f0-c8f7b73097e8
update thumbnail_variants
set base_image_key = $2::text
where id = $1::uuid
  and base_image_key is null;
`

const QMarkVariantBaseFailed = `--sql e2bf0f40-5ddc-404e-b539-eb4e8e771630
update thumbnail_variants
set base_error = $2::text
where id = $1::uuid
  and base_image_key is null
  and base_error is null;
`

const QSetVariantFinalImage = `--sql a98a28f5-e5cb-42f5-8de8-d4d4717958e0
update thumbnail_variants
set
  final_image_key = $2::text,
  render_path = $3::text,
  render_error = nullif($4::text, '')
where id = $1::uuid
  and final_image_key is null;
`
