package sqlinline

const QSelectThumbnailJob = `--sql 7f28d3b5-9c3e-4b00-92b0-26d0050c45cd
select
  id::text,
  owner_id::text,
  input,
  status,
  progress_percent,
  coalesce(phase_message, ''),
  coalesce(error_message, ''),
  created_at,
  updated_at
from thumbnail_jobs
where id = $1::uuid
limit 1;
`

const QInsertThumbnailJob = `--sql 7179b430-a88e-4860-a172-835e4da535e8
insert into thumbnail_jobs (id, owner_id, input, status, progress_percent, phase_message, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::jsonb, 'queued', 0, 'Queued', now(), now())
on conflict (id) do nothing;
`

const QUpdateThumbnailJobProgress = `--sql 3e4fe0a0-3b30-4e90-bb5f-9850257cde23
update thumbnail_jobs
set
  status = $2::text,
  progress_percent = greatest(progress_percent, $3::int),
  phase_message = $4::text,
  error_message = nullif($5::text, ''),
  updated_at = now()
where id = $1::uuid
  and status not in ('completed', 'failed')
  and (
    $2::text = 'failed'
    or array_position(array['queued', 'planning', 'generating', 'rendering', 'completed'], status::text)
      <= array_position(array['queued', 'planning', 'generating', 'rendering', 'completed'], $2::text)
  );
`

const QListStalledThumbnailJobs = `--sql a73ac74c-3bea-4dad-b084-11a4d2869036
select id::text
from thumbnail_jobs
where status not in ('completed', 'failed')
  and updated_at < $1::timestamptz
order by updated_at asc
limit $2::int;
`
