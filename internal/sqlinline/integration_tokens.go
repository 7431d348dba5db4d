package sqlinline

const QSelectIntegrationToken = `--sql 2b6f1d0e-5c44-4e8a-9d1b-7c0a3e9f4a21
select token
from integration_tokens
where provider = $1::text;
`

// QUpsertIntegrationToken replaces a provider key and merges its metadata.
const QUpsertIntegrationToken = `--sql c91e7a35-0b2d-4f6e-8a47-3d5b9e1c6f08
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
  token = excluded.token,
  properties = integration_tokens.properties || excluded.properties,
  updated_at = now();
`
