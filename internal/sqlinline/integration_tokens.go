package sqlinline

const QSelectIntegrationToken = `--sql bfa308ac-b883-4815-9b7d-ac93c69e185f
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 6b48e0d2-0ee1-4834-9aa8-8045e377be21
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
