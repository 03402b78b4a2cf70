package sqlinline

const QInsertMissingDish = `--sql cd47611e-a6ae-4f80-89a8-2c9f3df03de1
insert into missing_dishes (id, name, normalized_name, category, logged_at)
values (gen_random_uuid(), $1::text, $2::text, $3::text, now())
on conflict (normalized_name) do update set logged_at = now();
`

const QClaimMissingDishes = `--sql e6859ad3-b216-4b23-841c-b02f36c082bd
with claimed as (
    select id
    from missing_dishes
    where processed_at is null
    order by logged_at asc
    limit $1::int
    for update skip locked
)
update missing_dishes m
set processed_at = now()
from claimed
where m.id = claimed.id
returning m.id, m.name, m.normalized_name, m.category;
`

const QReleaseMissingDish = `--sql 2f12ce68-d8ec-482c-a512-5b5ea9322afb
update missing_dishes
set processed_at = null
where id = $1::uuid;
`
