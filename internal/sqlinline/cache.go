package sqlinline

const QInsertDishImage = `--sql d4a8b6d7-b9b0-4b47-9369-81b2f3fd1c1b
insert into dish_images (id, dish_name, normalized_name, category, key, url, content_hash, source, width, height, bytes, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text, $9::int, $10::int, $11::bigint, now());
`

const QSelectDishImagesByNormalizedName = `--sql 5a84b20c-d941-488e-8b9d-d44e2f223e18
select id, dish_name, normalized_name, category, key, url, content_hash, source, width, height, bytes, created_at
from dish_images
where normalized_name = $1::text
order by created_at desc
limit $2::int;
`

const QSelectDishImagesByCategory = `--sql 608f9798-8928-46ec-90db-aca97df269f9
select id, dish_name, normalized_name, category, key, url, content_hash, source, width, height, bytes, created_at
from dish_images
where category = $1::text
order by created_at desc
limit $2::int;
`

const QSelectDishImageByHash = `--sql a3251921-f3f8-415e-add4-00d079457eb7
select id, dish_name, normalized_name, category, key, url, content_hash, source, width, height, bytes, created_at
from dish_images
where content_hash = $1::text
limit 1;
`
