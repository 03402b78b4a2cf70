package sqlinline

const QInsertMenu = `--sql d3568061-ed91-49c7-ade7-16e1f8e97286
insert into menus (id, status, source_key, currency, locale, item_count, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::int, now());
`

const QUpdateMenuExtraction = `--sql 7f1aa2b5-9c0e-4f5a-8d21-3be4f0c6a917
update menus
set item_count = $2::int,
    currency = $3::text
where id = $1::uuid;
`

const QUpdateMenuStatus = `--sql dc335d86-4b1f-47c1-9a66-10083d54fdc2
update menus
set status = $2::text,
    item_count = coalesce($3::int, item_count),
    error = coalesce($4::text, error),
    completed_at = case when $2::text in ('completed', 'failed') then now() else completed_at end
where id = $1::uuid;
`

const QSelectMenu = `--sql ac278684-681b-4127-b327-0181b0538763
select id, status, source_key, currency, locale, item_count, coalesce(error, ''), created_at, completed_at
from menus
where id = $1::uuid
limit 1;
`

const QInsertMenuItem = `--sql bae8520d-00e3-4dad-8674-9d5e3da96f06
insert into menu_items (id, menu_id, name, description, price, section, position, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::int, now());
`

const QSelectMenuItems = `--sql 0b64ac06-45e2-4a5b-bf97-a57677bbbc20
select id, menu_id, name, coalesce(description, ''), coalesce(price, ''), coalesce(section, ''), position, created_at
from menu_items
where menu_id = $1::uuid
order by position asc;
`

const QInsertMenuItemImage = `--sql dade77e5-746d-47bd-9401-6acb36faf6a4
insert into menu_item_images (id, menu_item_id, url, thumbnail_url, source, title, width, height, score, position, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::int, $7::int, $8::float8, $9::int, now());
`

const QSelectMenuItemImages = `--sql 96695453-41e9-4481-8b5f-7ceb5efe3886
select i.menu_item_id, i.url, coalesce(i.thumbnail_url, ''), i.source, coalesce(i.title, ''), i.width, i.height, i.score
from menu_item_images i
join menu_items mi on mi.id = i.menu_item_id
where mi.menu_id = $1::uuid
order by i.menu_item_id, i.position asc;
`
