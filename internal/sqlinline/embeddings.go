package sqlinline

const QSearchDishEmbeddings = `--sql 2e6cdd99-8877-46ca-8e49-5a9e689e09ad
select di.id, di.dish_name, di.normalized_name, di.category, di.key, di.url,
       di.content_hash, di.source, di.width, di.height, di.bytes, di.created_at,
       1 - (de.embedding <=> $1::vector) as similarity
from dish_embeddings de
join dish_images di on di.id = de.dish_image_id
where 1 - (de.embedding <=> $1::vector) >= $2::float8
order by de.embedding <=> $1::vector asc
limit $3::int;
`
