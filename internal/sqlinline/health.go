package sqlinline

const QHealthPing = `--sql 5d85e9b5-cdd9-4a04-934f-9400d0c70546
select 1;
`
