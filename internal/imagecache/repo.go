package imagecache

import (
	"context"
	"fmt"

	"menulens/internal/domain"
	"menulens/internal/infra"
	"menulens/internal/sqlinline"
)

// RecordStore persists and queries dish image metadata. The pipeline
// never lists object storage; these rows are the only lookup path.
type RecordStore interface {
	Insert(ctx context.Context, rec domain.CacheRecord) error
	ByNormalizedName(ctx context.Context, normalized string, limit int) ([]domain.CacheRecord, error)
	ByCategory(ctx context.Context, category string, limit int) ([]domain.CacheRecord, error)
	ByContentHash(ctx context.Context, hash string) (domain.CacheRecord, error)
}

// PGRecordStore is the Postgres RecordStore.
type PGRecordStore struct {
	sql infra.SQLExecutor
}

var _ RecordStore = (*PGRecordStore)(nil)

func NewPGRecordStore(sql infra.SQLExecutor) *PGRecordStore {
	return &PGRecordStore{sql: sql}
}

func (s *PGRecordStore) Insert(ctx context.Context, rec domain.CacheRecord) error {
	_, err := s.sql.Exec(ctx, sqlinline.QInsertDishImage,
		rec.ID, rec.DishName, rec.NormalizedName, rec.Category, rec.Key,
		rec.URL, rec.ContentHash, string(rec.Source), rec.Width, rec.Height, rec.Bytes)
	if err != nil {
		return fmt.Errorf("imagecache: insert record: %w", err)
	}
	return nil
}

func (s *PGRecordStore) ByNormalizedName(ctx context.Context, normalized string, limit int) ([]domain.CacheRecord, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectDishImagesByNormalizedName, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("imagecache: query by name: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PGRecordStore) ByCategory(ctx context.Context, category string, limit int) ([]domain.CacheRecord, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectDishImagesByCategory, category, limit)
	if err != nil {
		return nil, fmt.Errorf("imagecache: query by category: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PGRecordStore) ByContentHash(ctx context.Context, hash string) (domain.CacheRecord, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectDishImageByHash, hash)
	rec, err := scanRecord(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.CacheRecord{}, domain.ErrNotFound
		}
		return domain.CacheRecord{}, fmt.Errorf("imagecache: query by hash: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.CacheRecord, error) {
	var rec domain.CacheRecord
	var source string
	err := row.Scan(&rec.ID, &rec.DishName, &rec.NormalizedName, &rec.Category,
		&rec.Key, &rec.URL, &rec.ContentHash, &source, &rec.Width, &rec.Height,
		&rec.Bytes, &rec.CreatedAt)
	if err != nil {
		return domain.CacheRecord{}, err
	}
	rec.Source = domain.ImageSource(source)
	return rec, nil
}

type recordRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows recordRows) ([]domain.CacheRecord, error) {
	var out []domain.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("imagecache: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("imagecache: iterate records: %w", err)
	}
	return out, nil
}
