// Package semantic resolves dish names against an embedding index of
// previously stored dish images. The index tables are maintained out of
// band; this package only reads them.
package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"menulens/internal/domain"
	"menulens/internal/sqlinline"
)

// Match pairs a cached dish image with its similarity to the query text.
type Match struct {
	Record     domain.CacheRecord
	Similarity float64
}

// Index finds cached dish images whose embeddings sit near a query text.
type Index interface {
	Search(ctx context.Context, text string, topK int, threshold float64) ([]Match, error)
}

// PGIndex answers similarity queries from a pgvector table, embedding the
// query text on the fly.
type PGIndex struct {
	db       *sql.DB
	embedder Embedder
}

var _ Index = (*PGIndex)(nil)

func NewPGIndex(db *sql.DB, embedder Embedder) *PGIndex {
	return &PGIndex{db: db, embedder: embedder}
}

func (i *PGIndex) Search(ctx context.Context, text string, topK int, threshold float64) ([]Match, error) {
	if topK < 1 {
		topK = 1
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := i.db.QueryContext(ctx, sqlinline.QSearchDishEmbeddings, vectorLiteral(vec), threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var source string
		r := &m.Record
		if err := rows.Scan(&r.ID, &r.DishName, &r.NormalizedName, &r.Category, &r.Key, &r.URL,
			&r.ContentHash, &source, &r.Width, &r.Height, &r.Bytes, &r.CreatedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		r.Source = domain.ImageSource(source)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// vectorLiteral renders a pgvector input literal such as [0.12,-0.5,1].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
