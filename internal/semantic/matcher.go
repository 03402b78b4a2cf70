package semantic

import (
	"context"
	"fmt"

	"menulens/internal/domain"
	"menulens/internal/foodname"
	"menulens/internal/infra"
	"menulens/internal/sqlinline"
)

// MissingRecorder logs dishes the index could not answer so the backfill
// worker can pre-generate them.
type MissingRecorder interface {
	LogMissing(ctx context.Context, name, normalized, category string) error
}

// PGMissingLog appends misses to missing_dishes. Repeated misses for the
// same normalized name refresh the existing row.
type PGMissingLog struct {
	runner infra.SQLExecutor
}

var _ MissingRecorder = (*PGMissingLog)(nil)

func NewPGMissingLog(runner infra.SQLExecutor) *PGMissingLog {
	return &PGMissingLog{runner: runner}
}

func (l *PGMissingLog) LogMissing(ctx context.Context, name, normalized, category string) error {
	if _, err := l.runner.Exec(ctx, sqlinline.QInsertMissingDish, name, normalized, category); err != nil {
		return fmt.Errorf("log missing dish: %w", err)
	}
	return nil
}

// Matcher is the pipeline-facing face of the index: one dish name in, at
// most one candidate out. Misses are recorded best effort and never fail
// the lookup.
type Matcher struct {
	index      Index
	missing    MissingRecorder
	classifier foodname.Classifier
	threshold  float64
	logger     infra.Logger
}

func NewMatcher(index Index, missing MissingRecorder, classifier foodname.Classifier, threshold float64, logger infra.Logger) *Matcher {
	if index == nil {
		return nil
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.7
	}
	return &Matcher{
		index:      index,
		missing:    missing,
		classifier: classifier,
		threshold:  threshold,
		logger:     logger,
	}
}

// Match returns the best candidate at or above the similarity threshold,
// or nil when the index has nothing close enough.
func (m *Matcher) Match(ctx context.Context, item domain.MenuItemRequest) (*domain.ImageCandidate, error) {
	text := item.Name
	if item.Description != "" {
		text = item.Name + " " + item.Description
	}

	matches, err := m.index.Search(ctx, text, 1, m.threshold)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		best := matches[0]
		m.logger.Debug().
			Str("dish", item.Name).
			Str("matched", best.Record.DishName).
			Float64("similarity", best.Similarity).
			Msg("semantic: index hit")
		return &domain.ImageCandidate{
			URL:    best.Record.URL,
			Source: domain.SourceSemantic,
			Title:  best.Record.DishName,
			Width:  best.Record.Width,
			Height: best.Record.Height,
			Score:  best.Similarity,
		}, nil
	}

	if m.missing != nil {
		normalized := foodname.Normalize(item.Name)
		category := foodname.CategoryGeneral
		if m.classifier != nil {
			category = m.classifier.Categorize(item.Name)
		}
		if err := m.missing.LogMissing(ctx, item.Name, normalized, category); err != nil {
			m.logger.Warn().Err(err).Str("dish", item.Name).Msg("semantic: missing-dish log failed")
		}
	}
	return nil, nil
}
