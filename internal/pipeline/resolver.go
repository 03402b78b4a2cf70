// Package pipeline walks menu items down the resolution cascade: cache,
// embedding index, web search, generation, placeholder. Each stage consumes
// the previous stage's leftovers, so every item ends in exactly one
// terminal source.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"menulens/internal/domain"
	"menulens/internal/infra"
	"menulens/internal/metrics"
)

// Progress waypoints on the task percent scale. The upload flow owns the
// range below percentCached and above percentResolved.
const (
	percentCached   = 45
	percentSemantic = 55
	percentSearch   = 75
	percentGenerate = 80
	percentResolved = 95
)

const (
	defaultPerItem        = 2
	defaultPlaceholderURL = "https://via.placeholder.com/1024x1024.png?text=Image+Not+Available"
)

// Cache is the batch lookup face of the dish image cache.
type Cache interface {
	LookupBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate
}

// Matcher resolves one item against the embedding index.
type Matcher interface {
	Match(ctx context.Context, item domain.MenuItemRequest) (*domain.ImageCandidate, error)
}

// Searcher finds web candidates for a batch of items.
type Searcher interface {
	SearchBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate
}

// Generator renders and caches an image for one dish.
type Generator interface {
	Generate(ctx context.Context, name, description string) (domain.CacheRecord, error)
}

// ProgressSink receives stage-boundary updates for a task.
type ProgressSink interface {
	Update(taskID, stage string, percent float64, meta map[string]any)
}

// Config wires a Resolver. Semantic, Search and Generator may be nil;
// their stages are then skipped for every item.
type Config struct {
	Cache          Cache
	Semantic       Matcher
	Search         Searcher
	Generator      Generator
	Progress       ProgressSink
	PlaceholderURL string
	PerItemLimit   int
	Logger         infra.Logger
}

// Resolver runs the cascade. It is safe for concurrent use; per-call state
// lives on the stack.
type Resolver struct {
	cache       Cache
	semantic    Matcher
	search      Searcher
	generator   Generator
	progress    ProgressSink
	placeholder string
	perItem     int
	logger      infra.Logger
}

func NewResolver(cfg Config) *Resolver {
	if cfg.PerItemLimit < 1 {
		cfg.PerItemLimit = defaultPerItem
	}
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = defaultPlaceholderURL
	}
	if cfg.Semantic == nil {
		cfg.Logger.Info().Msg("pipeline: semantic stage disabled")
	}
	if cfg.Search == nil {
		cfg.Logger.Info().Msg("pipeline: search stage disabled")
	}
	if cfg.Generator == nil {
		cfg.Logger.Info().Msg("pipeline: generation stage disabled")
	}
	return &Resolver{
		cache:       cfg.Cache,
		semantic:    cfg.Semantic,
		search:      cfg.Search,
		generator:   cfg.Generator,
		progress:    cfg.Progress,
		placeholder: cfg.PlaceholderURL,
		perItem:     cfg.PerItemLimit,
		logger:      cfg.Logger,
	}
}

// ResolveImages resolves every item to at least one candidate. The map
// always holds an entry per item ID; per-item failures degrade to the
// placeholder, never to an error. A cancelled context stops new stage
// work, lets in-flight items settle, and sends the rest to the
// placeholder. The caller owns task start and completion on the tracker.
func (r *Resolver) ResolveImages(ctx context.Context, taskID string, items []domain.MenuItemRequest) map[string][]domain.ImageCandidate {
	results := make(map[string][]domain.ImageCandidate, len(items))
	if len(items) == 0 {
		return results
	}

	pending := append([]domain.MenuItemRequest(nil), items...)

	pending = r.stageCached(ctx, taskID, pending, results)
	pending = r.stageSemantic(ctx, taskID, pending, results)
	pending = r.stageSearch(ctx, taskID, pending, results)
	pending = r.stageGenerate(ctx, taskID, pending, results)
	r.stagePlaceholder(taskID, pending, results)

	return results
}

func (r *Resolver) stageCached(ctx context.Context, taskID string, pending []domain.MenuItemRequest, results map[string][]domain.ImageCandidate) []domain.MenuItemRequest {
	if r.cache == nil || len(pending) == 0 || ctx.Err() != nil {
		return pending
	}
	start := time.Now()

	found := r.cache.LookupBatch(ctx, pending, r.perItem)

	leftovers := make([]domain.MenuItemRequest, 0, len(pending))
	resolved := 0
	for _, item := range pending {
		if cands := found[item.ID]; len(cands) > 0 {
			results[item.ID] = cands
			metrics.Resolutions.WithLabelValues(string(domain.SourceCached)).Inc()
			resolved++
		} else {
			leftovers = append(leftovers, item)
		}
	}

	metrics.StageDuration.WithLabelValues("cached").Observe(time.Since(start).Seconds())
	r.progress.Update(taskID, "cached", percentCached, map[string]any{"cached": resolved, "pending": len(leftovers)})
	r.logger.Info().Str("task", taskID).Int("resolved", resolved).Int("pending", len(leftovers)).Msg("pipeline: cache stage done")
	return leftovers
}

func (r *Resolver) stageSemantic(ctx context.Context, taskID string, pending []domain.MenuItemRequest, results map[string][]domain.ImageCandidate) []domain.MenuItemRequest {
	if r.semantic == nil || len(pending) == 0 || ctx.Err() != nil {
		return pending
	}
	start := time.Now()

	found := make([]*domain.ImageCandidate, len(pending))
	var wg sync.WaitGroup
	for i, item := range pending {
		wg.Add(1)
		go func(i int, item domain.MenuItemRequest) {
			defer wg.Done()
			cand, err := r.semantic.Match(ctx, item)
			if err != nil {
				r.logger.Warn().Err(err).Str("item", item.Name).Msg("pipeline: semantic match failed")
				return
			}
			found[i] = cand
		}(i, item)
	}
	wg.Wait()

	leftovers := make([]domain.MenuItemRequest, 0, len(pending))
	resolved := 0
	for i, item := range pending {
		if found[i] != nil {
			results[item.ID] = []domain.ImageCandidate{*found[i]}
			metrics.Resolutions.WithLabelValues(string(domain.SourceSemantic)).Inc()
			resolved++
		} else {
			leftovers = append(leftovers, item)
		}
	}

	metrics.StageDuration.WithLabelValues("semantic").Observe(time.Since(start).Seconds())
	r.progress.Update(taskID, "semantic", percentSemantic, map[string]any{"semantic": resolved, "pending": len(leftovers)})
	r.logger.Info().Str("task", taskID).Int("resolved", resolved).Int("pending", len(leftovers)).Msg("pipeline: semantic stage done")
	return leftovers
}

func (r *Resolver) stageSearch(ctx context.Context, taskID string, pending []domain.MenuItemRequest, results map[string][]domain.ImageCandidate) []domain.MenuItemRequest {
	if r.search == nil || len(pending) == 0 || ctx.Err() != nil {
		return pending
	}
	start := time.Now()

	found := r.search.SearchBatch(ctx, pending, r.perItem)

	leftovers := make([]domain.MenuItemRequest, 0, len(pending))
	resolved := 0
	for _, item := range pending {
		if cands := found[item.ID]; len(cands) > 0 {
			results[item.ID] = cands
			metrics.Resolutions.WithLabelValues(string(domain.SourceSearch)).Inc()
			resolved++
		} else {
			leftovers = append(leftovers, item)
		}
	}

	metrics.StageDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	r.progress.Update(taskID, "search", percentSearch, map[string]any{"search": resolved, "pending": len(leftovers)})
	r.logger.Info().Str("task", taskID).Int("resolved", resolved).Int("pending", len(leftovers)).Msg("pipeline: search stage done")
	return leftovers
}

func (r *Resolver) stageGenerate(ctx context.Context, taskID string, pending []domain.MenuItemRequest, results map[string][]domain.ImageCandidate) []domain.MenuItemRequest {
	if r.generator == nil || len(pending) == 0 || ctx.Err() != nil {
		return pending
	}
	start := time.Now()
	total := len(pending)
	r.progress.Update(taskID, "generating", percentGenerate, map[string]any{"pending": total})

	found := make([]*domain.ImageCandidate, total)
	var done atomic.Int64
	var wg sync.WaitGroup
	for i, item := range pending {
		wg.Add(1)
		go func(i int, item domain.MenuItemRequest) {
			defer wg.Done()
			rec, err := r.generator.Generate(ctx, item.Name, item.Description)
			n := done.Add(1)
			pct := percentGenerate + float64(n)/float64(total)*(percentResolved-percentGenerate)
			if err != nil {
				r.logger.Warn().Err(err).Str("item", item.Name).Msg("pipeline: generation failed")
				r.progress.Update(taskID, "generating", pct, map[string]any{"generated": n})
				return
			}
			found[i] = &domain.ImageCandidate{
				URL:    rec.URL,
				Source: domain.SourceGenerated,
				Title:  rec.DishName,
				Width:  rec.Width,
				Height: rec.Height,
			}
			r.progress.Update(taskID, "generating", pct, map[string]any{"generated": n})
		}(i, item)
	}
	wg.Wait()

	leftovers := make([]domain.MenuItemRequest, 0, total)
	resolved := 0
	for i, item := range pending {
		if found[i] != nil {
			results[item.ID] = []domain.ImageCandidate{*found[i]}
			metrics.Resolutions.WithLabelValues(string(domain.SourceGenerated)).Inc()
			resolved++
		} else {
			leftovers = append(leftovers, item)
		}
	}

	metrics.StageDuration.WithLabelValues("generated").Observe(time.Since(start).Seconds())
	r.logger.Info().Str("task", taskID).Int("resolved", resolved).Int("pending", len(leftovers)).Msg("pipeline: generation stage done")
	return leftovers
}

// stagePlaceholder settles whatever is left. It never fails and ignores
// cancellation: every item must leave with a URL.
func (r *Resolver) stagePlaceholder(taskID string, pending []domain.MenuItemRequest, results map[string][]domain.ImageCandidate) {
	for _, item := range pending {
		results[item.ID] = []domain.ImageCandidate{{URL: r.placeholder, Source: domain.SourcePlaceholder}}
		metrics.Resolutions.WithLabelValues(string(domain.SourcePlaceholder)).Inc()
	}
	if len(pending) > 0 {
		r.logger.Info().Str("task", taskID).Int("items", len(pending)).Msg("pipeline: placeholder stage settled leftovers")
	}
	r.progress.Update(taskID, "resolved", percentResolved, map[string]any{"placeholder": len(pending)})
}
