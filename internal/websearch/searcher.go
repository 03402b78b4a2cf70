// Package websearch resolves dish images through Google Custom Search:
// a strict pass over curated food domains, then a loose pass when the
// strict one comes up short. Results are filtered for relevance,
// deduplicated, and cached in the background.
package websearch

import (
	"context"
	"strings"
	"sync"
	"time"

	"menulens/internal/domain"
	"menulens/internal/infra"
	"menulens/internal/metrics"
)

const (
	searchTimeout = 30 * time.Second

	// maxPerCall is the CSE per-request ceiling.
	maxPerCall = 10
)

// Result is one raw image hit from the search provider.
type Result struct {
	Title         string
	Snippet       string
	Link          string
	DisplayLink   string
	ContextLink   string
	ThumbnailLink string
	MIME          string
	Width         int64
	Height        int64
}

// SearchClient executes one image search. Implementations own their
// transport; num is the maximum result count.
type SearchClient interface {
	SearchImages(ctx context.Context, query string, num int64) ([]Result, error)
}

// AsyncStore receives fire-and-forget cache writes for fresh hits.
type AsyncStore interface {
	StoreAsync(srcURL, name, description string, source domain.ImageSource)
}

// Searcher turns menu items into filtered, deduplicated image
// candidates.
type Searcher struct {
	client SearchClient
	cache  AsyncStore
	logger infra.Logger
}

// New constructs a Searcher. cache may be nil when background caching
// is not wanted.
func New(client SearchClient, cache AsyncStore, logger infra.Logger) *Searcher {
	return &Searcher{client: client, cache: cache, logger: logger}
}

// Search returns up to limit image candidates for one dish. Provider
// errors are absorbed: the dish simply gets fewer (possibly zero)
// candidates. Only context cancellation aborts.
func (s *Searcher) Search(ctx context.Context, name, description string, limit int) ([]domain.ImageCandidate, error) {
	if limit <= 0 {
		limit = 1
	}

	core, modifiers := normalizeMenuItem(name)
	savory := isSavoryCore(core)

	coreKeywords := map[string]struct{}{core: {}}
	if strings.Contains(core, "burger") {
		for _, kw := range []string{"burger", "hamburger", "cheeseburger"} {
			coreKeywords[kw] = struct{}{}
		}
	}
	for i, m := range modifiers {
		if i >= 2 {
			break
		}
		coreKeywords[m] = struct{}{}
	}

	seenImages := map[string]struct{}{}
	seenPages := map[string]struct{}{}
	var picked []Result

	strict := s.call(ctx, "strict", strictQuery(core, modifiers, description), int64(min(limit*2, maxPerCall)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, item := range strict {
		if len(picked) >= limit {
			break
		}
		if isDup(item, seenImages, seenPages) {
			continue
		}
		if !isRelevant(item, coreKeywords, savory) {
			continue
		}
		mark(item, seenImages, seenPages)
		picked = append(picked, item)
	}

	if len(picked) < limit {
		needed := limit - len(picked)
		loose := s.call(ctx, "loose", looseQuery(core, modifiers, description), int64(min(needed*2, maxPerCall)))
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, item := range loose {
			if len(picked) >= limit {
				break
			}
			if isDup(item, seenImages, seenPages) {
				continue
			}
			if !isRelevant(item, map[string]struct{}{core: {}}, savory) {
				continue
			}
			// Off the curated domains the title itself must name the dish.
			if !fromFoodDomain(item.DisplayLink) && !strings.Contains(strings.ToLower(item.Title), core) {
				continue
			}
			mark(item, seenImages, seenPages)
			picked = append(picked, item)
		}
	}

	if len(picked) > 0 {
		s.logger.Debug().Str("dish", name).Int("hits", len(picked)).Msg("websearch: images found")
	}

	out := make([]domain.ImageCandidate, 0, len(picked))
	for _, item := range picked {
		if s.cache != nil {
			s.cache.StoreAsync(item.Link, name, description, domain.SourceSearch)
		}
		out = append(out, domain.ImageCandidate{
			URL:          item.Link,
			ThumbnailURL: item.ThumbnailLink,
			Source:       domain.SourceSearch,
			Title:        item.Title,
			Width:        int(item.Width),
			Height:       int(item.Height),
		})
	}
	return out, nil
}

// SearchBatch fans Search out across items. Every item gets an entry;
// per-item failures become empty slices.
func (s *Searcher) SearchBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate {
	results := make([]([]domain.ImageCandidate), len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item domain.MenuItemRequest) {
			defer wg.Done()
			found, err := s.Search(ctx, item.Name, item.Description, limit)
			if err != nil {
				s.logger.Warn().Err(err).Str("item", item.Name).Msg("websearch: search aborted")
				return
			}
			results[i] = found
		}(i, item)
	}
	wg.Wait()

	out := make(map[string][]domain.ImageCandidate, len(items))
	for i, item := range items {
		out[item.ID] = results[i]
	}
	return out
}

// call runs one provider query under the search timeout, absorbing
// provider errors.
func (s *Searcher) call(ctx context.Context, pass, query string, num int64) []Result {
	callCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	metrics.SearchRequests.WithLabelValues(pass).Inc()
	items, err := s.client.SearchImages(callCtx, query, num)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", truncate(query, 120)).Msg("websearch: provider call failed")
		return nil
	}
	return items
}

// isDup reports whether the result was already accepted, by canonical
// image URL or by source page. Sets are only updated via mark, so a
// rejected result never blocks a later one.
func isDup(item Result, seenImages, seenPages map[string]struct{}) bool {
	if _, dup := seenImages[canonicalURL(item.Link)]; dup {
		return true
	}
	if item.ContextLink != "" {
		if _, dup := seenPages[item.ContextLink]; dup {
			return true
		}
	}
	return false
}

func mark(item Result, seenImages, seenPages map[string]struct{}) {
	seenImages[canonicalURL(item.Link)] = struct{}{}
	if item.ContextLink != "" {
		seenPages[item.ContextLink] = struct{}{}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
