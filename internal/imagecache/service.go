// Package imagecache is the first and last stop of image resolution:
// lookups run before any external call, and every search hit or
// generated image is stored back through it.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"menulens/internal/domain"
	"menulens/internal/foodname"
	"menulens/internal/imageproc"
	"menulens/internal/infra"
	"menulens/internal/metrics"
	"menulens/internal/storage"
)

const (
	downloadTimeout  = 10 * time.Second
	maxDownloadBytes = 15 << 20

	// similarityThreshold gates near-matches within a category.
	similarityThreshold = 0.3

	// categoryScanLimit bounds how many same-category records a
	// similarity pass considers.
	categoryScanLimit = 50

	// asyncStoreWorkers bounds concurrent fire-and-forget stores.
	asyncStoreWorkers = 4
)

// Service caches dish images: binary content deduplicated by hash in
// object storage, lookup metadata in Postgres.
type Service struct {
	records    RecordStore
	objects    storage.ObjectStore
	classifier foodname.Classifier
	httpc      *http.Client
	logger     infra.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// New constructs the cache service.
func New(records RecordStore, objects storage.ObjectStore, classifier foodname.Classifier, logger infra.Logger) *Service {
	return &Service{
		records:    records,
		objects:    objects,
		classifier: classifier,
		httpc:      &http.Client{Timeout: downloadTimeout},
		logger:     logger,
		sem:        make(chan struct{}, asyncStoreWorkers),
	}
}

// Lookup finds cached images for a dish: exact normalized-name match
// first, then same-category records scored by token-set similarity
// above the threshold, best first. A miss is (nil, nil).
func (s *Service) Lookup(ctx context.Context, name, description string, limit int) ([]domain.ImageCandidate, error) {
	if limit <= 0 {
		limit = 1
	}
	normalized := foodname.Normalize(name)

	recs, err := s.records.ByNormalizedName(ctx, normalized, limit)
	if err != nil {
		return nil, fmt.Errorf("imagecache: exact lookup %q: %w", normalized, err)
	}
	if len(recs) > 0 {
		return candidates(recs), nil
	}

	category := s.classifier.Categorize(name)
	recs, err = s.records.ByCategory(ctx, category, categoryScanLimit)
	if err != nil {
		return nil, fmt.Errorf("imagecache: category lookup %q: %w", category, err)
	}

	type scored struct {
		rec   domain.CacheRecord
		score float64
	}
	var matches []scored
	for _, rec := range recs {
		score := foodname.Jaccard(normalized, rec.NormalizedName)
		if score > similarityThreshold {
			matches = append(matches, scored{rec: rec, score: score})
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]domain.ImageCandidate, 0, len(matches))
	for _, m := range matches {
		c := candidate(m.rec)
		c.Score = m.score
		out = append(out, c)
	}
	return out, nil
}

// LookupBatch resolves many items concurrently. Per-item failures are
// logged and yield empty results; the batch itself never fails.
func (s *Service) LookupBatch(ctx context.Context, items []domain.MenuItemRequest, limit int) map[string][]domain.ImageCandidate {
	results := make([]([]domain.ImageCandidate), len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item domain.MenuItemRequest) {
			defer wg.Done()
			found, err := s.Lookup(ctx, item.Name, item.Description, limit)
			if err != nil {
				s.logger.Warn().Err(err).Str("item", item.Name).Msg("imagecache: lookup failed")
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

// Store downloads srcURL and persists it under the dish's
// content-addressed key. See StoreBytes for the dedup contract.
func (s *Service) Store(ctx context.Context, srcURL, name, description string, source domain.ImageSource) (domain.CacheRecord, error) {
	data, err := s.download(ctx, srcURL)
	if err != nil {
		return domain.CacheRecord{}, err
	}
	return s.StoreBytes(ctx, data, name, description, source)
}

// StoreBytes optimizes raw image bytes, hashes the optimized output and
// uploads under {category}/{slug}_{hash}.jpg. The upload is skipped
// when a metadata row already carries the same content hash; a new
// metadata row is written either way, so every dish name that produced
// the binary can find it.
func (s *Service) StoreBytes(ctx context.Context, data []byte, name, description string, source domain.ImageSource) (domain.CacheRecord, error) {
	rec, deduplicated, err := s.storeBytes(ctx, data, name, description, source)
	switch {
	case err != nil:
		metrics.CacheStores.WithLabelValues("failed").Inc()
	case deduplicated:
		metrics.CacheStores.WithLabelValues("deduplicated").Inc()
	default:
		metrics.CacheStores.WithLabelValues("stored").Inc()
	}
	return rec, err
}

func (s *Service) storeBytes(ctx context.Context, data []byte, name, description string, source domain.ImageSource) (domain.CacheRecord, bool, error) {
	opt, err := imageproc.Optimize(data, imageproc.DefaultMaxWidth)
	if err != nil {
		return domain.CacheRecord{}, false, fmt.Errorf("imagecache: optimize %q: %w", name, err)
	}

	hash := ContentHash(opt.Data)
	normalized := foodname.Normalize(name)
	category := s.classifier.Categorize(name)

	var key, url string
	var deduplicated bool
	existing, err := s.records.ByContentHash(ctx, hash)
	switch {
	case err == nil:
		key, url = existing.Key, existing.URL
		deduplicated = true
		s.logger.Debug().Str("hash", hash).Str("dish", name).Msg("imagecache: duplicate content, upload skipped")
	case errors.Is(err, domain.ErrNotFound):
		key = fmt.Sprintf("%s/%s_%s.jpg", category, foodname.Slug(name), hash)
		url, err = s.objects.Put(ctx, key, opt.Data, opt.ContentType)
		if err != nil {
			return domain.CacheRecord{}, false, fmt.Errorf("imagecache: upload %q: %w", key, err)
		}
	default:
		return domain.CacheRecord{}, false, err
	}

	rec := domain.CacheRecord{
		ID:             uuid.NewString(),
		DishName:       name,
		NormalizedName: normalized,
		Category:       category,
		Key:            key,
		URL:            url,
		ContentHash:    hash,
		Source:         source,
		Width:          opt.Width,
		Height:         opt.Height,
		Bytes:          int64(len(opt.Data)),
		CreatedAt:      time.Now(),
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return domain.CacheRecord{}, deduplicated, err
	}
	return rec, deduplicated, nil
}

// StoreAsync persists a search hit in the background. The caller's
// request finishes regardless of the outcome; failures are logged.
// Work runs under its own deadline, detached from the request context.
func (s *Service) StoreAsync(srcURL, name, description string, source domain.ImageSource) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout+20*time.Second)
		defer cancel()
		if _, err := s.Store(ctx, srcURL, name, description, source); err != nil {
			s.logger.Debug().Err(err).Str("dish", name).Str("url", srcURL).Msg("imagecache: async store failed")
		}
	}()
}

// Drain blocks until every StoreAsync goroutine has finished. Called
// on shutdown.
func (s *Service) Drain() {
	s.wg.Wait()
}

func (s *Service) download(ctx context.Context, srcURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imagecache: build download request: %w", err)
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagecache: download %q: %w", srcURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagecache: download %q: status %d", srcURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("imagecache: download %q: %w: content type %s", srcURL, domain.ErrInvalidImage, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imagecache: read body: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("imagecache: download %q: %w: exceeds %d bytes", srcURL, domain.ErrInvalidImage, maxDownloadBytes)
	}
	return data, nil
}

// ContentHash is the dedup key: the first 12 hex characters of the
// SHA-256 over the optimized bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func candidates(recs []domain.CacheRecord) []domain.ImageCandidate {
	out := make([]domain.ImageCandidate, 0, len(recs))
	for _, rec := range recs {
		out = append(out, candidate(rec))
	}
	return out
}

func candidate(rec domain.CacheRecord) domain.ImageCandidate {
	return domain.ImageCandidate{
		URL:    rec.URL,
		Source: domain.SourceCached,
		Title:  rec.DishName,
		Width:  rec.Width,
		Height: rec.Height,
	}
}
