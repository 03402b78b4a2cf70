// Package genimage renders dish photographs with Gemini when every cheaper
// resolution path has come up empty. Generation is the most expensive and
// the most throttled stage, so all traffic funnels through one shared
// sliding-window limiter and a small bounded retry loop.
package genimage

import (
	"context"
	"fmt"
	"time"

	"menulens/internal/domain"
	"menulens/internal/infra"
	"menulens/internal/metrics"
	"menulens/internal/providers/genai"
)

const maxAttempts = 3

var (
	rateLimitDelays = [maxAttempts]time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}
	transientDelays = [maxAttempts]time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
)

// ImageClient produces one image for a fully rendered prompt.
type ImageClient interface {
	GenerateDishImage(ctx context.Context, prompt string) (*genai.ImageAsset, error)
}

// Limiter gates generation attempts.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// CacheStore persists generated bytes into the dish image cache.
type CacheStore interface {
	StoreBytes(ctx context.Context, data []byte, name, description string, source domain.ImageSource) (domain.CacheRecord, error)
}

// Generator is the terminal fallback stage. Every successful render is
// written through the cache so the next menu containing the same dish never
// reaches this stage again.
type Generator struct {
	client  ImageClient
	limiter Limiter
	cache   CacheStore
	logger  infra.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewGenerator(client ImageClient, limiter Limiter, cache CacheStore, logger infra.Logger) *Generator {
	return &Generator{
		client:  client,
		limiter: limiter,
		cache:   cache,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Generate renders, optimizes and caches an image for the dish. Rate-limit
// rejections back off on a fixed 10s/20s/30s schedule, transient failures on
// an exponential 2s/4s/8s one. When attempts run out the dish is reported
// unresolved via domain.ErrUnresolved and the caller falls back to the
// placeholder.
func (g *Generator) Generate(ctx context.Context, name, description string) (domain.CacheRecord, error) {
	prompt := BuildPrompt(name, description)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := g.limiter.Acquire(ctx); err != nil {
			return domain.CacheRecord{}, err
		}

		asset, err := g.client.GenerateDishImage(ctx, prompt)
		if err == nil {
			record, storeErr := g.cache.StoreBytes(ctx, asset.Data, name, description, domain.SourceGenerated)
			if storeErr != nil {
				return domain.CacheRecord{}, fmt.Errorf("store generated image: %w", storeErr)
			}
			return record, nil
		}
		if ctx.Err() != nil {
			return domain.CacheRecord{}, ctx.Err()
		}
		lastErr = err

		var kind string
		var delay time.Duration
		switch {
		case genai.IsRateLimited(err):
			kind = "rate_limit"
			delay = rateLimitDelays[attempt]
		case genai.IsTransient(err):
			kind = "transient"
			delay = transientDelays[attempt]
		default:
			return domain.CacheRecord{}, fmt.Errorf("generate dish image %q: %w", name, err)
		}

		if attempt == maxAttempts-1 {
			break
		}

		metrics.GenerationRetries.WithLabelValues(kind).Inc()
		g.logger.Warn().
			Err(err).
			Str("dish", name).
			Str("kind", kind).
			Dur("backoff", delay).
			Int("attempt", attempt+1).
			Msg("genimage: generation failed, backing off")

		if err := g.sleep(ctx, delay); err != nil {
			return domain.CacheRecord{}, err
		}
	}

	return domain.CacheRecord{}, fmt.Errorf("generation attempts exhausted for %q: %w (last error: %v)", name, domain.ErrUnresolved, lastErr)
}
