package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"menulens/internal/foodname"
	"menulens/internal/genimage"
	"menulens/internal/imagecache"
	"menulens/internal/infra"
	"menulens/internal/infra/credentials"
	"menulens/internal/providers/genai"
	"menulens/internal/sqlinline"
	"menulens/internal/storage"
)

const claimBatchSize = 5

type missingDish struct {
	ID             string
	Name           string
	NormalizedName string
	Category       string
}

type backfillWorker struct {
	ctx       context.Context
	runner    *infra.SQLRunner
	logger    infra.Logger
	generator *genimage.Generator
	poll      time.Duration
}

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "menulens-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	objects, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	cache := imagecache.New(imagecache.NewPGRecordStore(runner), objects, foodname.KeywordClassifier{}, logger)

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		} else {
			geminiAPIKey = keyFromStore
		}
	}
	if geminiAPIKey == "" {
		logger.Fatal().Msg("worker: gemini api key is required, set GEMINI_API_KEY or store one with geminikey")
	}

	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  geminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiImageModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}

	limiter := genimage.NewSlidingWindow(cfg.GenRateLimitPerMin, time.Minute)

	worker := &backfillWorker{
		ctx:       ctx,
		runner:    runner,
		logger:    logger,
		generator: genimage.NewGenerator(geminiClient, limiter, cache, logger),
		poll:      cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	cache.Drain()
	logger.Info().Msg("worker: stopped")
}

// Run claims batches of logged missing dishes and renders an image for each
// until the context is cancelled.
func (w *backfillWorker) Run() error {
	w.logger.Info().Dur("poll_interval", w.poll).Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		dishes, err := w.claimBatch()
		if err != nil {
			w.logger.Error().Err(err).Msg("worker: failed to claim missing dishes")
		}
		if len(dishes) == 0 {
			w.sleep()
			continue
		}

		for _, dish := range dishes {
			if w.ctx.Err() != nil {
				w.release(dish.ID)
				continue
			}
			w.handleDish(dish)
		}
	}
}

func (w *backfillWorker) claimBatch() ([]missingDish, error) {
	rows, err := w.runner.Query(w.ctx, sqlinline.QClaimMissingDishes, claimBatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []missingDish
	for rows.Next() {
		var d missingDish
		if err := rows.Scan(&d.ID, &d.Name, &d.NormalizedName, &d.Category); err != nil {
			w.logger.Error().Err(err).Msg("worker: scan missing dish failed")
			continue
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (w *backfillWorker) handleDish(dish missingDish) {
	w.logger.Info().Str("dish_id", dish.ID).Str("name", dish.Name).Msg("worker: backfilling dish image")
	start := time.Now()

	record, err := w.generator.Generate(w.ctx, dish.Name, "")
	if err != nil {
		w.logger.Error().Err(err).Str("dish_id", dish.ID).Str("name", dish.Name).Msg("worker: backfill failed")
		w.release(dish.ID)
		return
	}

	w.logger.Info().
		Str("dish_id", dish.ID).
		Str("name", dish.Name).
		Str("image_url", record.URL).
		Dur("took", time.Since(start)).
		Msg("worker: dish image cached")
}

// release puts a claimed dish back in the queue. It still has to land when
// the worker context is already cancelled, so shutdown swaps in a short
// detached context.
func (w *backfillWorker) release(dishID string) {
	ctx := w.ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if _, err := w.runner.Exec(ctx, sqlinline.QReleaseMissingDish, dishID); err != nil {
		w.logger.Error().Err(err).Str("dish_id", dishID).Msg("worker: release missing dish failed")
	}
}

func (w *backfillWorker) sleep() {
	select {
	case <-w.ctx.Done():
	case <-time.After(w.poll):
	}
}
