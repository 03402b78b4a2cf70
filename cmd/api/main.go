package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menulens/internal/foodname"
	"menulens/internal/genimage"
	"menulens/internal/http/handlers"
	httpapi "menulens/internal/http/httpapi"
	"menulens/internal/imagecache"
	"menulens/internal/infra"
	"menulens/internal/infra/geoip"
	"menulens/internal/middleware"
	"menulens/internal/pipeline"
	"menulens/internal/progress"
	"menulens/internal/providers/cse"
	"menulens/internal/providers/genai"
	"menulens/internal/semantic"
	"menulens/internal/storage"
	"menulens/internal/vision"
	"menulens/internal/websearch"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "menulens-api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	objects, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	classifier := foodname.KeywordClassifier{}
	cache := imagecache.New(imagecache.NewPGRecordStore(runner), objects, classifier, logger)

	tracker := progress.NewTracker(logger)
	pipelineCfg := pipeline.Config{
		Cache:          cache,
		Progress:       tracker,
		PlaceholderURL: cfg.PlaceholderURL,
		Logger:         logger,
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY is not set: extraction and generation are unavailable")
	}

	cseClient, err := cse.NewClient(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
	if err != nil {
		logger.Warn().Err(err).Msg("web search disabled")
	} else if cseClient != nil {
		pipelineCfg.Search = websearch.New(cseClient, cache, logger)
	}

	if cfg.GeminiAPIKey != "" {
		genClient, err := genai.NewClient(genai.Options{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiImageModel,
			Logger:  &logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("image generation disabled")
		} else {
			limiter := genimage.NewSlidingWindow(cfg.GenRateLimitPerMin, time.Minute)
			pipelineCfg.Generator = genimage.NewGenerator(genClient, limiter, cache, logger)
		}
	}

	if cfg.SemanticEnabled && cfg.GeminiAPIKey != "" {
		sqlDB, err := infra.NewSQLDB(cfg.DatabaseURL)
		if err != nil {
			logger.Warn().Err(err).Msg("semantic matching disabled")
		} else {
			defer sqlDB.Close()
			embedder := semantic.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.GeminiEmbedModel)
			index := semantic.NewPGIndex(sqlDB, embedder)
			missing := semantic.NewPGMissingLog(runner)
			if matcher := semantic.NewMatcher(index, missing, classifier, cfg.SemanticThreshold, logger); matcher != nil {
				pipelineCfg.Semantic = matcher
			}
		}
	}

	var lookup middleware.CountryLookup
	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip lookups disabled")
	} else if geo != nil {
		defer geo.Close()
		lookup = geo.CountryCode
	}

	app := &handlers.App{
		SQL:       runner,
		Objects:   objects,
		Extractor: vision.NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiVision, logger),
		Resolver:  pipeline.NewResolver(pipelineCfg),
		Tracker:   tracker,
		Config:    cfg,
		Logger:    logger,
	}

	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	cache.Drain()
	logger.Info().Msg("server stopped")
}
