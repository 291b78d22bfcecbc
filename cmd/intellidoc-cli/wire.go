package main

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/extract"
	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/pipeline"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
	"github.com/spherical-ai/intellidoc/internal/split"
	"github.com/spherical-ai/intellidoc/internal/statuscache"
	"github.com/spherical-ai/intellidoc/internal/validation"
)

// openJobStores opens the result store and status cache for job
// inspection commands. The returned cleanup closes both.
func openJobStores(ctx context.Context) (results.Store, statuscache.Cache, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store results.Store
	if cfg.Database.Driver == "memory" {
		store = results.NewMemoryStore()
	} else {
		db, err := results.OpenDB(cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open database: %w", err)
		}
		closers = append(closers, db.Close)
		sqlStore := results.NewSQLStore(db)
		if err := sqlStore.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		store = sqlStore
	}

	var status statuscache.Cache
	if cfg.StatusCache.Driver == "redis" {
		cache, err := statuscache.NewRedisCache(statuscache.RedisConfig{
			Addr:     cfg.StatusCache.Redis.Addr,
			Password: cfg.StatusCache.Redis.Password,
			DB:       cfg.StatusCache.Redis.DB,
			PoolSize: cfg.StatusCache.Redis.PoolSize,
			TTL:      cfg.StatusCache.TTL,
		})
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect status cache: %w", err)
		}
		closers = append(closers, cache.Close)
		status = cache
	} else {
		status = statuscache.NewMemoryCache()
	}

	return store, status, cleanup, nil
}

// loadCatalog loads the configured catalog seed, or an empty catalog.
func loadCatalog() (catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.NewMemoryCatalog(), nil
	}
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// buildOrchestrator wires the full processing stack for the process
// command.
func buildOrchestrator(ctx context.Context) (*pipeline.Orchestrator, func(), error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, nil, err
	}

	store, status, cleanup, err := openJobStores(ctx)
	if err != nil {
		return nil, nil, err
	}

	agent := model.NewHTTPAgent(model.HTTPConfig{
		BaseURL:           cfg.Model.BaseURL,
		APIKey:            cfg.Model.APIKey,
		Model:             cfg.Model.Name,
		Temperature:       cfg.Model.Temperature,
		Timeout:           cfg.Model.Timeout,
		InputCostPerMTok:  cfg.Model.InputCostPerMTok,
		OutputCostPerMTok: cfg.Model.OutputCostPerMTok,
	}, logger)

	ingestSvc := ingest.NewService(ingest.Config{
		SupportedMIMETypes: cfg.Pipeline.SupportedMIMETypes,
		MaxFileSizeBytes:   cfg.MaxFileSizeBytes(),
	}, logger)
	ingestSvc.Register(ingest.NewLocalAdapter())
	if cfg.Ingestion.URLEnabled {
		ingestSvc.Register(ingest.NewURLAdapter(cfg.Ingestion.URLTimeout, cfg.Ingestion.TempDir))
	}

	preprocessSvc := preprocess.NewService(logger, preprocess.NewImageProcessor(cfg.Preprocessing.DefaultDPI), preprocess.Config{
		QualityFloor:    cfg.Preprocessing.QualityFloor,
		MaxPagesPerFile: cfg.Pipeline.MaxPagesPerFile,
	})

	splitSvc := split.NewService(cfg.Pipeline.DefaultSplittingStrategy, logger)
	splitSvc.Register(split.WholeDocumentSplitter{})
	splitSvc.Register(split.PageBasedSplitter{})
	splitSvc.Register(split.NewVisualSplitter(agent))

	engine := validation.NewEngine(logger,
		validation.FormatHandler{},
		validation.RangeHandler{},
		validation.RequiredHandler{},
		validation.CrossFieldHandler{},
		validation.NewVisualHandler(agent),
		validation.BusinessRuleHandler{},
		validation.CompletenessHandler{},
		validation.ChecksumHandler{},
		validation.LookupHandler{},
	)

	orch := pipeline.NewOrchestrator(cfg, store, status, pipeline.Services{
		Catalog:    cat,
		Ingest:     ingestSvc,
		Preprocess: preprocessSvc,
		Split:      splitSvc,
		Classify:   classify.NewService(cat, agent, logger),
		Extract:    extract.NewService(agent, logger),
		Validate:   validation.NewService(cat, engine, logger),
	},
		pipeline.NewFieldResolver(cat, cfg.Classification.DefaultConfidenceThreshold, logger),
		pipeline.NewWebhookDispatcher(logger),
		logger,
	)

	return orch, cleanup, nil
}
