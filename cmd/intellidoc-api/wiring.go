package main

import (
	"context"
	"fmt"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/config"
	"github.com/spherical-ai/intellidoc/internal/extract"
	"github.com/spherical-ai/intellidoc/internal/ingest"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
	"github.com/spherical-ai/intellidoc/internal/pipeline"
	"github.com/spherical-ai/intellidoc/internal/preprocess"
	"github.com/spherical-ai/intellidoc/internal/results"
	"github.com/spherical-ai/intellidoc/internal/split"
	"github.com/spherical-ai/intellidoc/internal/statuscache"
	"github.com/spherical-ai/intellidoc/internal/validation"
)

// application holds the wired processing stack and its closers.
type application struct {
	Orchestrator *pipeline.Orchestrator
	Catalog      catalog.Catalog

	closers []func() error
}

// Close releases store and cache connections.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApplication wires the full processing stack from configuration.
func buildApplication(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*application, error) {
	app := &application{}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	app.Catalog = cat

	store, err := openStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	status, err := openStatusCache(cfg, app)
	if err != nil {
		app.Close()
		return nil, err
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
	if cfg.Ingestion.LocalEnabled {
		ingestSvc.Register(ingest.NewLocalAdapter())
	}
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

	classifySvc := classify.NewService(cat, agent, logger)
	extractSvc := extract.NewService(agent, logger)

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
	validateSvc := validation.NewService(cat, engine, logger)

	resolver := pipeline.NewFieldResolver(cat, cfg.Classification.DefaultConfidenceThreshold, logger)
	webhook := pipeline.NewWebhookDispatcher(logger)

	app.Orchestrator = pipeline.NewOrchestrator(cfg, store, status, pipeline.Services{
		Catalog:    cat,
		Ingest:     ingestSvc,
		Preprocess: preprocessSvc,
		Split:      splitSvc,
		Classify:   classifySvc,
		Extract:    extractSvc,
		Validate:   validateSvc,
	}, resolver, webhook, logger)

	return app, nil
}

func loadCatalog(cfg *config.Config) (catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.NewMemoryCatalog(), nil
	}
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func openStore(ctx context.Context, cfg *config.Config, app *application) (results.Store, error) {
	if cfg.Database.Driver == "memory" {
		return results.NewMemoryStore(), nil
	}

	db, err := results.OpenDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	store := results.NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func openStatusCache(cfg *config.Config, app *application) (statuscache.Cache, error) {
	if cfg.StatusCache.Driver != "redis" {
		return statuscache.NewMemoryCache(), nil
	}

	cache, err := statuscache.NewRedisCache(statuscache.RedisConfig{
		Addr:     cfg.StatusCache.Redis.Addr,
		Password: cfg.StatusCache.Redis.Password,
		DB:       cfg.StatusCache.Redis.DB,
		PoolSize: cfg.StatusCache.Redis.PoolSize,
		TTL:      cfg.StatusCache.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect status cache: %w", err)
	}
	app.closers = append(app.closers, cache.Close)
	return cache, nil
}
