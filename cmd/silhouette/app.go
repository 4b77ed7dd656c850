package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/analyzer"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/config"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/database"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/eventstore"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/flowcontrol"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/graph"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/orchestrator"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/planner"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/projection"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/routing"
	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/schedule"
)

// app wires the services a command needs from one config.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	db           *database.DB
	events       eventstore.Store
	projections  projection.Store
	router       *routing.Router
	planner      *planner.Service
	orchestrator *orchestrator.Service
}

// newApp opens the database, runs migrations, and constructs the
// service graph.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg)

	dbCfg := database.DefaultConfig(cfg.Database.Path)
	if cfg.Database.BusyTimeoutMS > 0 {
		dbCfg.BusyTimeout = time.Duration(cfg.Database.BusyTimeoutMS) * time.Millisecond
	}
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	events := eventstore.NewDBStore(db)
	projections := projection.NewDBStore(db)

	table := routing.DefaultCapabilityTable()
	if cfg.Routing.CapabilityTablePath != "" {
		table, err = routing.LoadCapabilityTable(cfg.Routing.CapabilityTablePath)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	router := routing.NewRouter(table)

	model, err := buildModel(cfg.Model)
	if err != nil {
		db.Close()
		return nil, err
	}

	var objectiveAnalyzer analyzer.ObjectiveAnalyzer = analyzer.NewKeywordAnalyzer()
	var refiner orchestrator.Refiner = orchestrator.NoopRefiner{}
	if model != nil {
		objectiveAnalyzer = analyzer.NewModelAnalyzer(model, analyzer.WithLogger(logger))
		refiner = orchestrator.NewModelRefiner(model, cfg.Orchestrator.RefinerTimeout, logger)
	}

	planSvc := planner.NewService(planner.Dependencies{
		Events:      events,
		Projections: projections,
		Analyzer:    objectiveAnalyzer,
		Builder:     graph.NewBuilder(router),
		Scheduler:   schedule.NewAnalyzer(),
		Limiter:     flowcontrol.NewLimiter(nil),
		Deduper:     flowcontrol.NewDeduper(cfg.FlowControl.DedupTTL),
		Logger:      logger,
	}, cfg.Planner)

	orchSvc := orchestrator.NewService(orchestrator.Dependencies{
		Events:      events,
		Projections: projections,
		Router:      router,
		Refiner:     refiner,
		Callback:    orchestrator.NewHTTPCallback(cfg.Orchestrator.CallbackTimeout, logger),
		Logger:      logger,
	})

	return &app{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		events:       events,
		projections:  projections,
		router:       router,
		planner:      planSvc,
		orchestrator: orchSvc,
	}, nil
}

// close drains the planning queue and releases resources.
func (a *app) close() {
	a.planner.Close()
	a.orchestrator.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

// buildModel constructs the optional language model client. An empty
// provider disables model-backed analysis and refinement.
func buildModel(cfg config.ModelConfig) (analyzer.TextModel, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		opts := []ollama.Option{}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		if cfg.Name != "" {
			opts = append(opts, ollama.WithModel(cfg.Name))
		}
		return ollama.New(opts...)
	case "openai":
		opts := []openai.Option{}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Name != "" {
			opts = append(opts, openai.WithModel(cfg.Name))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown model provider %q (supported: ollama, openai)", cfg.Provider)
	}
}
