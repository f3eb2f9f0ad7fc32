package app

import (
	"context"
	"time"

	"github.com/doeshing/aibridge/internal/infrastructure/ai"
	"github.com/doeshing/aibridge/internal/infrastructure/config"
	"github.com/doeshing/aibridge/internal/infrastructure/history"
	"github.com/doeshing/aibridge/internal/infrastructure/session"
	"github.com/doeshing/aibridge/internal/pkg/dedupe"
	"github.com/doeshing/aibridge/internal/pkg/logger"
	"github.com/doeshing/aibridge/internal/ports"
	"github.com/doeshing/aibridge/internal/services"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	ChatService   *services.ChatService
	DoctorService *services.DoctorService
	Registry      *services.ExecutorRegistry
	Router        *services.SmartRouter
	Sessions      *session.Manager
	ConfigLoader  *config.FileLoader
	HistoryStore  *history.SQLiteStore
	Logger        ports.Logger
}

// BuildContainer constructs the dependency graph from the loaded config.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)

	registry := services.NewExecutorRegistry(cfg.Registry.ConfigFile, log)
	for _, apiCfg := range cfg.APIExecutors {
		executor, err := ai.NewAPIExecutor(apiCfg, log)
		if err != nil {
			log.Warn("skipping API executor", map[string]interface{}{
				"provider": apiCfg.Provider, "error": err.Error(),
			})
			continue
		}
		registry.RegisterAPIExecutor(apiCfg.Provider, executor, nil)
	}
	for _, cliCfg := range cfg.CLIExecutors {
		executor, err := ai.NewCLIExecutor(cliCfg, log)
		if err != nil {
			log.Warn("skipping CLI executor", map[string]interface{}{
				"provider": cliCfg.Provider, "error": err.Error(),
			})
			continue
		}
		registry.RegisterCLIExecutor(cliCfg.Provider, executor, nil)
	}

	router := services.NewSmartRouter(registry, services.RouterOptions{
		DefaultProvider:     cfg.Defaults.Provider,
		DefaultLayer:        cfg.Defaults.Layer,
		DefaultCLIProvider:  cfg.Defaults.CLIProvider,
		UseAIClassification: cfg.Routing.AIIntentClassification,
	}, log)

	sessions, err := session.NewManager(session.Options{
		StoragePath: cfg.Session.StoragePath,
		MaxMessages: cfg.Session.MaxMessages,
		Timeout:     time.Duration(cfg.Session.TimeoutSeconds) * time.Second,
	}, log)
	if err != nil {
		return nil, err
	}

	historyStore := history.NewSQLiteStore()

	chatService := &services.ChatService{
		Dedupe:   dedupe.New(cfg.Dedupe.CacheSize),
		Sessions: sessions,
		Router:   router,
		Recorder: historyStore,
		Logger:   log,
	}

	doctorService := &services.DoctorService{
		ConfigProvider: cfgLoader,
		Registry:       registry,
	}

	return &Container{
		ChatService:   chatService,
		DoctorService: doctorService,
		Registry:      registry,
		Router:        router,
		Sessions:      sessions,
		ConfigLoader:  cfgLoader,
		HistoryStore:  historyStore,
		Logger:        log,
	}, nil
}
