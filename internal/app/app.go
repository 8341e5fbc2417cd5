// Package app wires configuration into the running pieces shared by the
// server and the CLI: storage, the fetch client, providers and the service.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/config"
	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/llm"
	"github.com/fleveque/icon-service/internal/provider"
	"github.com/fleveque/icon-service/internal/service"
	"github.com/fleveque/icon-service/internal/storage"
)

// App holds the wired components. Close releases the database.
type App struct {
	DB          *sqlx.DB
	LookupRepo  storage.LookupRepository
	LLMCallRepo storage.LLMCallRepository
	FileSystem  *storage.FileSystem
	Client      *fetch.HTTPClient
	IconService *service.IconService
}

// New opens storage and builds the icon service from cfg.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	fs, err := storage.NewFileSystem(cfg.Storage.IconDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating icon store: %w", err)
	}

	a := &App{
		DB:          db,
		LookupRepo:  storage.NewLookupRepository(db),
		LLMCallRepo: storage.NewLLMCallRepository(db),
		FileSystem:  fs,
		Client:      fetch.NewHTTPClient(cfg.Scraper.FetchOptions()),
	}

	providers := Providers(cfg, a.Client, a.LLMCallRepo, logger)
	a.IconService = service.NewIconService(a.Client, cfg.Scraper.ScraperOptions(), a.LookupRepo, fs, providers, logger)

	return a, nil
}

// Close closes the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// Providers builds the fallback providers: mirrors first, then the LLMs that
// have an API key, in llm.provider_order.
func Providers(cfg *config.Config, client fetch.Client, llmCallRepo storage.LLMCallRepository, logger *zap.Logger) []provider.IconProvider {
	var providers []provider.IconProvider

	if len(cfg.Mirrors.Templates) > 0 {
		providers = append(providers, provider.NewMirrorProvider(cfg.Mirrors.Templates, client, logger))
	}

	clients := LLMClients(cfg.LLM, logger)
	if len(clients) > 0 {
		providers = append(providers, provider.NewLLMProvider(clients, cfg.LLM.RatePerMinute, llmCallRepo, client, logger))
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logger.Info("fallback providers configured", zap.Strings("providers", names))

	return providers
}

// LLMClients returns a client per configured provider with an API key.
// Unknown names are logged and skipped.
func LLMClients(cfg config.LLMConfig, logger *zap.Logger) []llm.Client {
	var clients []llm.Client
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "anthropic":
			if cfg.Anthropic.APIKey != "" {
				clients = append(clients, llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
			}
		case "openai":
			if cfg.OpenAI.APIKey != "" {
				clients = append(clients, llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
			}
		default:
			logger.Warn("unknown llm provider", zap.String("provider", name))
		}
	}
	return clients
}
