package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/cardsage/cardsage/internal/catalog"
	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/config"
	"github.com/cardsage/cardsage/internal/engine"
	"github.com/cardsage/cardsage/internal/llm"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/observe"
	"github.com/cardsage/cardsage/internal/policy"
	"github.com/cardsage/cardsage/internal/profile"
	"github.com/cardsage/cardsage/internal/research"
	"github.com/cardsage/cardsage/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCatalog opens the card catalog with migrations applied. An empty
// catalog is seeded with the built-in card set so a fresh install can
// recommend something immediately.
func initCatalog(ctx context.Context) (*catalog.Store, error) {
	// Get database path from config
	dbPath := viper.GetString("catalog.path")
	if dbPath == "" {
		dbPath = config.DefaultCatalogPath()
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	store, err := catalog.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := store.EnsureSeeded(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	return store, nil
}

// createIntelligence creates the LLM collaborator based on configuration.
// This function is shared by every command that runs the pipeline.
func createIntelligence() (service.Intelligence, error) {
	// Read LLM configuration from viper
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai" // default provider
	}

	// Build config from viper settings
	cfg := llm.Config{
		Provider:    provider,
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		MaxRetries:  viper.GetInt("llm.max_retries"),
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}

	// Set defaults if not specified
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1000 // requests per minute
	}

	// Get API key based on provider
	switch provider {
	case "openai":
		// Check viper first, then environment variable
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not found in config or OPENAI_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	case "anthropic":
		// Check viper first, then environment variable
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable")
		}
		cfg.APIKey = apiKey

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	extractor, err := llm.NewExtractor(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM extractor: %w", err)
	}

	return extractor, nil
}

// buildEngine assembles the pipeline engine and its collaborators. The
// returned cleanup closes the catalog and LLM client and, when tracing is
// enabled, flushes any buffered spans.
func buildEngine(ctx context.Context, cmd *cobra.Command, trace bool) (*engine.Engine, func(), error) {
	// Flag overrides beat config file values for this invocation only.
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		viper.Set("llm.provider", provider)
	}
	if modelName, _ := cmd.Flags().GetString("model"); modelName != "" {
		viper.Set("llm.model", modelName)
	}

	intelligence, err := createIntelligence()
	if err != nil {
		return nil, nil, err
	}

	store, err := initCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	engineConfig := engine.DefaultConfig()
	engineConfig.Logger = slog.Default()

	var shutdownTracing func(context.Context) error
	if trace {
		shutdown, setupErr := observe.Setup(ctx, tracingConfig())
		if setupErr != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to set up tracing: %w", setupErr)
		}
		shutdownTracing = shutdown
		engineConfig.Observer = observe.NewTraceObserver()
	}

	eng := engine.NewWithConfig(
		intelligence,
		store,
		research.NewProvider(slog.Default()),
		policy.NewProvider(slog.Default()),
		engineConfig,
	)

	cleanup := func() {
		if closer, ok := intelligence.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				slog.Warn("Failed to close LLM client", "error", err)
			}
		}
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close catalog", "error", err)
		}
		if shutdownTracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				slog.Warn("Failed to flush traces", "error", err)
			}
		}
	}

	return eng, cleanup, nil
}

// tracingConfig reads exporter settings from viper, falling back to local
// collector defaults.
func tracingConfig() observe.Config {
	cfg := observe.DefaultConfig()
	cfg.ServiceVersion = version
	if endpoint := viper.GetString("tracing.endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if viper.IsSet("tracing.sample_rate") {
		cfg.SampleRate = viper.GetFloat64("tracing.sample_rate")
	}
	if viper.IsSet("tracing.insecure") {
		cfg.Insecure = viper.GetBool("tracing.insecure")
	}
	return cfg
}

// addRunFlags registers the flags shared by every pipeline-running command.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("locale", "l", "en-SG", "locale driving jurisdiction rules (e.g. en-SG)")
	cmd.Flags().Bool("no-personalization", false, "withhold personalization consent (drops spend focus and priorities)")
	cmd.Flags().Bool("allow-data-sharing", false, "grant data-sharing consent")
	cmd.Flags().String("provider", "", "LLM provider (openai, anthropic)")
	cmd.Flags().String("model", "", "LLM model override")
}

// consentFromFlags builds the run consent from command flags. Personalization
// defaults on and data sharing defaults off; flags flip each one explicitly.
func consentFromFlags(cmd *cobra.Command) model.Consent {
	consent := model.DefaultConsent()
	if noPersonalization, _ := cmd.Flags().GetBool("no-personalization"); noPersonalization {
		consent.Personalization = false
	}
	if allowSharing, _ := cmd.Flags().GetBool("allow-data-sharing"); allowSharing {
		consent.DataSharing = true
	}
	return consent
}

// loadSpendFocus parses an OFX statement and derives per-category spending
// shares for the run.
func loadSpendFocus(ctx context.Context, path string) (map[string]float64, error) {
	f, err := os.Open(config.ExpandPath(path)) // #nosec G304 -- user-supplied statement path
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open statement %s", path), err)
	}
	defer func() { _ = f.Close() }()

	spends, err := profile.NewParser().Parse(ctx, f)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not parse statement %s", path), err)
	}

	focus := profile.DeriveFocus(spends)
	if len(focus) == 0 {
		return nil, common.NewUserError(fmt.Sprintf("statement %s contains no spend entries", path), nil)
	}

	slog.Info("Derived spending focus from statement",
		"file", filepath.Base(path),
		"entries", len(spends),
		"categories", len(focus))

	return focus, nil
}

// truncate shortens s to max runes for table display.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
