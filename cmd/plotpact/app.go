package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"plotpact/internal/config"
	"plotpact/internal/continuation"
	"plotpact/internal/generate"
	"plotpact/internal/metrics"
	"plotpact/internal/oracle"
	"plotpact/internal/oracle/gemini"
	"plotpact/internal/oracle/openai"
	"plotpact/internal/session"
	"plotpact/internal/store"
	"plotpact/internal/store/memory"
	"plotpact/internal/store/mongo"
	"plotpact/internal/store/postgres"
	"plotpact/internal/store/sqlite"
	"plotpact/internal/verify"
)

var errNoOracle = errors.New("this command does not use the oracle")

// app is everything a command needs, opened from the project config.
type app struct {
	cfg     *config.ProjectConfig
	store   store.Store
	stories *session.Service
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// openApp loads the config and opens the store. The oracle is only
// connected when withOracle is set, so read-only commands run without a key.
func openApp(ctx context.Context, withOracle bool) (*app, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()
	m := metrics.New()

	templates, err := loadTemplates(cfg)
	if err != nil {
		return nil, err
	}

	var o oracle.Oracle = oracle.Func(func(ctx context.Context, req oracle.Request) (string, error) {
		return "", errNoOracle
	})
	if withOracle {
		provider, err := openOracle(ctx, cfg.Oracle)
		if err != nil {
			return nil, err
		}
		o = oracle.NewClient(provider, oracle.Options{
			Provider:   cfg.Oracle.Provider,
			Timeout:    cfg.Oracle.Timeout,
			MaxRetries: *cfg.Oracle.MaxRetries,
			Metrics:    m,
			Logger:     logger,
		})
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close(ctx)
		return nil, err
	}

	stories := session.New(st,
		generate.New(o, logger, m),
		verify.New(o, verify.Policy(cfg.Story.VerificationPolicy), logger, m),
		continuation.New(o, logger),
		session.Options{
			MinPlotLength:    cfg.Story.MinPlotLength,
			MaxParagraphs:    *cfg.Story.MaxParagraphs,
			SkipRegeneration: !*cfg.Story.RegenerateAfterAccept,
			Templates:        templates,
			Logger:           logger,
			Metrics:          m,
		})

	return &app{cfg: cfg, store: st, stories: stories, metrics: m, logger: logger}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	kind, err := config.StoreKind(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	opts := store.Options{Retention: cfg.Story.Retention}
	switch kind {
	case "memory":
		return memory.New(opts), nil
	case "sqlite":
		return sqlite.New(ctx, cfg.Database.DSN, opts)
	case "postgres":
		return postgres.New(ctx, cfg.Database.DSN, opts)
	case "mongo":
		return mongo.New(ctx, cfg.Database.DSN, cfg.Database.Name, opts)
	default:
		return nil, fmt.Errorf("unsupported store: %s", kind)
	}
}

func openOracle(ctx context.Context, cfg config.OracleConfig) (oracle.Oracle, error) {
	key, keyErr := cfg.APIKey()
	switch cfg.Provider {
	case "gemini":
		if keyErr != nil {
			return nil, keyErr
		}
		return gemini.New(ctx, key, cfg.Model)
	case "openai":
		// Local OpenAI-compatible servers often run without a key.
		if keyErr != nil && cfg.BaseURL == "" {
			return nil, keyErr
		}
		return openai.New(key, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

func loadTemplates(cfg *config.ProjectConfig) ([]session.Template, error) {
	path := cfg.Story.Templates
	if path == "" {
		if _, err := os.Stat(config.DefaultTemplatesFile); err != nil {
			return nil, nil
		}
		path = config.DefaultTemplatesFile
	}
	loaded, err := config.LoadTemplates(path, cfg.Story.MinPlotLength)
	if err != nil {
		return nil, err
	}
	templates := make([]session.Template, 0, len(loaded))
	for _, t := range loaded {
		templates = append(templates, session.Template{Name: t.Name, Title: t.Title, Plot: t.Plot})
	}
	return templates, nil
}
