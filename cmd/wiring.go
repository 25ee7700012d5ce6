package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/ai"
	"github.com/spigell/applicant-screener/internal/ai/gemini"
	"github.com/spigell/applicant-screener/internal/airtable"
	"github.com/spigell/applicant-screener/internal/cache"
	"github.com/spigell/applicant-screener/internal/config"
	"github.com/spigell/applicant-screener/internal/logger"
	"github.com/spigell/applicant-screener/internal/repository"
	"github.com/spigell/applicant-screener/internal/screening"
)

// runtime holds the dependencies shared by the compress and decompress commands.
type runtime struct {
	logger *zap.Logger
	config *config.Config
	repo   *repository.Repository
}

func newLogger(command, applicantID string) (*zap.Logger, error) {
	log, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	log = logger.WithFields(log, logger.RunFields(uuid.NewString(), command)...)
	return logger.WithFields(log, logger.ApplicantFields(applicantID)...), nil
}

func newRuntime(log *zap.Logger) (*runtime, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	apiKey, err := cfg.AirtableAPIKey()
	if err != nil {
		return nil, err
	}

	client := airtable.New(log, apiKey, cfg.Airtable.BaseID)
	if cfg.Airtable.URL != "" {
		client.APIURL = strings.TrimRight(cfg.Airtable.URL, "/")
	}
	if cfg.Airtable.UserAgent != "" {
		client.UserAgent = cfg.Airtable.UserAgent
	}
	if cfg.Airtable.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Airtable.Timeout
	}

	return &runtime{
		logger: log,
		config: cfg,
		repo:   repository.New(client, cfg.Airtable.Tables, log),
	}, nil
}

func (r *runtime) screener() *screening.Engine {
	return screening.New(r.config.Screening, r.logger)
}

// analyzer builds the Gemini analyzer, wrapped with the Redis cache when one is configured.
// The returned cleanup releases the cache connection. With refresh set a cached analysis is evicted and recomputed.
func (r *runtime) analyzer(ctx context.Context, refresh bool) (ai.Analyzer, func(), error) {
	settings := r.config.AI.Gemini

	apiKey, err := r.config.GeminiAPIKey()
	if err != nil {
		return nil, nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, settings.Model, settings.Timeout)
	if err != nil {
		return nil, nil, err
	}

	log := logger.WithCommonFields(r.logger, "gemini", generator.Model())
	analyzer := gemini.NewAnalyzer(generator, log, gemini.Options{
		MaxAttempts:  settings.MaxAttempts,
		BackoffBase:  settings.BackoffBase,
		MaxLogLength: settings.MaxLogLength,
	})

	if !r.config.Cache.Enabled() {
		return analyzer, func() {}, nil
	}

	redisCache, err := cache.NewRedis(ctx, r.config.Cache.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting analysis cache: %w", err)
	}

	log.Info("analysis cache enabled", zap.Duration("ttl", r.config.Cache.TTL))

	cleanup := func() {
		if err := redisCache.Close(); err != nil {
			log.Warn("closing analysis cache", zap.Error(err))
		}
	}

	cached := ai.NewCachedAnalyzer(analyzer, redisCache, r.config.Cache.TTL, log)
	cached.Refresh = refresh

	return cached, cleanup, nil
}
