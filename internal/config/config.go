package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/applicant-screener/internal/repository"
	"github.com/spigell/applicant-screener/internal/screening"
	"github.com/spigell/applicant-screener/internal/secrets"
)

const (
	EnvAirtableAPIKey     = "AIRTABLE_API_KEY"
	EnvAirtableAPIKeyFile = "AIRTABLE_API_KEY_FILE"
	EnvAirtableBaseID     = "AIRTABLE_BASE_ID"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvGeminiAPIKeyFile   = "GEMINI_API_KEY_FILE"
	EnvRedisURL           = "REDIS_URL"
)

type Config struct {
	Airtable  *AirtableConfig `mapstructure:"airtable"`
	AI        *AIConfig       `mapstructure:"ai"`
	Screening screening.Rules `mapstructure:"screening"`
	Cache     *CacheConfig    `mapstructure:"cache"`
}

type AirtableConfig struct {
	APIKey     string            `mapstructure:"api-key"`
	APIKeyFile string            `mapstructure:"api-key-file"`
	BaseID     string            `mapstructure:"base-id"`
	URL        string            `mapstructure:"url"`
	UserAgent  string            `mapstructure:"user-agent"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Tables     repository.Tables `mapstructure:"tables"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxAttempts  int           `mapstructure:"max-attempts"`
	BackoffBase  float64       `mapstructure:"backoff-base"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether analyses are cached in Redis.
func (c *CacheConfig) Enabled() bool {
	return c != nil && strings.TrimSpace(c.RedisURL) != ""
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	tables := repository.DefaultTables()
	rules := screening.DefaultRules()

	v.SetDefault("airtable.url", "https://api.airtable.com")
	v.SetDefault("airtable.timeout", 30*time.Second)
	v.SetDefault("airtable.tables.personal", tables.Personal)
	v.SetDefault("airtable.tables.experience", tables.Experience)
	v.SetDefault("airtable.tables.salary", tables.Salary)
	v.SetDefault("airtable.tables.applicants", tables.Applicants)
	v.SetDefault("airtable.tables.shortlisted-leads", tables.ShortlistedLeads)

	v.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	v.SetDefault("ai.gemini.max-attempts", 3)
	v.SetDefault("ai.gemini.backoff-base", 2)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("ai.gemini.timeout", 2*time.Minute)

	v.SetDefault("screening.tier1-companies", rules.Tier1Companies)
	v.SetDefault("screening.min-years-experience", rules.MinYearsExperience)
	v.SetDefault("screening.max-rate", rules.MaxRate)
	v.SetDefault("screening.min-availability", rules.MinAvailability)
	v.SetDefault("screening.countries", rules.Countries)

	v.SetDefault("cache.ttl", 24*time.Hour)
}

// BindEnv maps the well-known environment variables onto their settings.
func BindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"airtable.api-key":       EnvAirtableAPIKey,
		"airtable.api-key-file":  EnvAirtableAPIKeyFile,
		"airtable.base-id":       EnvAirtableBaseID,
		"ai.gemini.api-key":      EnvGeminiAPIKey,
		"ai.gemini.api-key-file": EnvGeminiAPIKeyFile,
		"cache.redis-url":        EnvRedisURL,
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}

	return nil
}

// Load applies defaults and environment bindings to v and returns the validated configuration.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	var cfg *Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Airtable == nil || strings.TrimSpace(c.Airtable.BaseID) == "" {
		errs = append(errs, fmt.Errorf("airtable.base-id is required (set %s)", EnvAirtableBaseID))
	}

	if c.Airtable != nil {
		t := c.Airtable.Tables
		for _, table := range []struct{ key, name string }{
			{"personal", t.Personal},
			{"experience", t.Experience},
			{"salary", t.Salary},
			{"applicants", t.Applicants},
			{"shortlisted-leads", t.ShortlistedLeads},
		} {
			if strings.TrimSpace(table.name) == "" {
				errs = append(errs, fmt.Errorf("airtable.tables.%s must not be empty", table.key))
			}
		}
	}

	if c.AI == nil || c.AI.Gemini == nil {
		errs = append(errs, errors.New("ai.gemini section is required"))
	} else {
		if c.AI.Gemini.MaxAttempts < 1 {
			errs = append(errs, errors.New("ai.gemini.max-attempts must be at least 1"))
		}
		if c.AI.Gemini.BackoffBase < 1 {
			errs = append(errs, errors.New("ai.gemini.backoff-base must be at least 1"))
		}
	}

	rules := c.Screening
	if rules.MinYearsExperience < 0 || rules.MaxRate < 0 || rules.MinAvailability < 0 {
		errs = append(errs, errors.New("screening thresholds must not be negative"))
	}
	if len(rules.Countries) == 0 {
		errs = append(errs, errors.New("screening.countries must not be empty"))
	}

	if c.Cache != nil && c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	return errors.Join(errs...)
}

// AirtableAPIKey resolves the Airtable token from the key file, the inline key or the environment.
func (c *Config) AirtableAPIKey() (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "airtable api key",
		File:  c.Airtable.APIKeyFile,
		Value: c.Airtable.APIKey,
		Env:   EnvAirtableAPIKey,
	})
}

// GeminiAPIKey resolves the Gemini key the same way as AirtableAPIKey.
func (c *Config) GeminiAPIKey() (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  c.AI.Gemini.APIKeyFile,
		Value: c.AI.Gemini.APIKey,
		Env:   EnvGeminiAPIKey,
	})
}
