package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/applicant"
	"github.com/spigell/applicant-screener/internal/cache"
)

const (
	cacheKeyPrefix  = "applicant-analysis:"
	DefaultCacheTTL = 24 * time.Hour
)

// CachedAnalyzer serves repeated analyses of the same compressed applicant from a cache.
type CachedAnalyzer struct {
	// Refresh evicts the cached analysis and asks the model again.
	Refresh bool

	next   Analyzer
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedAnalyzer(next Analyzer, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedAnalyzer {
	if c == nil {
		c = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedAnalyzer{next: next, cache: c, ttl: ttl, logger: logger}
}

// Analyze returns a cached analysis when one exists. Cache failures never fail the analysis.
func (a *CachedAnalyzer) Analyze(ctx context.Context, compressed *applicant.Compressed) (*Analysis, error) {
	key, err := CacheKey(compressed)
	if err != nil {
		return nil, err
	}

	if a.Refresh {
		if err := a.cache.Del(ctx, key); err != nil {
			a.logger.Warn("analysis cache eviction failed", zap.String("key", key), zap.Error(err))
		}
	} else if cached, ok := a.lookup(ctx, key); ok {
		return cached, nil
	}

	analysis, err := a.next.Analyze(ctx, compressed)
	if err != nil {
		return nil, err
	}

	if analysis.Failed {
		return analysis, nil
	}

	if err := a.cache.SetJSON(ctx, key, analysis, a.ttl); err != nil {
		a.logger.Warn("analysis cache store failed", zap.String("key", key), zap.Error(err))
	}

	return analysis, nil
}

func (a *CachedAnalyzer) lookup(ctx context.Context, key string) (*Analysis, bool) {
	var cached Analysis
	hit, err := a.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		a.logger.Warn("analysis cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}

	a.logger.Debug("analysis cache hit", zap.String("key", key))
	return &cached, true
}

// CacheKey derives the cache key from the canonical compressed JSON.
func CacheKey(compressed *applicant.Compressed) (string, error) {
	payload, err := compressed.Marshal()
	if err != nil {
		return "", fmt.Errorf("build cache key: %w", err)
	}

	sum := sha256.Sum256([]byte(payload))
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
