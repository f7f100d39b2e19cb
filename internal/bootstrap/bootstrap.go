// Package bootstrap builds the service graph shared by the API server and the
// CLI from configuration.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/trustscan/backend/config"
	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/infrastructure/cache"
	"github.com/trustscan/backend/internal/infrastructure/classifier"
	"github.com/trustscan/backend/internal/infrastructure/images"
	"github.com/trustscan/backend/internal/infrastructure/rapidapi"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
	"github.com/trustscan/backend/internal/usecase"
)

const redisKeyPrefix = "trustscan:"

// Cache is a key-value cache that owns resources.
type Cache interface {
	domain.CacheRepository
	Close() error
}

// Services holds the use cases and the resources behind them.
type Services struct {
	Products *usecase.ProductService
	Scoring  *usecase.ScoringService
	Images   *usecase.ImageService

	scoreCache Cache
	imageCache *cache.MemoryCache
	closers    []func() error
}

// NewLogger creates the application logger from configuration.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
}

// NewCache creates the configured cache backend.
func NewCache(cfg *config.Config, log logger.Logger) (Cache, error) {
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		log.Info("using redis cache", logger.Duration("ttl", cfg.Cache.TTL))
		return redisCache, nil
	case "memory", "":
		log.Info("using memory cache",
			logger.Int("max_entries", cfg.Cache.MaxEntries),
			logger.Duration("ttl", cfg.Cache.TTL))
		return cache.NewMemoryCache(cfg.Cache.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}
}

// NewImageCache creates the in-process image cache. It is bounded by bytes as
// well as entries and never shares storage with credibility results.
func NewImageCache(cfg *config.Config, log logger.Logger) *cache.MemoryCache {
	log.Info("using memory image cache",
		logger.Int("max_entries", cfg.Cache.MaxEntries),
		logger.Int64("max_bytes", cfg.Cache.ImageMaxBytes))
	return cache.NewMemoryCache(cfg.Cache.MaxEntries, cache.WithMaxBytes(cfg.Cache.ImageMaxBytes))
}

// NewClassifier creates the review classifier. The returned func releases it.
func NewClassifier(cfg *config.Config, log logger.Logger) (domain.Classifier, func() error) {
	model := classifier.NewLinearModel(cfg.Classifier.ModelPath, log)
	if !cfg.Classifier.Serialize {
		return model, func() error { return nil }
	}
	serialized := classifier.NewSerialized(model)
	log.Info("classifier calls are serialized")
	return serialized, serialized.Close
}

// NewServices wires clients, cache and classifier into the use cases.
func NewServices(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Services, error) {
	store, err := NewCache(cfg, log)
	if err != nil {
		return nil, err
	}

	clientOpts := []rapidapi.Option{rapidapi.WithLogger(log), rapidapi.WithMetrics(m)}
	products := rapidapi.NewProductClient(rapidapi.Config{
		BaseURL:         cfg.ProductAPI.BaseURL,
		Host:            cfg.ProductAPI.Host,
		APIKey:          cfg.ProductAPI.APIKey,
		RequestsPerHour: cfg.RateLimit.Upstream,
	}, clientOpts...)
	reviews := rapidapi.NewReviewClient(rapidapi.Config{
		BaseURL:         cfg.ReviewAPI.BaseURL,
		Host:            cfg.ReviewAPI.Host,
		APIKey:          cfg.ReviewAPI.APIKey,
		RequestsPerHour: cfg.RateLimit.Upstream,
	}, clientOpts...)

	model, closeModel := NewClassifier(cfg, log)
	imageStore := NewImageCache(cfg, log)

	return &Services{
		Products: usecase.NewProductService(products, reviews, log),
		Scoring: usecase.NewScoringService(model, store, usecase.ScoringServiceConfig{
			CacheTTL: cfg.Cache.TTL,
		}, log, m),
		Images:     usecase.NewImageService(images.NewFetcher(nil, log, m), imageStore, cfg.Cache.TTL, log, m),
		scoreCache: store,
		imageCache: imageStore,
		closers:    []func() error{closeModel, store.Close, imageStore.Close},
	}, nil
}

// Close releases the classifier and the caches.
func (s *Services) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
