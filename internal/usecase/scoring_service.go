package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trustscan/backend/internal/credibility"
	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	credibilityKeyPrefix = "credibility:"
	defaultScoringTTL    = 24 * time.Hour
	defaultConcurrency   = 4
)

// ScoringServiceConfig holds configuration for the scoring service
type ScoringServiceConfig struct {
	CacheTTL    time.Duration
	Concurrency int
}

// ScoringService scores reviews on demand. A successful score is kept in the
// cache so each review is classified once; concurrent requests for the same
// review share a single classification. Failures are neither cached nor
// retried.
type ScoringService struct {
	pipeline    *credibility.Pipeline
	cache       domain.CacheRepository
	group       singleflight.Group
	cacheTTL    time.Duration
	concurrency int
	logger      logger.Logger
	metrics     *metrics.Metrics
}

// NewScoringService creates a scoring service around classifier.
func NewScoringService(
	classifier domain.Classifier,
	cache domain.CacheRepository,
	config ScoringServiceConfig,
	log logger.Logger,
	m *metrics.Metrics,
) *ScoringService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultScoringTTL
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &ScoringService{
		pipeline:    credibility.NewPipeline(classifier),
		cache:       cache,
		cacheTTL:    cacheTTL,
		concurrency: concurrency,
		logger:      log.With(logger.Component("scoring_service")),
		metrics:     m,
	}
}

// Score returns the credibility of one review. Reviews without an id are
// scored every time since there is nothing to key them by.
func (s *ScoringService) Score(ctx context.Context, review domain.Review) (*domain.Credibility, error) {
	if review.ID == "" {
		return s.compute(ctx, review)
	}

	key := credibilityKey(review)
	if cached, ok := s.getFromCache(ctx, key); ok {
		return cached, nil
	}

	// The shared computation must not die with the first caller's context.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		if cached, ok := s.getFromCache(ctx, key); ok {
			return cached, nil
		}
		result, err := s.compute(context.WithoutCancel(ctx), review)
		if err != nil {
			return nil, err
		}
		s.setInCache(context.WithoutCancel(ctx), key, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyCredibility(res.Val.(*domain.Credibility)), nil
	}
}

// ScoreAll scores reviews concurrently and returns copies with Credibility
// set. A review that fails to score keeps a nil Credibility and does not
// affect the others. The returned count is the number of failures.
func (s *ScoringService) ScoreAll(ctx context.Context, reviews []domain.Review) ([]domain.Review, int, error) {
	out := make([]domain.Review, len(reviews))
	copy(out, reviews)

	failures := make([]bool, len(reviews))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range out {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.Score(gctx, out[i])
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return err
				}
				failures[i] = true
				return nil
			}
			out[i].Credibility = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	failed := 0
	for _, f := range failures {
		if f {
			failed++
		}
	}
	return out, failed, nil
}

func (s *ScoringService) compute(ctx context.Context, review domain.Review) (*domain.Credibility, error) {
	start := time.Now()
	result, err := s.pipeline.Score(ctx, review.Comment)
	if err != nil {
		kind := "unknown"
		if classifierErr, ok := domain.IsClassifierError(err); ok {
			kind = classifierErr.Kind.String()
		}
		s.metrics.ObserveScoringFailure(kind)
		s.logger.Warn("review scoring failed",
			logger.String("review_id", review.ID),
			logger.String("kind", kind),
			logger.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.ObserveScore(result.Label, result.Score, elapsed)
	s.logger.Debug("review scored",
		logger.String("review_id", review.ID),
		logger.String("label", result.Label),
		logger.Float64("score", result.Score),
		logger.Duration("elapsed", elapsed))
	return result, nil
}

func (s *ScoringService) getFromCache(ctx context.Context, key string) (*domain.Credibility, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("credibility cache read failed", logger.String("key", key), logger.Error(err))
		}
		s.metrics.ObserveCache("credibility", false)
		return nil, false
	}

	var result domain.Credibility
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("discarding unreadable cached credibility", logger.String("key", key), logger.Error(err))
		s.metrics.ObserveCache("credibility", false)
		return nil, false
	}
	s.metrics.ObserveCache("credibility", true)
	return &result, true
}

func (s *ScoringService) setInCache(ctx context.Context, key string, result *domain.Credibility) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to encode credibility", logger.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("credibility cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// credibilityKey binds a memoized score to both the review id and the text
// that was scored, so a different comment under the same id is scored anew.
func credibilityKey(review domain.Review) string {
	h := fnv.New64a()
	h.Write([]byte(review.Comment))
	return credibilityKeyPrefix + review.ID + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func copyCredibility(c *domain.Credibility) *domain.Credibility {
	out := *c
	out.Distribution = make(map[string]float64, len(c.Distribution))
	for k, v := range c.Distribution {
		out.Distribution[k] = v
	}
	return &out
}
