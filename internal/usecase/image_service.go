package usecase

import (
	"bytes"
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

const (
	imageKeyPrefix  = "image:"
	defaultImageTTL = 24 * time.Hour
)

// Image is a downloaded store image.
type Image struct {
	Data        []byte
	ContentType string
}

// ImageService serves store images through the key-value cache, keyed by URL.
type ImageService struct {
	fetcher  domain.ImageFetcher
	cache    domain.CacheRepository
	group    singleflight.Group
	cacheTTL time.Duration
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewImageService creates an image service. A non-positive ttl uses 24h.
func NewImageService(fetcher domain.ImageFetcher, cache domain.CacheRepository, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *ImageService {
	if ttl <= 0 {
		ttl = defaultImageTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ImageService{
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: ttl,
		logger:   log.With(logger.Component("image_service")),
		metrics:  m,
	}
}

// Get returns the image at url from the cache, downloading it on a miss.
func (s *ImageService) Get(ctx context.Context, url string) (*Image, error) {
	key := imageKeyPrefix + url

	if img, ok := s.getFromCache(ctx, key); ok {
		return img, nil
	}

	// Waiters share one download, so it runs detached from any single caller.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		data, contentType, err := s.fetcher.FetchImage(shared, url)
		if err != nil {
			return nil, err
		}
		img := &Image{Data: data, ContentType: contentType}
		s.setInCache(shared, key, img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	}
}

// Cached images are stored as "<content type>\n<bytes>".
func encodeImage(img *Image) []byte {
	out := make([]byte, 0, len(img.ContentType)+1+len(img.Data))
	out = append(out, img.ContentType...)
	out = append(out, '\n')
	return append(out, img.Data...)
}

func decodeImage(data []byte) (*Image, bool) {
	i := bytes.IndexByte(data, '\n')
	if i <= 0 {
		return nil, false
	}
	return &Image{ContentType: string(data[:i]), Data: data[i+1:]}, true
}

func (s *ImageService) getFromCache(ctx context.Context, key string) (*Image, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("image cache read failed", logger.Error(err))
		}
		s.metrics.ObserveCache("images", false)
		return nil, false
	}
	img, ok := decodeImage(data)
	s.metrics.ObserveCache("images", ok)
	return img, ok
}

func (s *ImageService) setInCache(ctx context.Context, key string, img *Image) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, encodeImage(img), s.cacheTTL); err != nil {
		s.logger.Warn("image cache write failed", logger.Error(err))
	}
}
