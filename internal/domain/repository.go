package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProductClient fetches a product record by GTIN
type ProductClient interface {
	GetProduct(ctx context.Context, gtin string) (*Product, error)
}

// ReviewClient fetches the reviews of one ASIN on one marketplace
type ReviewClient interface {
	GetReviews(ctx context.Context, query ReviewQuery) (*ReviewSet, error)
}

// Classifier predicts a label for a shaped token sequence of length
// SequenceLength. Implementations must be safe for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, sequence []int32) (*Prediction, error)
}

// ImageFetcher downloads raw image bytes
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}
