package usecase

import (
	"context"
	"errors"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
)

// ScanResult is a decoded product with its reviews when a review source was
// found and the review lookup succeeded.
type ScanResult struct {
	Product      *domain.Product     `json:"product"`
	ReviewSource *domain.ReviewQuery `json:"reviewSource,omitempty"`
	Reviews      *domain.ReviewSet   `json:"reviews,omitempty"`
	ReviewsError string              `json:"reviewsError,omitempty"`
}

// ProductService runs the scan flow: product lookup, review-source
// resolution and review lookup.
type ProductService struct {
	products domain.ProductClient
	reviews  domain.ReviewClient
	logger   logger.Logger
}

// NewProductService creates a new product service with dependencies
func NewProductService(products domain.ProductClient, reviews domain.ReviewClient, log logger.Logger) *ProductService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProductService{
		products: products,
		reviews:  reviews,
		logger:   log.With(logger.Component("product_service")),
	}
}

// Scan looks up a product by GTIN and attaches its reviews. Only a failed
// product lookup fails the scan; review problems are reported in
// ReviewsError.
func (s *ProductService) Scan(ctx context.Context, rawGTIN string) (*ScanResult, error) {
	gtin, err := NormalizeGTIN(rawGTIN)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, gtin)
	if err != nil {
		s.logger.Warn("product lookup failed", logger.String("gtin", gtin), logger.Error(err))
		return nil, err
	}

	result := &ScanResult{Product: product}

	query, ok := ResolveReviewSource(product.Stores)
	if !ok {
		s.logger.Debug("no review source", logger.String("gtin", gtin))
		result.ReviewsError = domain.ErrNoReviewSource.Error()
		return result, nil
	}
	result.ReviewSource = &query

	reviews, err := s.reviews.GetReviews(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		s.logger.Warn("review lookup failed",
			logger.String("gtin", gtin),
			logger.String("asin", query.ASIN),
			logger.String("country", query.Country),
			logger.Error(err))
		result.ReviewsError = err.Error()
		return result, nil
	}
	result.Reviews = reviews

	s.logger.Info("product scanned",
		logger.String("gtin", gtin),
		logger.Int("stores", len(product.Stores)),
		logger.Int("reviews", len(reviews.Reviews)))
	return result, nil
}
