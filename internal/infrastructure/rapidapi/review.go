package rapidapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/infrastructure/payload"
)

const reviewAPI = "reviews"

// ReviewClient fetches verified-purchase reviews for an ASIN.
type ReviewClient struct {
	client *Client
}

// NewReviewClient creates a client for the review API.
func NewReviewClient(cfg Config, opts ...Option) *ReviewClient {
	return &ReviewClient{client: newClient(reviewAPI, cfg, opts...)}
}

// GetReviews fetches and decodes one page of top reviews.
func (r *ReviewClient) GetReviews(ctx context.Context, query domain.ReviewQuery) (*domain.ReviewSet, error) {
	if query.ASIN == "" || query.Country == "" {
		return nil, fmt.Errorf("%w: asin and country are required", domain.ErrInvalidRequest)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("asin", query.ASIN)
	params.Set("country", query.Country)
	params.Set("sort_by", "TOP_REVIEWS")
	params.Set("star_rating", "ALL")
	params.Set("verified_purchases_only", "true")
	params.Set("images_or_videos_only", "false")
	params.Set("current_format_only", "false")
	params.Set("page", strconv.Itoa(page))

	body, err := r.client.get(ctx, "/product-reviews", params)
	if errors.Is(err, errNotFound) {
		return nil, domain.ErrReviewsNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload.DecodeReviews(body)
}
