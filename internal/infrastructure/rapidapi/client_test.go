package rapidapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/metrics"
)

const productJSON = `{
	"gtin": "00070501110614",
	"properties": {
		"title": ["Neutrogena Lip Moisturizer SPF 15"],
		"description": "Hydrates lips",
		"brand": "Neutrogena"
	},
	"stores": [
		{"store": "Amazon UK", "url": "https://amazon.co.uk/dp/B000VJXIVI", "asin": "B000VJXIVI",
		 "price": {"price": 9.4, "currency": "GBP"}}
	]
}`

const reviewsJSON = `{
	"status": "OK",
	"request_id": "req-1",
	"parameters": {"asin": "B000VJXIVI", "country": "GB"},
	"data": {
		"asin": "B000VJXIVI",
		"total_reviews": 2,
		"total_ratings": 10,
		"country": "GB",
		"domain": "www.amazon.co.uk",
		"reviews": [
			{"review_id": "R1", "review_title": "Good", "review_comment": "Works well", "review_star_rating": "5",
			 "is_verified_purchase": true, "review_images": []},
			{"review_id": "R2", "review_title": "Bad", "review_comment": "Broke quickly", "review_star_rating": "1"}
		]
	}
}`

func testConfig(url string) Config {
	return Config{BaseURL: url, Host: "big-product-data.p.rapidapi.com", APIKey: "test-api-key", RequestsPerHour: 3_600_000}
}

func fastRetry() Option {
	return WithRetry(3, time.Millisecond)
}

func TestNewClient_Defaults(t *testing.T) {
	c := newClient("product", Config{BaseURL: "https://big-product-data.p.rapidapi.com/", APIKey: "k"})

	assert.Equal(t, "https://big-product-data.p.rapidapi.com", c.baseURL)
	assert.Equal(t, "big-product-data.p.rapidapi.com", c.host)
	assert.Equal(t, defaultMaxAttempts, c.maxAttempts)
	assert.NotNil(t, c.httpClient)
	assert.NotNil(t, c.rateLimiter)
}

func TestGetProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gtin/00070501110614", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "big-product-data.p.rapidapi.com", r.Header.Get("x-rapidapi-host"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productJSON))
	}))
	defer server.Close()

	client := NewProductClient(testConfig(server.URL))
	product, err := client.GetProduct(context.Background(), "00070501110614")

	require.NoError(t, err)
	assert.Equal(t, "00070501110614", product.GTIN)
	assert.Equal(t, []string{"Hydrates lips"}, product.Properties.Description)
	require.Len(t, product.Stores, 1)
	require.NotNil(t, product.Stores[0].Price)
	assert.Equal(t, "9.4", *product.Stores[0].Price.Price)
}

func TestGetProduct_NotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewProductClient(testConfig(server.URL), fastRetry())
	product, err := client.GetProduct(context.Background(), "12345678")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 must not be retried")
}

func TestGetProduct_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties": {"title": ["x"]}}`))
	}))
	defer server.Close()

	client := NewProductClient(testConfig(server.URL))
	_, err := client.GetProduct(context.Background(), "12345678")

	decodeErr, ok := domain.IsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, domain.MissingRequiredField, decodeErr.Kind)
	assert.Equal(t, "gtin", decodeErr.Field)
}

func TestGet_OversizedBodyIsUpstreamFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(productJSON))
	}))
	defer server.Close()

	client := NewProductClient(testConfig(server.URL), fastRetry())
	client.client.maxBodyBytes = int64(len(productJSON)) - 1

	product, err := client.GetProduct(context.Background(), "00070501110614")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "response larger than")
	_, isDecode := domain.IsDecodeError(err)
	assert.False(t, isDecode, "a truncated body must not reach the decoder")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "oversized responses are not retried")

	client.client.maxBodyBytes = int64(len(productJSON))
	_, err = client.GetProduct(context.Background(), "00070501110614")
	assert.NoError(t, err)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(productJSON))
	}))
	defer server.Close()

	m := metrics.New()
	client := NewProductClient(testConfig(server.URL), fastRetry(), WithMetrics(m))
	product, err := client.GetProduct(context.Background(), "00070501110614")

	require.NoError(t, err)
	assert.NotNil(t, product)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("product", "success")))
}

func TestGet_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewProductClient(testConfig(server.URL), fastRetry())
	_, err := client.GetProduct(context.Background(), "12345678")

	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		wantCalls int32
	}{
		{name: "rate limited is retried", status: http.StatusTooManyRequests, wantErr: domain.ErrRateLimited, wantCalls: 3},
		{name: "bad request is permanent", status: http.StatusBadRequest, wantErr: domain.ErrUpstreamFailure, wantCalls: 1},
		{name: "forbidden is permanent", status: http.StatusForbidden, wantErr: domain.ErrUpstreamFailure, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewProductClient(testConfig(server.URL), fastRetry())
			_, err := client.GetProduct(context.Background(), "12345678")

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewProductClient(testConfig(server.URL), fastRetry())
	_, err := client.GetProduct(ctx, "12345678")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetReviews_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/product-reviews", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "B000VJXIVI", q.Get("asin"))
		assert.Equal(t, "GB", q.Get("country"))
		assert.Equal(t, "TOP_REVIEWS", q.Get("sort_by"))
		assert.Equal(t, "ALL", q.Get("star_rating"))
		assert.Equal(t, "true", q.Get("verified_purchases_only"))
		assert.Equal(t, "false", q.Get("images_or_videos_only"))
		assert.Equal(t, "false", q.Get("current_format_only"))
		assert.Equal(t, "1", q.Get("page"))

		w.Write([]byte(reviewsJSON))
	}))
	defer server.Close()

	client := NewReviewClient(testConfig(server.URL))
	set, err := client.GetReviews(context.Background(), domain.ReviewQuery{ASIN: "B000VJXIVI", Country: "GB"})

	require.NoError(t, err)
	assert.Equal(t, "req-1", set.RequestID)
	require.Len(t, set.Reviews, 2)
	assert.Equal(t, "Works well", set.Reviews[0].Comment)
	assert.True(t, set.Reviews[0].IsVerifiedPurchase)
}

func TestGetReviews_InvalidQuery(t *testing.T) {
	client := NewReviewClient(testConfig("http://127.0.0.1:0"))

	_, err := client.GetReviews(context.Background(), domain.ReviewQuery{ASIN: "B000VJXIVI"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetReviews_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewReviewClient(testConfig(server.URL))
	_, err := client.GetReviews(context.Background(), domain.ReviewQuery{ASIN: "X", Country: "US", Page: 2})

	assert.ErrorIs(t, err, domain.ErrReviewsNotFound)
}
