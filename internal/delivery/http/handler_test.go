package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustscan/backend/config"
	"github.com/trustscan/backend/internal/credibility"
	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/infrastructure/cache"
	"github.com/trustscan/backend/internal/metrics"
	"github.com/trustscan/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeProducts struct {
	product *domain.Product
	err     error
}

func (f *fakeProducts) GetProduct(ctx context.Context, gtin string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

type fakeReviews struct {
	set *domain.ReviewSet
	err error
}

func (f *fakeReviews) GetReviews(ctx context.Context, query domain.ReviewQuery) (*domain.ReviewSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

// keywordClassifier says CG when the text contains "amazing", fails on
// "crash" and answers with an infinite score on "overflow".
type keywordClassifier struct{}

func (keywordClassifier) Predict(ctx context.Context, sequence []int32) (*domain.Prediction, error) {
	amazing := int32(credibility.TokenIndex("amazing"))
	crash := int32(credibility.TokenIndex("crash"))
	overflow := int32(credibility.TokenIndex("overflow"))
	for _, token := range sequence {
		switch token {
		case crash:
			return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: errors.New("crash")}
		case overflow:
			return &domain.Prediction{Label: "OR", RawScores: map[string]float64{"OR": math.Inf(1), "CG": 0}}, nil
		case amazing:
			return &domain.Prediction{Label: "CG", RawScores: map[string]float64{"OR": 0.1, "CG": 0.9}}, nil
		}
	}
	return &domain.Prediction{Label: "OR", RawScores: map[string]float64{"OR": 0.8, "CG": 0.2}}, nil
}

type fakeImages struct {
	data []byte
	err  error
}

func (f *fakeImages) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "image/png", nil
}

type testEnv struct {
	products *fakeProducts
	reviews  *fakeReviews
	images   *fakeImages
	metrics  *metrics.Metrics
	router   *gin.Engine
}

func asin(s string) *string { return &s }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		products: &fakeProducts{product: &domain.Product{
			GTIN:       "00070501110614",
			Properties: domain.ProductProperties{Title: []string{"Lip Moisturizer"}},
			Stores: []domain.StoreOffer{
				{Store: "Amazon UK", URL: "https://amazon.co.uk/dp/B000VJXIVI", ASIN: asin("B000VJXIVI")},
			},
		}},
		reviews: &fakeReviews{set: &domain.ReviewSet{
			ASIN: "B000VJXIVI",
			Reviews: []domain.Review{
				{ID: "R1", Comment: "Works but the smell is strong"},
				{ID: "R2", Comment: "Amazing product buy now"},
				{ID: "R3", Comment: "crash"},
			},
		}},
		images:  &fakeImages{data: []byte{0x89, 'P', 'N', 'G'}},
		metrics: metrics.New(),
	}

	memory := cache.NewMemoryCache(100)
	t.Cleanup(func() { memory.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
		Display:   config.DisplayConfig{CredibilityThreshold: 0.6},
	}

	handler := NewHandler(
		usecase.NewProductService(env.products, env.reviews, nil),
		usecase.NewScoringService(keywordClassifier{}, memory, usecase.ScoringServiceConfig{}, nil, env.metrics),
		usecase.NewImageService(env.images, memory, 0, nil, env.metrics),
		cfg.Display.CredibilityThreshold,
		nil,
	)
	env.router = SetupRouter(cfg, handler, nil, env.metrics)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "trustscan-backend", response["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/health", "")

	w, _ := env.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trustscan_http_requests_total")
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, http.MethodGet, "/api/v1/products/00070501110614", "")

	require.Equal(t, http.StatusOK, w.Code)
	product := response["product"].(map[string]interface{})
	assert.Equal(t, "00070501110614", product["gtin"])
	source := response["reviewSource"].(map[string]interface{})
	assert.Equal(t, "GB", source["country"])
	reviews := response["reviews"].(map[string]interface{})
	assert.Len(t, reviews["reviews"], 3)
}

func TestGetProduct_Errors(t *testing.T) {
	tests := []struct {
		name       string
		gtin       string
		productErr error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid gtin", gtin: "abc", wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "not found", gtin: "12345678", productErr: domain.ErrProductNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "decode error", gtin: "12345678", productErr: domain.NewMissingFieldError("properties.title"), wantStatus: http.StatusBadGateway, wantCode: "decode_error"},
		{name: "rate limited", gtin: "12345678", productErr: domain.ErrRateLimited, wantStatus: http.StatusTooManyRequests, wantCode: "rate_limited"},
		{name: "upstream failure", gtin: "12345678", productErr: domain.ErrUpstreamFailure, wantStatus: http.StatusBadGateway, wantCode: "upstream_failure"},
		{name: "unexpected", gtin: "12345678", productErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.products.err = tt.productErr

			w, response := env.do(t, http.MethodGet, "/api/v1/products/"+tt.gtin, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, response["code"])
		})
	}
}

func TestGetProduct_DecodeErrorNamesField(t *testing.T) {
	env := newTestEnv(t)
	env.products.err = domain.NewMissingFieldError("stores[0].url")

	_, response := env.do(t, http.MethodGet, "/api/v1/products/12345678", "")

	assert.Equal(t, "stores[0].url", response["field"])
}

func TestGetProduct_ReviewFailureStillRendersProduct(t *testing.T) {
	env := newTestEnv(t)
	env.reviews.err = domain.ErrUpstreamFailure

	w, response := env.do(t, http.MethodGet, "/api/v1/products/00070501110614", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, response["product"])
	assert.Nil(t, response["reviews"])
	assert.Equal(t, domain.ErrUpstreamFailure.Error(), response["reviewsError"])
}

func TestGetProductReviews_Scored(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, http.MethodGet, "/api/v1/products/00070501110614/reviews?score=true", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), response["scored"])
	assert.Equal(t, float64(1), response["failed"])

	reviews := response["reviews"].([]interface{})
	require.Len(t, reviews, 3)

	authentic := reviews[0].(map[string]interface{})
	assert.Equal(t, "scored", authentic["credibilityStatus"])
	assert.Equal(t, "credible", authentic["verdict"])
	assert.InDelta(t, 0.8, authentic["credibility"].(map[string]interface{})["score"], 1e-9)

	generated := reviews[1].(map[string]interface{})
	assert.Equal(t, "suspicious", generated["verdict"])
	assert.InDelta(t, 0.1, generated["credibility"].(map[string]interface{})["score"], 1e-9)

	failed := reviews[2].(map[string]interface{})
	assert.Equal(t, "unavailable", failed["credibilityStatus"])
	assert.Nil(t, failed["credibility"])
}

func TestGetProductReviews_Unscored(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, http.MethodGet, "/api/v1/products/00070501110614/reviews", "")

	require.Equal(t, http.StatusOK, w.Code)
	reviews := response["reviews"].([]interface{})
	require.Len(t, reviews, 3)
	assert.Equal(t, "pending", reviews[0].(map[string]interface{})["credibilityStatus"])
}

func TestGetProductReviews_InvalidScoreParam(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/products/00070501110614/reviews?score=maybe", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScoreReview(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantState   string
		wantVerdict string
	}{
		{
			name:        "authentic review",
			body:        `{"review_id": "R9", "comment": "Works but the smell is strong"}`,
			wantStatus:  http.StatusOK,
			wantState:   "scored",
			wantVerdict: "credible",
		},
		{
			name:        "generated review",
			body:        `{"comment": "Amazing amazing"}`,
			wantStatus:  http.StatusOK,
			wantState:   "scored",
			wantVerdict: "suspicious",
		},
		{
			name:       "classifier failure is not an HTTP error",
			body:       `{"review_id": "R10", "comment": "crash"}`,
			wantStatus: http.StatusOK,
			wantState:  "unavailable",
		},
		{
			name:       "non-finite scores are a classifier failure",
			body:       `{"review_id": "R12", "comment": "overflow"}`,
			wantStatus: http.StatusOK,
			wantState:  "unavailable",
		},
		{
			name:       "empty comment is scored",
			body:       `{"comment": ""}`,
			wantStatus: http.StatusOK,
			wantState:  "scored",
		},
		{
			name:       "missing comment",
			body:       `{"review_id": "R11"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w, response := env.do(t, http.MethodPost, "/api/v1/reviews/credibility", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantState != "" {
				assert.Equal(t, tt.wantState, response["credibilityStatus"])
			}
			if tt.wantVerdict != "" {
				assert.Equal(t, tt.wantVerdict, response["verdict"])
			}
		})
	}
}

func TestScoreReview_ForeignCommentDoesNotPinReviewScore(t *testing.T) {
	env := newTestEnv(t)

	w, response := env.do(t, http.MethodPost, "/api/v1/reviews/credibility",
		`{"review_id": "R1", "comment": "amazing amazing amazing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "suspicious", response["verdict"])

	w, response = env.do(t, http.MethodGet, "/api/v1/products/00070501110614/reviews?score=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	genuine := response["reviews"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "R1", genuine["id"])
	assert.Equal(t, "credible", genuine["verdict"])
	assert.InDelta(t, 0.8, genuine["credibility"].(map[string]interface{})["score"], 1e-9)
}

func TestRespondError_ClientCancelled(t *testing.T) {
	h := NewHandler(nil, nil, nil, 0.6, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/products/12345678", nil)

	h.respondError(c, fmt.Errorf("scan: %w", context.Canceled))

	assert.Equal(t, statusClientClosedRequest, w.Code)
	assert.Contains(t, w.Body.String(), "client_closed_request")
	assert.Empty(t, c.Errors, "a hang-up is not logged as a server error")
}

func TestRespondError_DeadlineExceeded(t *testing.T) {
	h := NewHandler(nil, nil, nil, 0.6, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/products/12345678", nil)

	h.respondError(c, context.DeadlineExceeded)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Len(t, c.Errors, 1)
}

func TestGetImage(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/images?url=https://m.media-amazon.com/images/I/71.jpg", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes())
}

func TestGetImage_Errors(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/images", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.images.err = domain.ErrUpstreamFailure
	w, _ = env.do(t, http.MethodGet, "/api/v1/images?url=https://example.com/x.png", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
