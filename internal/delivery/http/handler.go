package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trustscan/backend/internal/domain"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/usecase"
)

const (
	serviceName    = "trustscan-backend"
	serviceVersion = "1.0.0"

	statusScored      = "scored"
	statusUnavailable = "unavailable"
	statusPending     = "pending"

	verdictCredible   = "credible"
	verdictSuspicious = "suspicious"

	// statusClientClosedRequest is nginx's code for a client that went away.
	statusClientClosedRequest = 499
)

// ProductScanner runs the scan flow for a GTIN
type ProductScanner interface {
	Scan(ctx context.Context, gtin string) (*usecase.ScanResult, error)
}

// ReviewScorer scores reviews on demand
type ReviewScorer interface {
	Score(ctx context.Context, review domain.Review) (*domain.Credibility, error)
	ScoreAll(ctx context.Context, reviews []domain.Review) ([]domain.Review, int, error)
}

// ImageProvider serves cached store images
type ImageProvider interface {
	Get(ctx context.Context, url string) (*usecase.Image, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	products  ProductScanner
	scorer    ReviewScorer
	images    ImageProvider
	threshold float64
	logger    logger.Logger
}

// NewHandler creates a new HTTP handler. threshold is the display cut-off
// used for the credible/suspicious verdict.
func NewHandler(products ProductScanner, scorer ReviewScorer, images ImageProvider, threshold float64, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		products:  products,
		scorer:    scorer,
		images:    images,
		threshold: threshold,
		logger:    log.With(logger.Component("http")),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// GetProduct handles GET /api/v1/products/:gtin
func (h *Handler) GetProduct(c *gin.Context) {
	result, err := h.products.Scan(c.Request.Context(), c.Param("gtin"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// reviewResponse is a review with its display state.
type reviewResponse struct {
	domain.Review
	CredibilityStatus string `json:"credibilityStatus"`
	Verdict           string `json:"verdict,omitempty"`
}

// GetProductReviews handles GET /api/v1/products/:gtin/reviews. With
// score=true every review is scored; a review that cannot be scored is
// returned with status "unavailable".
func (h *Handler) GetProductReviews(c *gin.Context) {
	score := false
	if raw := c.Query("score"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, fmt.Errorf("%w: score must be a boolean", domain.ErrInvalidRequest))
			return
		}
		score = parsed
	}

	result, err := h.products.Scan(c.Request.Context(), c.Param("gtin"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	reviews := []domain.Review{}
	if result.Reviews != nil {
		reviews = result.Reviews.Reviews
	}

	failed := 0
	if score && len(reviews) > 0 {
		reviews, failed, err = h.scorer.ScoreAll(c.Request.Context(), reviews)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	out := make([]reviewResponse, len(reviews))
	for i, review := range reviews {
		out[i] = h.toReviewResponse(review, score)
	}

	c.JSON(http.StatusOK, gin.H{
		"gtin":         result.Product.GTIN,
		"reviewSource": result.ReviewSource,
		"reviewsError": result.ReviewsError,
		"reviews":      out,
		"scored":       len(reviews) - failed,
		"failed":       failed,
		"threshold":    h.threshold,
	})
}

func (h *Handler) toReviewResponse(review domain.Review, scored bool) reviewResponse {
	resp := reviewResponse{Review: review, CredibilityStatus: statusPending}
	if !scored {
		return resp
	}
	if review.Credibility == nil {
		resp.CredibilityStatus = statusUnavailable
		return resp
	}
	resp.CredibilityStatus = statusScored
	resp.Verdict = h.verdict(*review.Credibility)
	return resp
}

func (h *Handler) verdict(c domain.Credibility) string {
	if c.Passes(h.threshold) {
		return verdictCredible
	}
	return verdictSuspicious
}

// CredibilityRequest is the body of POST /api/v1/reviews/credibility
type CredibilityRequest struct {
	ReviewID string  `json:"review_id"`
	Comment  *string `json:"comment" binding:"required"`
}

// ScoreReview handles POST /api/v1/reviews/credibility. A classifier failure
// is not an HTTP error: the response carries a null credibility.
func (h *Handler) ScoreReview(c *gin.Context) {
	var req CredibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "request body must contain a comment",
			"code":  "invalid_request",
		})
		return
	}

	result, err := h.scorer.Score(c.Request.Context(), domain.Review{ID: req.ReviewID, Comment: *req.Comment})
	if err != nil {
		if classifierErr, ok := domain.IsClassifierError(err); ok {
			c.JSON(http.StatusOK, gin.H{
				"reviewId":          req.ReviewID,
				"credibility":       nil,
				"credibilityStatus": statusUnavailable,
				"reason":            classifierErr.Kind.String(),
			})
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewId":          req.ReviewID,
		"credibility":       result.Score,
		"label":             result.Label,
		"confidence":        result.Confidence,
		"distribution":      result.Distribution,
		"credibilityStatus": statusScored,
		"verdict":           h.verdict(*result),
		"threshold":         h.threshold,
	})
}

// GetImage handles GET /api/v1/images?url=
func (h *Handler) GetImage(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		h.respondError(c, fmt.Errorf("%w: url is required", domain.ErrInvalidRequest))
		return
	}

	img, err := h.images.Get(c.Request.Context(), url)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// respondError maps domain errors to HTTP statuses. A cancelled request is
// the client hanging up, not a server error, so it is not recorded on the
// context.
func (h *Handler) respondError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		c.AbortWithStatusJSON(statusClientClosedRequest, gin.H{
			"error": "client closed request",
			"code":  "client_closed_request",
		})
		return
	}
	_ = c.Error(err)

	if decodeErr, ok := domain.IsDecodeError(err); ok {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": decodeErr.Error(),
			"code":  "decode_error",
			"field": decodeErr.Field,
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrReviewsNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrUpstreamFailure):
		status, code = http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}
