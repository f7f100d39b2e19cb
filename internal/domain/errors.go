package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when the product API has no record for a GTIN
	ErrProductNotFound = errors.New("product not found")

	// ErrReviewsNotFound is returned when the review API has no reviews for an ASIN
	ErrReviewsNotFound = errors.New("reviews not found")

	// ErrNoReviewSource is returned when no store offer maps to a review marketplace
	ErrNoReviewSource = errors.New("no store offer with a reviewable marketplace")

	// ErrRateLimited is returned when a rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUpstreamFailure is returned when an external API request fails
	ErrUpstreamFailure = errors.New("upstream API request failed")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrInvalidModel is returned when a classifier model file is unusable
	ErrInvalidModel = errors.New("invalid classifier model")
)

// DecodeErrorKind enumerates the payload conditions that abort a decode.
type DecodeErrorKind int

const (
	// MissingRequiredField means a required field is absent or unusable.
	MissingRequiredField DecodeErrorKind = iota + 1
	// MalformedTopLevelShape means the payload is not a JSON object of the expected shape.
	MalformedTopLevelShape
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MissingRequiredField:
		return "missing required field"
	case MalformedTopLevelShape:
		return "malformed top-level shape"
	default:
		return "unknown decode error"
	}
}

// DecodeError reports a payload that could not be turned into a domain value.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field string // set for MissingRequiredField
	Err   error
}

func (e *DecodeError) Error() string {
	msg := "decode: " + e.Kind.String()
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewMissingFieldError builds a MissingRequiredField decode error.
func NewMissingFieldError(field string) *DecodeError {
	return &DecodeError{Kind: MissingRequiredField, Field: field}
}

// NewMalformedError builds a MalformedTopLevelShape decode error.
func NewMalformedError(err error) *DecodeError {
	return &DecodeError{Kind: MalformedTopLevelShape, Err: err}
}

// IsDecodeError reports whether err carries a DecodeError and returns it.
func IsDecodeError(err error) (*DecodeError, bool) {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return decodeErr, true
	}
	return nil, false
}

// ClassifierErrorKind enumerates classifier failure modes.
type ClassifierErrorKind int

const (
	// LoadFailed means the model could not be loaded.
	LoadFailed ClassifierErrorKind = iota + 1
	// InferenceFailed means the model was loaded but prediction failed.
	InferenceFailed
)

func (k ClassifierErrorKind) String() string {
	switch k {
	case LoadFailed:
		return "load_failed"
	case InferenceFailed:
		return "inference_failed"
	default:
		return "unknown"
	}
}

// ClassifierError reports a failed prediction. It only ever affects the review
// being scored.
type ClassifierError struct {
	Kind  ClassifierErrorKind
	Cause error
}

func (e *ClassifierError) Error() string {
	if e.Cause == nil {
		return "classifier: " + e.Kind.String()
	}
	return fmt.Sprintf("classifier: %s: %v", e.Kind, e.Cause)
}

func (e *ClassifierError) Unwrap() error {
	return e.Cause
}

// IsClassifierError reports whether err carries a ClassifierError and returns it.
func IsClassifierError(err error) (*ClassifierError, bool) {
	var classifierErr *ClassifierError
	if errors.As(err, &classifierErr) {
		return classifierErr, true
	}
	return nil, false
}
