package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trustscan/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	sets     int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockProductClient is a mock implementation of domain.ProductClient
type MockProductClient struct {
	product *domain.Product
	err     error
	gtins   []string
}

func (m *MockProductClient) GetProduct(ctx context.Context, gtin string) (*domain.Product, error) {
	m.gtins = append(m.gtins, gtin)
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

// MockReviewClient is a mock implementation of domain.ReviewClient
type MockReviewClient struct {
	reviews *domain.ReviewSet
	err     error
	queries []domain.ReviewQuery
}

func (m *MockReviewClient) GetReviews(ctx context.Context, query domain.ReviewQuery) (*domain.ReviewSet, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.reviews, nil
}

// MockClassifier answers with a fixed prediction, or the one in byFirstToken
// for the sequence's first token. Sequences whose first token is in failOn
// fail with an inference error.
type MockClassifier struct {
	prediction   *domain.Prediction
	byFirstToken map[int32]*domain.Prediction
	failOn       map[int32]bool
	calls        int32
	delay        time.Duration
}

func (m *MockClassifier) Predict(ctx context.Context, sequence []int32) (*domain.Prediction, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if len(sequence) > 0 && m.failOn[sequence[0]] {
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: errors.New("mock failure")}
	}
	if len(sequence) > 0 {
		if prediction, ok := m.byFirstToken[sequence[0]]; ok {
			return prediction, nil
		}
	}
	return m.prediction, nil
}

func (m *MockClassifier) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// MockImageFetcher is a mock implementation of domain.ImageFetcher
type MockImageFetcher struct {
	data        []byte
	contentType string
	err         error
	calls       int32
	// started is closed on the first call; release, when set, blocks every call.
	started     chan struct{}
	startOnce   sync.Once
	release     chan struct{}
}

func (m *MockImageFetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.started != nil {
		m.startOnce.Do(func() { close(m.started) })
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, m.contentType, nil
}

func strPtr(s string) *string {
	return &s
}
