package classifier

import (
	"context"
	"errors"
	"sync"

	"github.com/trustscan/backend/internal/domain"
)

// ErrClosed is the cause reported by a Serialized classifier after Close.
var ErrClosed = errors.New("classifier closed")

type request struct {
	ctx      context.Context
	sequence []int32
	reply    chan response
}

type response struct {
	prediction *domain.Prediction
	err        error
}

// Serialized runs every prediction of a non-reentrant classifier on a single
// owner goroutine. Callers may use it concurrently.
type Serialized struct {
	inner     domain.Classifier
	requests  chan request
	done      chan struct{}
	closeOnce sync.Once
}

// NewSerialized starts the owner goroutine for inner.
func NewSerialized(inner domain.Classifier) *Serialized {
	s := &Serialized{
		inner:    inner,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Serialized) run() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.requests:
			select {
			case <-s.done:
				req.reply <- response{err: &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: ErrClosed}}
				return
			default:
			}
			if err := req.ctx.Err(); err != nil {
				req.reply <- response{err: &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: err}}
				continue
			}
			prediction, err := s.inner.Predict(req.ctx, req.sequence)
			req.reply <- response{prediction: prediction, err: err}
		}
	}
}

// Predict queues the sequence for the owner goroutine and waits for its result
// or for ctx to end.
func (s *Serialized) Predict(ctx context.Context, sequence []int32) (*domain.Prediction, error) {
	req := request{
		ctx:      ctx,
		sequence: append([]int32(nil), sequence...),
		reply:    make(chan response, 1),
	}

	select {
	case <-s.done:
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: ErrClosed}
	default:
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: ctx.Err()}
	case <-s.done:
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: ErrClosed}
	}

	select {
	case resp := <-req.reply:
		return resp.prediction, resp.err
	case <-ctx.Done():
		return nil, &domain.ClassifierError{Kind: domain.InferenceFailed, Cause: ctx.Err()}
	}
}

// Close stops the owner goroutine. Later calls fail with ErrClosed.
func (s *Serialized) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
