package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AntoineSierzputowski/carmen"
)

// Compile-time interface check
var _ carmen.AnalysisStore = (*BreakerStore)(nil)

// BreakerStore wraps an AnalysisStore with a circuit breaker so a dead
// backing store is not hammered on every run. An open breaker reads as
// ErrStoreUnavailable, which the pipeline already treats as a degradation.
type BreakerStore struct {
	inner carmen.AnalysisStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore decorates inner with a breaker that trips after fails
// consecutive failures.
func NewBreakerStore(inner carmen.AnalysisStore, name string, fails int) *BreakerStore {
	return &BreakerStore{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Interval: 60 * time.Second,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(fails)
			},
		}),
	}
}

func (b *BreakerStore) Append(ctx context.Context, rec carmen.AnalysisRecord) (carmen.AnalysisRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.Append(ctx, rec)
	})
	if err != nil {
		return carmen.AnalysisRecord{}, wrapBreakerErr(err)
	}
	return res.(carmen.AnalysisRecord), nil
}

func (b *BreakerStore) FetchRecent(ctx context.Context, plantID string, limit int) ([]carmen.AnalysisRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.FetchRecent(ctx, plantID, limit)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return res.([]carmen.AnalysisRecord), nil
}

func (b *BreakerStore) List(ctx context.Context, plantID string, limit, offset int) ([]carmen.AnalysisRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.List(ctx, plantID, limit, offset)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return res.([]carmen.AnalysisRecord), nil
}

func (b *BreakerStore) ListAll(ctx context.Context, limit, offset int) ([]carmen.AnalysisRecord, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.ListAll(ctx, limit, offset)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return res.([]carmen.AnalysisRecord), nil
}

func wrapBreakerErr(err error) error {
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return fmt.Errorf("%w: circuit breaker open: %v", carmen.ErrStoreUnavailable, err)
	}
	return err
}
