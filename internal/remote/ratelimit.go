package remote

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedStore throttles calls to the wrapped Store with a token bucket.
type RateLimitedStore struct {
	next    Store
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps next so that at most perSecond calls are made on average,
// with bursts of up to burst calls.
func NewRateLimitedStore(next Store, perSecond float64, burst int) *RateLimitedStore {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedStore{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// List waits for a token and lists folder.
func (s *RateLimitedStore) List(ctx context.Context, folder string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.List(ctx, folder)
}

// Get waits for a token and reads path.
func (s *RateLimitedStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.next.Get(ctx, path)
}

// PutJSON waits for a token and writes path.
func (s *RateLimitedStore) PutJSON(ctx context.Context, path string, data []byte) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.next.PutJSON(ctx, path, data)
}

// Delete waits for a token and removes path.
func (s *RateLimitedStore) Delete(ctx context.Context, path string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.Delete(ctx, path)
}
