package openai

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"

	"github.com/prefpoll/prefpoll/internal/ports"
)

// Middleware wraps a batch service with a cross-cutting concern.
// Middlewares compose outside-in: the last applied runs first.
type Middleware func(ports.BatchService) ports.BatchService

// Chain applies middlewares to a service in order.
func Chain(svc ports.BatchService, middlewares ...Middleware) ports.BatchService {
	for _, m := range middlewares {
		svc = m(svc)
	}
	return svc
}

// rateLimitedService paces provider calls with a token bucket so a large
// submission cannot trip the provider's request-per-second limits.
type rateLimitedService struct {
	next    ports.BatchService
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a sustained request
// rate with burst headroom. A non-positive limit disables pacing.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.BatchService) ports.BatchService {
		if limit <= 0 {
			return next
		}
		return &rateLimitedService{next: next, limiter: limiter}
	}
}

// wait blocks until a token is available or the context ends.
func (r *rateLimitedService) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

func (r *rateLimitedService) CreateFile(ctx context.Context, name string, lines []byte) (string, error) {
	if err := r.wait(ctx); err != nil {
		return "", err
	}
	return r.next.CreateFile(ctx, name, lines)
}

func (r *rateLimitedService) CreateBatch(ctx context.Context, inputFileID string, metadata map[string]string) (ports.ProviderBatch, error) {
	if err := r.wait(ctx); err != nil {
		return ports.ProviderBatch{}, err
	}
	return r.next.CreateBatch(ctx, inputFileID, metadata)
}

func (r *rateLimitedService) RetrieveBatch(ctx context.Context, providerID string) (ports.ProviderBatch, error) {
	if err := r.wait(ctx); err != nil {
		return ports.ProviderBatch{}, err
	}
	return r.next.RetrieveBatch(ctx, providerID)
}

func (r *rateLimitedService) FetchFileContent(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.FetchFileContent(ctx, fileID)
}
