package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-kit/kit/endpoint"
)

// Error middleware handler...
func ErrorHandlingMiddleware(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		response, err := next(ctx, request)
		if err != nil {
			var appErr *AppError
			if errors.As(err, &appErr) {
				return nil, appErr
			}
			// anything untyped at this point came from below the service
			return nil, NewUpstreamError(err)
		}
		return response, nil
	}
}

func TimeoutMiddleware(d time.Duration) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (interface{}, error) {
			// Create a new context with timeout
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			// Start processing the request...
			start := time.Now()
			response, err := next(ctx, request)
			duration := time.Since(start)

			if errors.Is(err, context.DeadlineExceeded) {
				log.Printf("Request timed out after %v", duration)
				return nil, NewUpstreamError(err)
			}

			// Log duration for long-running requests...
			if duration > time.Second {
				log.Printf("Request processed in %v", duration)
			}
			return response, err
		}
	}
}
