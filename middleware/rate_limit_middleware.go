package middleware

import (
	"context"
	"fmt"
	"mini-ttt/message"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware throttles a session with a token bucket. A client over the limit
// is delayed, not rejected: the protocol has no status for "try again", and dropping a
// request would break the request/response alternation.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Move) (*message.Move, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
			return next(ctx, req)
		}
	}
}
