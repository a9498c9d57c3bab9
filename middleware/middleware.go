// Package middleware wraps the per-session move handler.
//
// A session runs its requests through a chain built once at session start, so every
// middleware instance (and any state it keeps, like a rate limiter) belongs to exactly
// one client.
//
//	request → Recover → Logging → RateLimit → game handler
//	                                              │
//	response ◄────────────────────────────────────┘
package middleware

import (
	"context"
	"mini-ttt/message"
)

// HandlerFunc turns one client request into the server's response. An error ends
// the session.
type HandlerFunc func(ctx context.Context, req *message.Move) (*message.Move, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares so the first one listed is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
