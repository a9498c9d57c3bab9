package middleware

import (
	"context"
	"fmt"
	"mini-ttt/message"
)

// RecoverMiddleware turns a panic in the handler into an error, so one bad session
// cannot take the server down.
func RecoverMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Move) (resp *message.Move, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = nil, fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}
