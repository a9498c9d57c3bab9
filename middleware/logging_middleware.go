package middleware

import (
	"context"
	"mini-ttt/logger"
	"mini-ttt/message"
	"time"
)

// LoggingMiddleware logs every move at debug level and finished rounds at info, with
// the logger carried by ctx (see logger.NewContext).
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Move) (*message.Move, error) {
			log := logger.FromContext(ctx)
			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				log.Error("move failed", "row", req.Row, "col", req.Col, "duration", duration, "error", err)
				return resp, err
			}
			log.Debug("move",
				"row", req.Row, "col", req.Col,
				"status", resp.Status,
				"reply_row", resp.Row, "reply_col", resp.Col,
				"duration", duration,
			)
			if resp.Status.IsTerminal() {
				log.Info("round over", "status", resp.Status)
			}
			return resp, nil
		}
	}
}
