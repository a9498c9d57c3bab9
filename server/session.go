package server

import (
	"context"
	"errors"
	"io"
	"mini-ttt/game"
	"mini-ttt/logger"
	"mini-ttt/message"
	"mini-ttt/middleware"
	"mini-ttt/protocol"
	"mini-ttt/transport"
	"os"
	"syscall"
	"time"
)

// session is one registered client. It owns its channels and its board; nothing in it
// is shared with other sessions or the dispatch loop.
type session struct {
	id      string
	hs      message.Handshake
	cancel  context.CancelFunc
	started time.Time
}

// chain builds the move handler pipeline for one session.
func (svr *Server) chain() middleware.Middleware {
	mws := []middleware.Middleware{
		middleware.RecoverMiddleware(),
		middleware.LoggingMiddleware(),
	}
	if svr.opts.MoveRate > 0 {
		mws = append(mws, middleware.RateLimitMiddleware(svr.opts.MoveRate, svr.opts.MoveBurst))
	}
	return middleware.Chain(append(mws, svr.middlewares...)...)
}

// runSession plays with one client until it closes its out channel, the session is
// cancelled, or an error ends it. Whatever happens stays inside this session.
func (svr *Server) runSession(ctx context.Context, s *session) {
	log := svr.log.With("session", s.id, "client", s.hs.ClientOut)
	ctx = logger.NewContext(ctx, log)
	defer func() {
		if r := recover(); r != nil {
			log.Error("session panic", "panic", r)
		}
	}()
	log.Info("session started", "client_mark", s.hs.ClientMark, "server_mark", s.hs.ServerMark)

	requests, err := transport.OpenReader(ctx, s.hs.ClientOut)
	if err != nil {
		log.Error("cannot open client out channel", "error", err)
		return
	}
	defer requests.Close()

	responses, err := transport.OpenWriterRetry(ctx, s.hs.ClientIn, svr.opts.ReplyRetries, svr.opts.ReplyBackoff)
	if err != nil {
		log.Error("cannot open client in channel", "error", err)
		return
	}
	defer responses.Close()

	// Closing the files is what interrupts a blocked read or write on cancellation
	stop := context.AfterFunc(ctx, func() {
		requests.Close()
		responses.Close()
	})
	defer stop()

	round := game.NewRound(s.hs.ClientMark, s.hs.ServerMark, svr.opts.Strategy)
	handler := svr.chain()(func(ctx context.Context, req *message.Move) (*message.Move, error) {
		resp, err := round.Play(*req)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})

	for {
		if svr.opts.SessionIdleTimeout > 0 {
			requests.SetReadDeadline(time.Now().Add(svr.opts.SessionIdleTimeout))
		}

		req, err := protocol.ReadMove(requests)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info("client left", "rounds", round.Finished(), "duration", time.Since(s.started))
			case ctx.Err() != nil:
				log.Info("session cancelled")
			case errors.Is(err, os.ErrDeadlineExceeded):
				log.Info("session idle, closing", "idle_timeout", svr.opts.SessionIdleTimeout)
			default:
				log.Error("read move", "error", err)
			}
			return
		}

		resp, err := handler(ctx, req)
		if err != nil {
			log.Error("session aborted", "error", err)
			return
		}

		if err := protocol.WriteMove(responses, resp); err != nil {
			switch {
			case errors.Is(err, syscall.EPIPE):
				// client stopped reading; its next read of the out channel tells us more
				log.Warn("response dropped, client not reading", "status", resp.Status)
				continue
			case ctx.Err() != nil:
				log.Info("session cancelled")
			default:
				log.Error("write response", "error", err)
			}
			return
		}
	}
}
