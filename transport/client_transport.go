package transport

import (
	"context"
	"errors"
	"io"
	"mini-ttt/message"
	"mini-ttt/protocol"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var (
	// ErrExchangeInProgress is returned when Exchange is called while another one is
	// still waiting for its response.
	ErrExchangeInProgress = errors.New("exchange already in progress")
	// ErrPeerClosed means the server closed its end of the session.
	ErrPeerClosed = errors.New("peer closed the session")
)

// ClientTransport is the client side of one session: requests go out on the out FIFO,
// responses come back on the in FIFO.
//
// The protocol is strictly alternating: one request, then exactly one response. There is
// no sequence number on the wire, so a second request sent before the first response
// arrived could not be told apart from it. Exchange enforces the alternation.
//
//	Exchange ──Move{row,col}──► out ──► server
//	         ◄─Move{status,..}── in ◄──
//
// A failed exchange may leave half a record in either FIFO, so the transport is marked
// broken and every later Exchange returns the same error.
type ClientTransport struct {
	out     *os.File
	in      *os.File
	busy    atomic.Bool
	sending sync.Mutex // guards broken and the write/read pair
	broken  error
}

// NewClientTransport wraps an already opened FIFO pair.
func NewClientTransport(out, in *os.File) *ClientTransport {
	return &ClientTransport{out: out, in: in}
}

// Exchange sends req and waits for the matching response. The wait ends early when ctx
// is cancelled or its deadline passes.
func (t *ClientTransport) Exchange(ctx context.Context, req *message.Move) (*message.Move, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return nil, ErrExchangeInProgress
	}
	defer t.busy.Store(false)

	t.sending.Lock()
	defer t.sending.Unlock()

	if t.broken != nil {
		return nil, t.broken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := protocol.WriteMove(t.out, req); err != nil {
		return nil, t.fail(ctx, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		t.in.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		t.in.SetReadDeadline(time.Unix(1, 0))
	})
	defer func() {
		stop()
		t.in.SetReadDeadline(time.Time{})
	}()

	resp, err := protocol.ReadMove(t.in)
	if err != nil {
		return nil, t.fail(ctx, err)
	}
	return resp, nil
}

func (t *ClientTransport) fail(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case errors.Is(err, os.ErrDeadlineExceeded):
		err = context.DeadlineExceeded
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.EPIPE):
		err = ErrPeerClosed
	}
	t.broken = err
	return err
}

// Close closes both FIFOs. Closing out is what tells the server the session is over.
func (t *ClientTransport) Close() error {
	return errors.Join(t.out.Close(), t.in.Close())
}
