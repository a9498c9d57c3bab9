// Package transport moves game records over named pipes (FIFOs).
//
// Every channel in the system is a FIFO in the filesystem:
//
//	rendezvous   one per server, read only by the dispatch loop, written by every client
//	client in    one per client, server → client responses
//	client out   one per client, client → server requests
//
// Opening a FIFO blocks until the other end is opened too. The helpers here make those
// opens cancellable and bounded so that no goroutine waits forever on a peer that
// never shows up. Files opened here are registered with the runtime poller, so reads
// honour deadlines and Close unblocks a pending Read.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrChannelCreate is returned when a FIFO cannot be created.
	ErrChannelCreate = errors.New("cannot create channel")
	// ErrChannelExists is returned when the FIFO to create is already present.
	ErrChannelExists = errors.New("channel already exists")
	// ErrReplyUnreachable is returned when the peer never opened its read end.
	ErrReplyUnreachable = errors.New("reply channel unreachable")
	// ErrServerNotRunning is returned when nobody reads the rendezvous channel.
	ErrServerNotRunning = errors.New("server not running")
)

// Mkfifo creates a FIFO at path, readable and writable by everyone (subject to umask).
func Mkfifo(path string) error {
	if err := unix.Mkfifo(path, 0o666); err != nil {
		if errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("%w: %s", ErrChannelExists, path)
		}
		return fmt.Errorf("%w: %s: %v", ErrChannelCreate, path, err)
	}
	return nil
}

// Remove unlinks the FIFO at path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsFIFO reports whether path exists and is a named pipe.
func IsFIFO(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeNamedPipe != 0
}

// OpenReader opens path for reading, waiting until a writer opens the other end
// or ctx is done.
func OpenReader(ctx context.Context, path string) (*os.File, error) {
	return openBlocking(ctx, path, os.O_RDONLY, os.O_WRONLY|unix.O_NONBLOCK)
}

// OpenReadWrite opens path for both directions. It never blocks and the file never
// sees end-of-data, since it holds a writer itself.
func OpenReadWrite(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}

// OpenWriterRetry opens path for writing without blocking. While no reader is present
// the open fails; it is retried up to retries more times with backoff in between.
func OpenWriterRetry(ctx context.Context, path string, retries int, backoff time.Duration) (*os.File, error) {
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			return f, nil
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w after %d retries: %v", ErrReplyUnreachable, retries, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

type openResult struct {
	f   *os.File
	err error
}

// openBlocking runs a blocking open in its own goroutine. On cancellation it briefly
// opens the opposite end (peerFlag, non-blocking) so the pending open completes, and
// closes whatever that open returns.
func openBlocking(ctx context.Context, path string, flag, peerFlag int) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan openResult, 1)
	go func() {
		f, err := os.OpenFile(path, flag, 0)
		done <- openResult{f, err}
	}()

	select {
	case r := <-done:
		return r.f, r.err
	case <-ctx.Done():
	}

	if peer, err := os.OpenFile(path, peerFlag, 0); err == nil {
		peer.Close()
	}
	go func() {
		if r := <-done; r.f != nil {
			r.f.Close()
		}
	}()
	return nil, ctx.Err()
}
