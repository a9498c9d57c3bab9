package transport

import (
	"errors"
	"fmt"
	"mini-ttt/message"
	"mini-ttt/protocol"
	"os"

	"golang.org/x/sys/unix"
)

// Listener reads handshakes from a server's rendezvous FIFO.
//
// It holds its own writer on the FIFO (the keeper) so the reader never observes
// end-of-data between clients. Without the keeper, the read end would return EOF
// each time the last connected client closed its write end.
type Listener struct {
	path   string
	reader *os.File
	keeper *os.File
}

// Listen opens an existing rendezvous FIFO. The reader is opened first and
// non-blocking, so the keeper's non-blocking write open always finds a reader.
func Listen(path string) (*Listener, error) {
	reader, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open rendezvous reader: %w", err)
	}
	keeper, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("open rendezvous keeper: %w", err)
	}
	return &Listener{path: path, reader: reader, keeper: keeper}, nil
}

// Accept blocks until the next handshake arrives. A record that fails validation
// is returned with an error wrapping protocol.ErrBadHandshake; the stream stays
// aligned and the caller may keep accepting. After Close, Accept returns an error
// wrapping os.ErrClosed.
func (l *Listener) Accept() (*message.Handshake, error) {
	return protocol.ReadHandshake(l.reader)
}

// Path returns the rendezvous FIFO path.
func (l *Listener) Path() string {
	return l.path
}

// Close releases both ends. It unblocks a pending Accept. The FIFO itself is left
// in place; the owner removes it.
func (l *Listener) Close() error {
	return errors.Join(l.reader.Close(), l.keeper.Close())
}

// DialRendezvous opens the rendezvous FIFO for writing without blocking. If no server
// holds the read end, or the FIFO does not exist, it returns ErrServerNotRunning.
func DialRendezvous(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) || errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: %s", ErrServerNotRunning, path)
		}
		return nil, fmt.Errorf("open rendezvous: %w", err)
	}
	return f, nil
}

// SendHandshake dials the rendezvous, writes hs as a single record and hangs up.
func SendHandshake(path string, hs *message.Handshake) error {
	f, err := DialRendezvous(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return protocol.WriteHandshake(f, hs)
}
