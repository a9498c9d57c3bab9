package transport

import (
	"context"
	"io"
	"mini-ttt/message"
	"mini-ttt/protocol"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSessionPair wires a ClientTransport to the two server-side ends of its FIFOs.
func newSessionPair(t *testing.T) (ct *ClientTransport, requests, responses *os.File) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	inPath, outPath := protocol.ChannelPaths(t.TempDir(), "T", 1)
	require.NoError(t, Mkfifo(inPath))
	require.NoError(t, Mkfifo(outPath))

	clientOut, err := OpenReadWrite(outPath)
	require.NoError(t, err)
	requests, err = OpenReader(ctx, outPath)
	require.NoError(t, err)

	type result struct {
		f   *os.File
		err error
	}
	opened := make(chan result, 1)
	go func() {
		f, err := OpenReader(ctx, inPath)
		opened <- result{f, err}
	}()
	responses, err = OpenWriterRetry(ctx, inPath, 5, 10*time.Millisecond)
	require.NoError(t, err)
	r := <-opened
	require.NoError(t, r.err)

	ct = NewClientTransport(clientOut, r.f)
	t.Cleanup(func() {
		ct.Close()
		requests.Close()
		responses.Close()
	})
	return ct, requests, responses
}

// echoServer answers every request with OK and the cell shifted by one row.
func echoServer(requests, responses *os.File) {
	for {
		req, err := protocol.ReadMove(requests)
		if err != nil {
			return
		}
		protocol.WriteMove(responses, &message.Move{Status: message.StatusOK, Row: req.Row + 1, Col: req.Col})
	}
}

func TestClientTransportSerial(t *testing.T) {
	ct, requests, responses := newSessionPair(t)
	go echoServer(requests, responses)

	for i := int32(0); i < 3; i++ {
		resp, err := ct.Exchange(context.Background(), &message.Move{Row: i, Col: 2})
		require.NoError(t, err)
		assert.Equal(t, &message.Move{Status: message.StatusOK, Row: i + 1, Col: 2}, resp)
	}
}

func TestClientTransportRejectsConcurrentExchange(t *testing.T) {
	ct, requests, responses := newSessionPair(t)

	received := make(chan struct{})
	release := make(chan struct{})
	go func() {
		req, err := protocol.ReadMove(requests)
		if err != nil {
			return
		}
		close(received)
		<-release
		protocol.WriteMove(responses, &message.Move{Status: message.StatusOK, Row: req.Row, Col: req.Col})
	}()

	first := make(chan error, 1)
	go func() {
		_, err := ct.Exchange(context.Background(), &message.Move{Row: 1, Col: 1})
		first <- err
	}()

	<-received
	_, err := ct.Exchange(context.Background(), &message.Move{Row: 2, Col: 2})
	assert.ErrorIs(t, err, ErrExchangeInProgress)

	close(release)
	require.NoError(t, <-first)
}

func TestClientTransportTimeout(t *testing.T) {
	ct, requests, _ := newSessionPair(t)
	go func() {
		protocol.ReadMove(requests)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ct.Exchange(ctx, &message.Move{Row: 0, Col: 0})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the late response would be mistaken for the next one
	_, err = ct.Exchange(context.Background(), &message.Move{Row: 1, Col: 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientTransportCancel(t *testing.T) {
	ct, requests, _ := newSessionPair(t)
	go func() {
		protocol.ReadMove(requests)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)
	_, err := ct.Exchange(ctx, &message.Move{Row: 0, Col: 0})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientTransportPeerClosed(t *testing.T) {
	ct, requests, responses := newSessionPair(t)
	go func() {
		protocol.ReadMove(requests)
		responses.Close()
	}()

	_, err := ct.Exchange(context.Background(), &message.Move{Row: 0, Col: 0})
	assert.ErrorIs(t, err, ErrPeerClosed)
}

func TestClientTransportCloseEndsServerRead(t *testing.T) {
	ct, requests, _ := newSessionPair(t)
	require.NoError(t, ct.Close())

	_, err := protocol.ReadMove(requests)
	assert.ErrorIs(t, err, io.EOF)
}
