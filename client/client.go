// Package client is the player side of a game session: it registers with a server,
// exchanges moves over a private FIFO pair and removes that pair when done.
package client

import (
	"context"
	"errors"
	"fmt"
	"mini-ttt/loadbalance"
	"mini-ttt/logger"
	"mini-ttt/message"
	"mini-ttt/protocol"
	"mini-ttt/registry"
	"mini-ttt/transport"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrServerNotRunning is returned by Dial when no server reads the rendezvous.
	// No private channel has been created at that point.
	ErrServerNotRunning = transport.ErrServerNotRunning
	// ErrServerGone is returned by Exchange when the server ended the session.
	ErrServerGone = errors.New("server closed the session")
)

type Options struct {
	Name            string
	Rendezvous      string // empty: discovered through Registry, or the default path
	ChannelDir      string
	ID              int // identity in the private channel names, 0: process id
	Mark            message.Mark
	ConnectTimeout  time.Duration // bound on the server opening our in channel
	ResponseTimeout time.Duration // bound on each Exchange, 0: none
	Registry        registry.Registry
	Balancer        loadbalance.Balancer // nil: RoundRobin
	Logger          *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = protocol.DefaultName
	}
	if o.ChannelDir == "" {
		o.ChannelDir = os.TempDir()
	}
	if o.ID == 0 {
		o.ID = os.Getpid()
	}
	if !o.Mark.Valid() {
		o.Mark = message.MarkX
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.Balancer == nil {
		o.Balancer = &loadbalance.RoundRobinBalancer{}
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o
}

// Client is one registered session with a server.
type Client struct {
	opts       Options
	log        *logger.Logger
	rendezvous string
	hs         message.Handshake
	transport  *transport.ClientTransport
	closeOnce  sync.Once
	closeErr   error
}

// Dial registers with a server and returns once the server has opened both private
// channels. The rendezvous is checked before any channel is created.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	rendezvous, rz, err := openRendezvous(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer rz.Close()

	inPath, outPath := protocol.ChannelPaths(opts.ChannelDir, opts.Name, opts.ID)
	c := &Client{
		opts:       opts,
		log:        opts.Logger.With("rendezvous", rendezvous, "id", opts.ID),
		rendezvous: rendezvous,
		hs: message.Handshake{
			ClientMark: opts.Mark,
			ServerMark: opts.Mark.Opponent(),
			ClientIn:   inPath,
			ClientOut:  outPath,
		},
	}

	if err := c.connect(ctx, rz); err != nil {
		c.removeChannels()
		return nil, err
	}
	c.log.Info("session established", "mark", opts.Mark)
	return c, nil
}

func (c *Client) connect(ctx context.Context, rz *os.File) error {
	for _, path := range []string{c.hs.ClientIn, c.hs.ClientOut} {
		if err := makeChannel(path); err != nil {
			return err
		}
	}

	// O_RDWR never blocks, so the request channel is ready before the server knows us
	out, err := transport.OpenReadWrite(c.hs.ClientOut)
	if err != nil {
		return fmt.Errorf("open out channel: %w", err)
	}

	if err := protocol.WriteHandshake(rz, &c.hs); err != nil {
		out.Close()
		return fmt.Errorf("send handshake: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()
	in, err := transport.OpenReader(cctx, c.hs.ClientIn)
	if err != nil {
		out.Close()
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server did not open the reply channel within %s: %w", c.opts.ConnectTimeout, err)
		}
		return fmt.Errorf("open in channel: %w", err)
	}

	c.transport = transport.NewClientTransport(out, in)
	return nil
}

// makeChannel creates a private FIFO. A leftover with the same name can only belong
// to a dead client with our identity, so it is replaced.
func makeChannel(path string) error {
	err := transport.Mkfifo(path)
	if errors.Is(err, transport.ErrChannelExists) {
		if err := transport.Remove(path); err != nil {
			return fmt.Errorf("%w: %v", transport.ErrChannelCreate, err)
		}
		err = transport.Mkfifo(path)
	}
	return err
}

// openRendezvous opens the explicit or default rendezvous, or one discovered in the
// registry. A server that died keeps its registry entry until the lease runs out, so
// when every discovered rendezvous is dead the registry is watched and each update is
// tried again, until ctx is done or no instance is left.
func openRendezvous(ctx context.Context, opts Options) (string, *os.File, error) {
	if opts.Rendezvous != "" || opts.Registry == nil {
		path := opts.Rendezvous
		if path == "" {
			path = protocol.DefaultRendezvous(opts.Name)
		}
		rz, err := transport.DialRendezvous(path)
		return path, rz, err
	}

	instances, err := opts.Registry.Discover(ctx, opts.Name)
	if err != nil {
		return "", nil, fmt.Errorf("discover %s: %w", opts.Name, err)
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var updates <-chan []registry.ServerInstance
	dead := make(map[string]bool)

	for {
		candidates := liveLocal(instances, dead)
		if len(candidates) == 0 {
			if len(dead) == 0 {
				return "", nil, fmt.Errorf("%w: no %s server registered on this host", ErrServerNotRunning, opts.Name)
			}
			if updates == nil {
				// subscribe, then discover again so a change in between is not missed
				updates = opts.Registry.Watch(wctx, opts.Name)
				if instances, err = opts.Registry.Discover(ctx, opts.Name); err != nil {
					return "", nil, fmt.Errorf("discover %s: %w", opts.Name, err)
				}
				clear(dead)
				continue
			}
			select {
			case <-ctx.Done():
				return "", nil, fmt.Errorf("%w: registered %s servers are not reachable: %w", ErrServerNotRunning, opts.Name, ctx.Err())
			case list, ok := <-updates:
				if !ok {
					return "", nil, fmt.Errorf("%w: registry watch ended", ErrServerNotRunning)
				}
				instances = list
				clear(dead)
			}
			continue
		}

		inst, err := opts.Balancer.Pick(candidates)
		if err != nil {
			return "", nil, err
		}
		rz, err := transport.DialRendezvous(inst.Rendezvous)
		switch {
		case err == nil:
			return inst.Rendezvous, rz, nil
		case errors.Is(err, ErrServerNotRunning):
			opts.Logger.Warn("registered server not reachable", "rendezvous", inst.Rendezvous, "pid", inst.Pid)
			dead[inst.Rendezvous] = true
		default:
			return "", nil, err
		}
	}
}

// liveLocal keeps the instances on this host that have not been found dead.
func liveLocal(instances []registry.ServerInstance, dead map[string]bool) []registry.ServerInstance {
	var live []registry.ServerInstance
	for _, inst := range registry.Local(instances) {
		if !dead[inst.Rendezvous] {
			live = append(live, inst)
		}
	}
	return live
}

// Exchange sends the cell (row, col) and waits for the server's response.
func (c *Client) Exchange(ctx context.Context, row, col int32) (message.Move, error) {
	if c.opts.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ResponseTimeout)
		defer cancel()
	}

	resp, err := c.transport.Exchange(ctx, &message.Move{Status: message.StatusOK, Row: row, Col: col})
	if err != nil {
		if errors.Is(err, transport.ErrPeerClosed) {
			return message.Move{}, ErrServerGone
		}
		return message.Move{}, err
	}
	c.log.Debug("exchange", "row", row, "col", col, "status", resp.Status, "reply_row", resp.Row, "reply_col", resp.Col)
	return *resp, nil
}

// Handshake returns the registration record sent to the server.
func (c *Client) Handshake() message.Handshake {
	return c.hs
}

// Rendezvous returns the rendezvous path the client registered on.
func (c *Client) Rendezvous() string {
	return c.rendezvous
}

// Close ends the session and removes both private channels. Safe to call repeatedly.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.transport != nil {
			c.closeErr = c.transport.Close()
		}
		c.removeChannels()
		c.log.Info("session closed")
	})
	return c.closeErr
}

func (c *Client) removeChannels() {
	for _, path := range []string{c.hs.ClientIn, c.hs.ClientOut} {
		if err := transport.Remove(path); err != nil {
			c.log.Warn("channel not removed", "path", path, "error", err)
		}
	}
}

// String identifies the client in logs.
func (c *Client) String() string {
	return c.opts.Name + "_" + strconv.Itoa(c.opts.ID)
}
