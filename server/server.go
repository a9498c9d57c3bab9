// Package server implements the game server: a dispatch loop on the rendezvous FIFO and
// one isolated session per registered client.
//
// Processing pipeline:
//
//	Mkfifo rendezvous → Listen → throttle → Accept handshake
//	  → go runSession: open client out (read) → open client in (write, bounded retries)
//	    → for each Move: Middleware Chain → Round.Play → write response
//	    → until the client closes its out channel
package server

import (
	"context"
	"errors"
	"fmt"
	"mini-ttt/daemon"
	"mini-ttt/game"
	"mini-ttt/logger"
	"mini-ttt/message"
	"mini-ttt/middleware"
	"mini-ttt/protocol"
	"mini-ttt/registry"
	"mini-ttt/transport"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrRendezvousExists means the rendezvous FIFO is already present, usually because
// another server instance is running.
var ErrRendezvousExists = errors.New("rendezvous channel already exists, is another server running?")

// Options configure a Server. Zero values fall back to DefaultOptions.
type Options struct {
	Name               string
	Rendezvous         string
	PidFile            string        // empty: no pid file
	ReplyRetries       int           // retries after the first failed reply open
	ReplyBackoff       time.Duration // fixed sleep between reply open attempts
	SessionIdleTimeout time.Duration // 0: a session waits for its client forever
	HandshakeRate      float64       // handshakes per second accepted by the dispatch loop
	HandshakeBurst     int
	MoveRate           float64 // moves per second per session, 0: unlimited
	MoveBurst          int
	Strategy           game.Strategy
	Registry           registry.Registry // nil: no discovery
	RegistryTTL        int64
	Weight             int
	Logger             *logger.Logger
}

func DefaultOptions() Options {
	return Options{
		Name:           protocol.DefaultName,
		Rendezvous:     protocol.DefaultRendezvous(protocol.DefaultName),
		ReplyRetries:   5,
		ReplyBackoff:   time.Second,
		HandshakeRate:  50,
		HandshakeBurst: 10,
		MoveBurst:      5,
		Strategy:       game.FirstEmpty{},
		RegistryTTL:    10,
		Weight:         1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Name == "" {
		o.Name = d.Name
	}
	if o.Rendezvous == "" {
		o.Rendezvous = protocol.DefaultRendezvous(o.Name)
	}
	if o.ReplyRetries <= 0 {
		o.ReplyRetries = d.ReplyRetries
	}
	if o.ReplyBackoff <= 0 {
		o.ReplyBackoff = d.ReplyBackoff
	}
	if o.HandshakeRate <= 0 {
		o.HandshakeRate = d.HandshakeRate
	}
	if o.HandshakeBurst <= 0 {
		o.HandshakeBurst = d.HandshakeBurst
	}
	if o.MoveBurst <= 0 {
		o.MoveBurst = d.MoveBurst
	}
	if o.Strategy == nil {
		o.Strategy = d.Strategy
	}
	if o.RegistryTTL <= 0 {
		o.RegistryTTL = d.RegistryTTL
	}
	if o.Logger == nil {
		o.Logger = logger.Default()
	}
	return o
}

// Server accepts clients on a rendezvous FIFO and plays one game session per client.
type Server struct {
	opts        Options
	log         *logger.Logger
	listener    *transport.Listener
	pidfile     *daemon.Pidfile
	instance    registry.ServerInstance
	middlewares []middleware.Middleware
	ready       chan struct{}
	finished    chan struct{}  // closed when Shutdown has cleaned up
	wg          sync.WaitGroup // Tracks live sessions for graceful shutdown
	shutdown    atomic.Bool    // Set during shutdown so the closed listener is not an error

	mu       sync.Mutex
	sessions map[string]*session
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a server. Nothing touches the filesystem until Serve.
func NewServer(opts Options) *Server {
	opts = opts.withDefaults()
	svr := &Server{
		opts:     opts,
		log:      opts.Logger.With("rendezvous", opts.Rendezvous),
		ready:    make(chan struct{}),
		finished: make(chan struct{}),
		sessions: make(map[string]*session),
	}
	svr.ctx, svr.cancel = context.WithCancel(context.Background())
	return svr
}

// Use registers a middleware around every session's move handler. Middlewares are
// applied in the order they are added, inside the built-in recovery and logging.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Ready is closed once the rendezvous accepts handshakes.
func (svr *Server) Ready() <-chan struct{} {
	return svr.ready
}

// Rendezvous returns the rendezvous FIFO path.
func (svr *Server) Rendezvous() string {
	return svr.opts.Rendezvous
}

// Sessions returns the number of live sessions.
func (svr *Server) Sessions() int {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	return len(svr.sessions)
}

// Serve creates the rendezvous FIFO, advertises it, and runs the dispatch loop until
// Shutdown or ctx is done. It returns nil after an orderly shutdown.
func (svr *Server) Serve(ctx context.Context) error {
	path := svr.opts.Rendezvous
	if err := transport.Mkfifo(path); err != nil {
		if errors.Is(err, transport.ErrChannelExists) {
			return RendezvousInUse(svr.opts.Rendezvous, svr.opts.PidFile)
		}
		return err
	}

	listener, err := transport.Listen(path)
	if err != nil {
		transport.Remove(path)
		return err
	}

	svr.mu.Lock()
	if svr.shutdown.Load() {
		svr.mu.Unlock()
		listener.Close()
		transport.Remove(path)
		<-svr.finished
		return nil
	}
	svr.listener = listener
	if svr.opts.PidFile != "" {
		pf := daemon.NewPidfile(svr.opts.PidFile)
		if err := pf.Write(); err != nil {
			svr.log.Warn("pid file not written", "error", err)
		} else {
			svr.pidfile = pf
		}
	}
	svr.mu.Unlock()

	svr.register(ctx)
	close(svr.ready)
	svr.log.Info("server ready", "pid", os.Getpid())

	stop := context.AfterFunc(ctx, func() {
		svr.Shutdown(0)
	})
	defer stop()

	limiter := rate.NewLimiter(rate.Limit(svr.opts.HandshakeRate), svr.opts.HandshakeBurst)
	for {
		if err := limiter.Wait(svr.ctx); err != nil {
			return svr.stopped(err)
		}

		hs, err := listener.Accept()
		if err != nil {
			if svr.shutdown.Load() {
				<-svr.finished
				return nil
			}
			if errors.Is(err, protocol.ErrBadHandshake) {
				svr.log.Warn("dropping handshake", "error", err)
				continue
			}
			return svr.stopped(fmt.Errorf("read rendezvous: %w", err))
		}
		svr.startSession(hs)
	}
}

// stopped returns nil, once cleanup is done, when err is a consequence of Shutdown.
func (svr *Server) stopped(err error) error {
	if svr.shutdown.Load() {
		<-svr.finished
		return nil
	}
	svr.Shutdown(0)
	return err
}

// RendezvousInUse returns nil when no file exists at rendezvous. Otherwise it returns
// ErrRendezvousExists, telling a running server (per the pid file, which defaults to
// <rendezvous>.pid) apart from a stale file left behind by a dead one.
func RendezvousInUse(rendezvous, pidfile string) error {
	if _, err := os.Lstat(rendezvous); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	pf := daemon.PidfileFor(rendezvous)
	if pidfile != "" {
		pf = daemon.NewPidfile(pidfile)
	}

	pid, err := pf.Read()
	switch {
	case err != nil:
		return fmt.Errorf("%w: %s. If no server is running, delete it and restart", ErrRendezvousExists, rendezvous)
	case pf.Alive():
		return fmt.Errorf("%w: %s is in use by a running server (pid %d)", ErrRendezvousExists, rendezvous, pid)
	default:
		return fmt.Errorf("%w: %s is stale, server pid %d is gone. Delete it and restart", ErrRendezvousExists, rendezvous, pid)
	}
}

func (svr *Server) register(ctx context.Context) {
	if svr.opts.Registry == nil {
		return
	}
	host, _ := os.Hostname()
	instance := registry.ServerInstance{
		Name:       svr.opts.Name,
		Rendezvous: svr.opts.Rendezvous,
		Host:       host,
		Pid:        os.Getpid(),
		Weight:     svr.opts.Weight,
		StartedAt:  time.Now(),
	}

	// Registration is best effort: the rendezvous path still works without discovery.
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svr.opts.Registry.Register(rctx, instance, svr.opts.RegistryTTL); err != nil {
		svr.log.Warn("registry registration failed", "error", err)
		return
	}

	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		svr.opts.Registry.Deregister(rctx, instance)
		return
	}
	svr.instance = instance
}

// startSession spawns the session goroutine for one handshake. It never blocks on
// the client, so the dispatch loop goes straight back to the rendezvous.
func (svr *Server) startSession(hs *message.Handshake) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return
	}

	ctx, cancel := context.WithCancel(svr.ctx)
	s := &session{
		id:      uuid.NewString(),
		hs:      *hs,
		cancel:  cancel,
		started: time.Now(),
	}
	svr.sessions[s.id] = s

	// wg.Add happens under mu, which Shutdown takes before wg.Wait
	svr.wg.Add(1)
	go func() {
		defer svr.wg.Done()
		defer svr.endSession(s)
		svr.runSession(ctx, s)
	}()
}

func (svr *Server) endSession(s *session) {
	s.cancel()
	svr.mu.Lock()
	delete(svr.sessions, s.id)
	svr.mu.Unlock()
}

// Shutdown performs graceful shutdown:
//  1. Set shutdown flag (so the Accept error is recognized as intentional)
//  2. Deregister from the registry (clients stop discovering this server)
//  3. Close the rendezvous (unblocks the dispatch loop)
//  4. Cancel every session and wait for them, at most timeout (0 waits forever)
//  5. Remove the rendezvous FIFO and the pid file
//
// Calling it more than once is safe.
func (svr *Server) Shutdown(timeout time.Duration) error {
	svr.mu.Lock()
	if svr.shutdown.Swap(true) {
		svr.mu.Unlock()
		return nil
	}
	listener, instance, pidfile := svr.listener, svr.instance, svr.pidfile
	svr.mu.Unlock()

	if svr.opts.Registry != nil && instance.Rendezvous != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := svr.opts.Registry.Deregister(ctx, instance); err != nil {
			svr.log.Warn("registry deregistration failed", "error", err)
		}
		cancel()
	}

	svr.cancel()
	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	var err error
	var expired <-chan time.Time
	if timeout > 0 {
		expired = time.After(timeout)
	}
	select {
	case <-done:
	case <-expired:
		err = fmt.Errorf("timeout waiting for %d sessions to finish", svr.Sessions())
	}

	if listener != nil {
		if rerr := transport.Remove(svr.opts.Rendezvous); rerr != nil {
			svr.log.Error("rendezvous not removed", "error", rerr)
		}
	}
	if pidfile != nil {
		pidfile.Remove()
	}
	svr.log.Info("server stopped")
	close(svr.finished)
	return err
}
