// Package config reads the settings of both binaries from TTT_* environment
// variables, then lets command-line flags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"mini-ttt/message"
	"mini-ttt/protocol"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	Name               string        `env:"TTT_NAME" envDefault:"TTT"`
	Rendezvous         string        `env:"TTT_RENDEZVOUS"`
	PidFile            string        `env:"TTT_PID_FILE"`
	Daemon             bool          `env:"TTT_DAEMON" envDefault:"true"`
	LogLevel           string        `env:"TTT_LOG_LEVEL" envDefault:"info"`
	LogFile            string        `env:"TTT_LOG_FILE"`
	ReplyRetries       int           `env:"TTT_REPLY_RETRIES" envDefault:"5"`
	ReplyBackoff       time.Duration `env:"TTT_REPLY_BACKOFF" envDefault:"1s"`
	SessionIdleTimeout time.Duration `env:"TTT_SESSION_IDLE_TIMEOUT" envDefault:"0s"`
	HandshakeRate      float64       `env:"TTT_HANDSHAKE_RATE" envDefault:"50"`
	HandshakeBurst     int           `env:"TTT_HANDSHAKE_BURST" envDefault:"10"`
	MoveRate           float64       `env:"TTT_MOVE_RATE" envDefault:"0"`
	MoveBurst          int           `env:"TTT_MOVE_BURST" envDefault:"5"`
	EtcdEndpoints      []string      `env:"TTT_ETCD_ENDPOINTS" envSeparator:","`
	RegistryTTL        int64         `env:"TTT_REGISTRY_TTL" envDefault:"10"`
	Weight             int           `env:"TTT_WEIGHT" envDefault:"1"`
	ShutdownTimeout    time.Duration `env:"TTT_SHUTDOWN_TIMEOUT" envDefault:"3s"`
}

type ClientConfig struct {
	Name            string        `env:"TTT_NAME" envDefault:"TTT"`
	Rendezvous      string        `env:"TTT_RENDEZVOUS"`
	ChannelDir      string        `env:"TTT_CHANNEL_DIR" envDefault:"/tmp"`
	ID              int           `env:"TTT_CLIENT_ID"`
	Mark            string        `env:"TTT_MARK" envDefault:"X"`
	ConnectTimeout  time.Duration `env:"TTT_CONNECT_TIMEOUT" envDefault:"10s"`
	ResponseTimeout time.Duration `env:"TTT_RESPONSE_TIMEOUT" envDefault:"10s"`
	EtcdEndpoints   []string      `env:"TTT_ETCD_ENDPOINTS" envSeparator:","`
	Balancer        string        `env:"TTT_BALANCER" envDefault:"roundrobin"`
	LogLevel        string        `env:"TTT_LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"TTT_LOG_FILE"`
}

// ParseServerConfig parses environment and flags into a ServerConfig.
func ParseServerConfig(fs *flag.FlagSet, args []string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Name, "name", cfg.Name, "channel name tag")
	fs.StringVar(&cfg.Rendezvous, "rendezvous", cfg.Rendezvous, "rendezvous FIFO path (default /tmp/TICTACTOE_<name>)")
	fs.StringVar(&cfg.PidFile, "pidfile", cfg.PidFile, "pid file path (default <rendezvous>.pid)")
	fs.BoolVar(&cfg.Daemon, "daemon", cfg.Daemon, "detach from the terminal")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (default stderr, discarded when detached)")
	fs.IntVar(&cfg.ReplyRetries, "reply-retries", cfg.ReplyRetries, "retries when opening a client's reply channel")
	fs.DurationVar(&cfg.ReplyBackoff, "reply-backoff", cfg.ReplyBackoff, "pause between reply channel attempts")
	fs.DurationVar(&cfg.SessionIdleTimeout, "idle-timeout", cfg.SessionIdleTimeout, "end sessions idle this long (0 disables)")
	fs.Float64Var(&cfg.MoveRate, "move-rate", cfg.MoveRate, "moves per second per session (0 disables)")
	etcd := fs.String("etcd", strings.Join(cfg.EtcdEndpoints, ","), "comma-separated etcd endpoints for discovery")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long to wait for sessions on shutdown")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}
	cfg.EtcdEndpoints = splitList(*etcd)

	if cfg.Rendezvous == "" {
		cfg.Rendezvous = protocol.DefaultRendezvous(cfg.Name)
	}
	if cfg.PidFile == "" {
		cfg.PidFile = cfg.Rendezvous + ".pid"
	}
	// The detached server runs in /, so relative paths are resolved now
	var err error
	if cfg.Rendezvous, err = absPath(cfg.Rendezvous); err != nil {
		return ServerConfig{}, err
	}
	if cfg.PidFile, err = absPath(cfg.PidFile); err != nil {
		return ServerConfig{}, err
	}
	if cfg.LogFile, err = absPath(cfg.LogFile); err != nil {
		return ServerConfig{}, err
	}
	if cfg.ReplyRetries < 0 {
		return ServerConfig{}, errors.New("reply retries must not be negative")
	}
	return cfg, nil
}

// ParseClientConfig parses environment and flags into a ClientConfig.
func ParseClientConfig(fs *flag.FlagSet, args []string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Name, "name", cfg.Name, "channel name tag")
	fs.StringVar(&cfg.Rendezvous, "rendezvous", cfg.Rendezvous, "rendezvous FIFO path (default: discovered, or /tmp/TICTACTOE_<name>)")
	fs.StringVar(&cfg.ChannelDir, "channel-dir", cfg.ChannelDir, "directory for the private FIFOs")
	fs.IntVar(&cfg.ID, "id", cfg.ID, "client identity in channel names (default: process id)")
	fs.StringVar(&cfg.Mark, "mark", cfg.Mark, "your mark, X or O")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "how long to wait for the server to answer")
	fs.DurationVar(&cfg.ResponseTimeout, "response-timeout", cfg.ResponseTimeout, "how long to wait for each reply (0 waits forever)")
	etcd := fs.String("etcd", strings.Join(cfg.EtcdEndpoints, ","), "comma-separated etcd endpoints for discovery")
	fs.StringVar(&cfg.Balancer, "balancer", cfg.Balancer, "roundrobin, weighted or hash")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file (default: no logging, the terminal belongs to the board)")

	if err := fs.Parse(args); err != nil {
		return ClientConfig{}, err
	}
	cfg.EtcdEndpoints = splitList(*etcd)

	if _, err := message.ParseMark(cfg.Mark); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// ClientMark returns the parsed mark. ParseClientConfig has already validated it.
func (c ClientConfig) ClientMark() message.Mark {
	m, _ := message.ParseMark(c.Mark)
	return m
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func absPath(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Abs(p)
}
